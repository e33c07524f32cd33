// Package metrics 基于 Prometheus 记录推荐请求与画像重建的运行指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 请求结果类型
const (
	OutcomePersonalized = "personalized"
	OutcomeFallback     = "fallback"
	OutcomeFailure      = "failure"
)

// Recorder 汇总引擎指标。nil Recorder 的所有方法都是空操作。
type Recorder struct {
	requests  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	rebuilds  *prometheus.CounterVec
	latency   prometheus.Histogram
}

// NewRecorder 创建 Recorder 并注册到 reg；reg 为 nil 时使用 prometheus.DefaultRegisterer。
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artrec",
			Name:      "recommend_requests_total",
			Help:      "Recommendation requests by outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artrec",
			Name:      "fallback_total",
			Help:      "Fallback sampling by reason.",
		}, []string{"reason"}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artrec",
			Name:      "profile_rebuilds_total",
			Help:      "User profile rebuilds by trigger.",
		}, []string{"trigger"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "artrec",
			Name:      "recommend_duration_seconds",
			Help:      "Recommendation request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.requests, r.fallbacks, r.rebuilds, r.latency)
	return r
}

// ObserveRequest 记录一次请求的结果与耗时。
func (r *Recorder) ObserveRequest(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(outcome).Inc()
	r.latency.Observe(d.Seconds())
}

// Fallback 记录一次降级及原因。
func (r *Recorder) Fallback(reason string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(reason).Inc()
}

// ProfilesRebuilt 记录 n 个画像被重建。
func (r *Recorder) ProfilesRebuilt(trigger string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rebuilds.WithLabelValues(trigger).Add(float64(n))
}
