// Package engine 是推荐请求的入口：能个性化时走内容排序 Pipeline，否则降级为随机抽样。
//
// 所有公开操作都返回结构完整的 Result，上游不可达时 Success=false，不会 panic 或把错误抛给调用方。
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
	"github.com/rushteam/artrec/recall"
)

// 默认值
const (
	DefaultCount      = 5
	DefaultMinPercent = 30
	DefaultMaxPercent = 95

	personalizedReason = "Similar to articles you interacted with"
)

// 降级原因
const (
	FallbackAnonymous    = "anonymous"
	FallbackNoProfile    = "no_profile"
	FallbackNoCandidates = "no_candidates"
	FallbackError        = "pipeline_error"
	FallbackRandom       = "random"
)

// Recommender 处理推荐请求。
type Recommender struct {
	// Personalized 是个性化 Pipeline：召回 -> 过滤 -> 收尾排序
	Personalized *pipeline.Pipeline
	Fallback     *recall.Fallback

	// Users 可选：请求开始时读取一次用户快照，供过滤与降级打分复用
	Users core.UserStore

	DefaultCount int
	MinPercent   int
	MaxPercent   int

	Metrics *metrics.Recorder
	Logger  zerolog.Logger
}

// NewRecommender 创建 Recommender。
func NewRecommender(personalized *pipeline.Pipeline, fallback *recall.Fallback) *Recommender {
	return &Recommender{
		Personalized: personalized,
		Fallback:     fallback,
		DefaultCount: DefaultCount,
		MinPercent:   DefaultMinPercent,
		MaxPercent:   DefaultMaxPercent,
		Logger:       logging.With().Str("component", "engine").Logger(),
	}
}

// Recommend 为 userID 返回 count 条推荐；count<=0 时使用 DefaultCount。
//
// 用户没有画像、画像与矩阵缺失或过滤后没有候选时，降级为随机抽样；
// 只有降级也失败（目录不可达）时返回 Success=false。
func (r *Recommender) Recommend(ctx context.Context, userID string, count int) *Result {
	start := time.Now()
	if count <= 0 {
		count = r.DefaultCount
	}
	rctx := r.newContext(userID, count)
	log := r.Logger.With().Str("request_id", rctx.RequestID).Str("user_id", userID).Logger()

	if userID == "" {
		return r.fallback(ctx, rctx, count, FallbackAnonymous, start)
	}
	rctx.User = r.loadUser(ctx, log, userID)

	if r.Personalized == nil {
		return r.fallback(ctx, rctx, count, FallbackNoProfile, start)
	}
	items, err := r.Personalized.Run(ctx, rctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("personalized ranking failed, using fallback")
		return r.fallback(ctx, rctx, count, FallbackError, start)
	}
	if len(items) == 0 {
		reason := FallbackNoCandidates
		if rctx.Profile == nil {
			reason = FallbackNoProfile
		}
		log.Debug().Str("reason", reason).Msg("no personalized candidates, using fallback")
		return r.fallback(ctx, rctx, count, reason, start)
	}

	recs := make([]Recommendation, 0, len(items))
	for _, it := range items {
		recs = append(recs, Recommendation{
			ID:              it.ID,
			Name:            it.Name,
			Score:           it.Score,
			MatchPercentage: r.percent(it.Score),
			Reason:          personalizedReason,
		})
	}
	r.Metrics.ObserveRequest(metrics.OutcomePersonalized, time.Since(start))
	log.Info().Int("count", len(recs)).Dur("elapsed", time.Since(start)).Msg("personalized recommendations")
	return success(rctx.RequestID, userID, SourcePersonalized, recs)
}

// Random 直接走降级抽样；userID 可以为空，有用户时按兴趣打分。
func (r *Recommender) Random(ctx context.Context, userID string, count int) *Result {
	start := time.Now()
	if count <= 0 {
		count = recall.DefaultFallbackCount
	}
	rctx := r.newContext(userID, count)
	if userID != "" {
		log := r.Logger.With().Str("request_id", rctx.RequestID).Str("user_id", userID).Logger()
		rctx.User = r.loadUser(ctx, log, userID)
	}
	return r.fallback(ctx, rctx, count, FallbackRandom, start)
}

func (r *Recommender) newContext(userID string, count int) *core.RecommendContext {
	return &core.RecommendContext{
		UserID:    userID,
		RequestID: uuid.NewString(),
		Params:    map[string]any{"count": count},
	}
}

// loadUser 读取用户快照；失败时返回只有 ID 的空用户（不排除任何物品，也没有兴趣）。
func (r *Recommender) loadUser(ctx context.Context, log zerolog.Logger, userID string) *core.User {
	empty := &core.User{UserID: userID}
	if r.Users == nil {
		return empty
	}
	u, err := r.Users.GetUser(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			log.Debug().Msg("user not found")
		} else {
			log.Warn().Err(err).Msg("load user failed, continuing without interactions")
		}
		return empty
	}
	return u
}

func (r *Recommender) fallback(
	ctx context.Context,
	rctx *core.RecommendContext,
	count int,
	reason string,
	start time.Time,
) *Result {
	log := r.Logger.With().Str("request_id", rctx.RequestID).Str("user_id", rctx.UserID).Logger()
	r.Metrics.Fallback(reason)

	if r.Fallback == nil {
		err := errors.New("fallback sampler not configured")
		r.Metrics.ObserveRequest(metrics.OutcomeFailure, time.Since(start))
		return failure(rctx.RequestID, rctx.UserID, err)
	}
	items, err := r.Fallback.Sample(ctx, rctx, count)
	if err != nil {
		log.Error().Err(err).Msg("fallback sampling failed")
		r.Metrics.ObserveRequest(metrics.OutcomeFailure, time.Since(start))
		return failure(rctx.RequestID, rctx.UserID, err)
	}

	recs := make([]Recommendation, 0, len(items))
	for _, it := range items {
		recs = append(recs, Recommendation{
			ID:              it.ID,
			Name:            it.Name,
			Score:           it.Score,
			MatchPercentage: int(it.Score),
			Reason:          labelString(it, "reason"),
		})
	}
	r.Metrics.ObserveRequest(metrics.OutcomeFallback, time.Since(start))
	log.Info().Str("reason", reason).Int("count", len(recs)).Msg("fallback recommendations")
	return success(rctx.RequestID, rctx.UserID, SourceFallback, recs)
}

// percent 把相似度转换为展示百分比：int(sim*100) 截断后限制在 [MinPercent, MaxPercent]。
func (r *Recommender) percent(sim float64) int {
	p := int(sim * 100)
	if p < r.MinPercent {
		return r.MinPercent
	}
	if p > r.MaxPercent {
		return r.MaxPercent
	}
	return p
}
