// Package server 通过 HTTP 暴露推荐入口：
//
//	GET  /recommendations?user_id=..&count=..   个性化推荐（必要时降级）
//	GET  /recommendations/random?user_id=..     随机抽样推荐
//	POST /profiles/rebuild                      重建画像（单用户或全量）
//	GET  /healthz
//	GET  /metrics
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/engine"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/profile"
)

// Recommender 是 HTTP 层依赖的推荐入口。
type Recommender interface {
	Recommend(ctx context.Context, userID string, count int) *engine.Result
	Random(ctx context.Context, userID string, count int) *engine.Result
}

// Server 持有路由依赖。
type Server struct {
	Recommender Recommender
	Rebuilder   *profile.Rebuilder

	// Gatherer 为 /metrics 提供数据，nil 时使用 prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// RequestTimeout 单个请求的超时，0 表示不限制
	RequestTimeout time.Duration

	Logger zerolog.Logger
}

// New 创建 Server。
func New(rec Recommender, rebuilder *profile.Rebuilder) *Server {
	return &Server{
		Recommender: rec,
		Rebuilder:   rebuilder,
		Logger:      logging.With().Str("component", "server").Logger(),
	}
}

// Router 返回 chi 路由。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if s.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(s.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/recommendations", func(r chi.Router) {
		r.Get("/", s.handleRecommend)
		r.Get("/random", s.handleRandom)
	})
	r.Post("/profiles/rebuild", s.handleRebuild)
	return r
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	userID, count, ok := parseQuery(w, r)
	if !ok {
		return
	}
	res := s.Recommender.Recommend(r.Context(), userID, count)
	writeResult(w, res)
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	userID, count, ok := parseQuery(w, r)
	if !ok {
		return
	}
	res := s.Recommender.Random(r.Context(), userID, count)
	writeResult(w, res)
}

// rebuildRequest 是 POST /profiles/rebuild 的请求体；UserID 为空时全量重建。
type rebuildRequest struct {
	UserID  string `json:"user_id"`
	Trigger string `json:"trigger"`
}

type rebuildResponse struct {
	Success bool   `json:"success"`
	Rebuilt int    `json:"rebuilt"`
	Trigger string `json:"trigger"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if s.Rebuilder == nil {
		writeJSON(w, http.StatusNotImplemented, rebuildResponse{Error: "profile rebuild not configured"})
		return
	}
	var req rebuildRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, rebuildResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}
	if req.Trigger == "" {
		req.Trigger = profile.TriggerManual
	}
	if !profile.ValidTrigger(req.Trigger) {
		writeJSON(w, http.StatusBadRequest, rebuildResponse{Trigger: req.Trigger, Error: "unknown trigger"})
		return
	}

	log := s.Logger.With().
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Str("trigger", req.Trigger).
		Logger()

	if req.UserID != "" {
		if _, err := s.Rebuilder.Rebuild(r.Context(), req.UserID, req.Trigger); err != nil {
			log.Warn().Err(err).Str("user_id", req.UserID).Msg("profile rebuild failed")
			writeJSON(w, statusFor(err), rebuildResponse{Trigger: req.Trigger, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, rebuildResponse{Success: true, Rebuilt: 1, Trigger: req.Trigger})
		return
	}

	n, err := s.Rebuilder.RebuildAll(r.Context(), req.Trigger)
	if err != nil {
		log.Warn().Err(err).Msg("batch profile rebuild failed")
		writeJSON(w, statusFor(err), rebuildResponse{Trigger: req.Trigger, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{Success: true, Rebuilt: n, Trigger: req.Trigger})
}

func parseQuery(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "null" {
		userID = ""
	}
	count := 0
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":         false,
				"error":           "count must be a non-negative integer",
				"recommendations": []any{},
			})
			return "", 0, false
		}
		count = n
	}
	return userID, count, true
}

// writeResult 失败结果使用 503：只有上游不可达时推荐才会失败。
func writeResult(w http.ResponseWriter, res *engine.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case core.IsNotSupported(err):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
