package recall

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/utils"
)

// DefaultNeutralScore 是相似度无法定义（NaN）时给出的中性分。
const DefaultNeutralScore = 0.5

// ContentRecall 是基于内容的召回源（Content-Based Recommendation）。
//
// 用户画像与物品矩阵处于同一列空间，对每一行计算余弦相似度并按相似度降序输出全部物品。
// 已交互物品的排除、名称解析与截断由后续的 filter / rerank 节点完成。
//
// 画像优先取 rctx.Profile，没有时从 Profiles 读取；画像或矩阵缺失时返回空结果（不是错误），
// 由调用方走降级路径。
type ContentRecall struct {
	Matrix   *feature.Matrix
	Profiles core.ProfileStore

	// NeutralScore 为 0 时使用 DefaultNeutralScore
	NeutralScore float64

	Logger zerolog.Logger
}

// NewContentRecall 创建内容召回节点。
func NewContentRecall(m *feature.Matrix, profiles core.ProfileStore) *ContentRecall {
	return &ContentRecall{
		Matrix:   m,
		Profiles: profiles,
		Logger:   logging.With().Str("component", "recall.content").Logger(),
	}
}

func (r *ContentRecall) Name() string        { return "recall.content" }
func (r *ContentRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *ContentRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *ContentRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil {
		return nil, nil
	}
	if r.Matrix.Len() == 0 || r.Matrix.Width() == 0 {
		r.Logger.Debug().Msg("item matrix missing, skip content recall")
		return nil, nil
	}

	p, err := r.profile(ctx, rctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		r.Logger.Debug().Str("user_id", rctx.UserID).Msg("profile not found")
		return nil, nil
	}

	vec := p.Project(r.Matrix.Columns())
	vecNorm := norm(vec)
	neutral := r.NeutralScore
	if neutral == 0 {
		neutral = DefaultNeutralScore
	}

	out := make([]*core.Item, 0, r.Matrix.Len())
	for i := 0; i < r.Matrix.Len(); i++ {
		id, row := r.Matrix.At(i)
		sim := cosine(vec, vecNorm, row)
		if math.IsNaN(sim) {
			sim = neutral
		}
		it := core.NewItem(id)
		it.Score = sim
		it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
		it.PutLabel("recall_metric", utils.Label{Value: "cosine", Source: "recall"})
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (r *ContentRecall) profile(ctx context.Context, rctx *core.RecommendContext) (*core.ProfileVector, error) {
	if rctx.Profile != nil {
		return rctx.Profile, nil
	}
	if r.Profiles == nil || rctx.UserID == "" {
		return nil, nil
	}
	p, err := r.Profiles.GetProfile(ctx, rctx.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile %s: %w", rctx.UserID, err)
	}
	rctx.Profile = p
	return p, nil
}

// cosine 计算余弦相似度；任一向量范数为 0 时返回 0。
func cosine(a []float64, aNorm float64, b []float64) float64 {
	if aNorm == 0 {
		return 0
	}
	var dot, bb float64
	for i := range a {
		dot += a[i] * b[i]
		bb += b[i] * b[i]
	}
	if bb == 0 {
		return 0
	}
	return dot / (aNorm * math.Sqrt(bb))
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
