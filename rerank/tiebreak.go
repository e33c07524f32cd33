package rerank

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
)

// DefaultWiden 是解析名称前的候选放大倍数
const DefaultWiden = 3

// TieBreakNode 对已按分数降序的候选做确定性收尾：
//
//  1. 取前 Widen×N 个候选（名称解析是外部调用，只对窗口内的物品做）；
//  2. 通过 Catalog 解析展示名，解析失败时使用 "Item <id>"；
//  3. 按 (分数降序, 名称升序) 重新排序后截断到 N。
type TieBreakNode struct {
	Catalog core.CatalogSource

	// N 为 0 时取 rctx.Params["count"]
	N int
	// Widen 为 0 时使用 DefaultWiden
	Widen int
	// Concurrency 是并发解析名称的上限，<=0 时为 8
	Concurrency int
}

func (n *TieBreakNode) Name() string {
	return "rerank.tiebreak"
}

func (n *TieBreakNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TieBreakNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	limit := resolveCount(n.N, rctx)
	if limit <= 0 {
		limit = len(items)
	}
	widen := n.Widen
	if widen <= 0 {
		widen = DefaultWiden
	}

	window := limit * widen
	if window > len(items) || window <= 0 {
		window = len(items)
	}
	candidates := make([]*core.Item, window)
	copy(candidates, items[:window])

	n.resolveNames(ctx, candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Name < candidates[j].Name
	})
	return (&TopNNode{N: limit}).Process(ctx, rctx, candidates)
}

func (n *TieBreakNode) resolveNames(ctx context.Context, items []*core.Item) {
	concurrency := n.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, it := range items {
		if it.Name != "" {
			continue
		}
		eg.Go(func() error {
			it.Name = n.resolve(egCtx, it.ID)
			return nil
		})
	}
	_ = eg.Wait()
}

func (n *TieBreakNode) resolve(ctx context.Context, id string) string {
	if n.Catalog == nil {
		return core.FallbackName(id)
	}
	name, err := n.Catalog.ResolveName(ctx, id)
	if err != nil || name == "" {
		if err != nil && !core.IsNotFound(err) {
			logging.Warn().Err(err).Str("item_id", id).Msg("resolve name failed")
		}
		return core.FallbackName(id)
	}
	return name
}
