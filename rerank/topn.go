package rerank

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/conv"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个物品。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        recall.NewContentRecall(m, profiles), // 相似度召回
//	        &rerank.TopNNode{N: 20},              // 截取 Top 20
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量（Top N）
	// N <= 0 时取 rctx.Params["count"]，仍然没有则不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := resolveCount(n.N, rctx)
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}

// resolveCount 返回 n，n <= 0 时取请求参数 count。
func resolveCount(n int, rctx *core.RecommendContext) int {
	if n > 0 {
		return n
	}
	if rctx == nil {
		return 0
	}
	if c, ok := conv.ToInt(rctx.Params["count"]); ok {
		return c
	}
	return 0
}
