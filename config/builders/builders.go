// Package builders 注册内置 Node 的配置构建器，通过空导入生效：
//
//	import _ "github.com/rushteam/artrec/config/builders"
package builders

import (
	"fmt"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/conv"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/rerank"
)

func init() {
	config.Register("recall.content", BuildContentNode)
	config.Register("recall.fallback", BuildFallbackNode)
	config.Register("filter", BuildFilterNode)
	config.Register("filter.interacted", BuildInteractedNode)
	config.Register("filter.blacklist", BuildBlacklistNode)
	config.Register("rerank.tiebreak", BuildTieBreakNode)
	config.Register("rerank.topn", BuildTopNNode)
}

func BuildContentNode(cfg map[string]any, env *config.Env) (pipeline.Node, error) {
	if env.Profiles == nil {
		return nil, fmt.Errorf("recall.content: profile store not configured")
	}
	node := recall.NewContentRecall(env.Matrix, env.Profiles)
	node.NeutralScore = conv.ConfigGet(cfg, "neutral_score", env.Ranking.NeutralScore)
	return node, nil
}

func BuildFallbackNode(cfg map[string]any, env *config.Env) (pipeline.Node, error) {
	if env.Catalog == nil {
		return nil, fmt.Errorf("recall.fallback: catalog not configured")
	}
	policy := recall.DefaultFallbackPolicy()
	if env.Policy != nil {
		policy = *env.Policy
	}
	policy.AlignInterests = conv.ConfigGet(cfg, "align_interests", policy.AlignInterests)
	f, err := recall.NewFallback(env.Catalog, policy, env.Rand)
	if err != nil {
		return nil, err
	}
	f.Users = env.Users
	return f, nil
}

// BuildFilterNode 组合多个过滤器：
//
//	filters:
//	  - type: interacted
//	  - type: blacklist
//	    item_ids: ["12", "712"]
//	  - type: expr
//	    expr: "item.score < 0.05"
func BuildFilterNode(cfg map[string]any, env *config.Env) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "interacted":
			filters = append(filters, filter.NewInteractedFilter(env.Users))
		case "blacklist":
			ids := conv.SliceAnyToString(filterMap["item_ids"])
			if ids == nil {
				ids = env.Ranking.Blacklist
			}
			filters = append(filters, filter.NewBlacklistFilter(ids))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func BuildInteractedNode(_ map[string]any, env *config.Env) (pipeline.Node, error) {
	return &filter.FilterNode{Filters: []filter.Filter{filter.NewInteractedFilter(env.Users)}}, nil
}

func BuildBlacklistNode(cfg map[string]any, env *config.Env) (pipeline.Node, error) {
	ids := conv.SliceAnyToString(cfg["item_ids"])
	if ids == nil {
		ids = env.Ranking.Blacklist
	}
	return &filter.FilterNode{Filters: []filter.Filter{filter.NewBlacklistFilter(ids)}}, nil
}

func BuildTieBreakNode(cfg map[string]any, env *config.Env) (pipeline.Node, error) {
	if env.Catalog == nil {
		return nil, fmt.Errorf("rerank.tiebreak: catalog not configured")
	}
	return &rerank.TieBreakNode{
		Catalog:     env.Catalog,
		N:           int(conv.ConfigGetInt64(cfg, "n", 0)),
		Widen:       int(conv.ConfigGetInt64(cfg, "widen", int64(env.Ranking.Widen))),
		Concurrency: int(conv.ConfigGetInt64(cfg, "concurrency", 0)),
	}, nil
}

func BuildTopNNode(cfg map[string]any, _ *config.Env) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}
