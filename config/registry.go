package config

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/recall"
)

// 使用配置驱动时，需在入口处 import _ "github.com/rushteam/artrec/config/builders"
// 以触发内置 Node（recall.content、recall.fallback、filter.interacted、rerank.tiebreak 等）的 init 注册。

// Env 是构建 Node 时可用的运行时依赖。
type Env struct {
	Matrix   *feature.Matrix
	Catalog  core.CatalogSource
	Users    core.UserStore
	Profiles core.ProfileStore

	// Policy 是降级抽样的打分策略，nil 时使用默认策略
	Policy *recall.FallbackPolicy
	// Rand 为降级抽样的随机源，nil 时随机播种
	Rand rand.Source

	Ranking RankingConfig
}

// NodeBuilder 根据节点配置与运行时依赖构建 Node。
// 各组件在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type NodeBuilder func(cfg map[string]any, env *Env) (pipeline.Node, error)

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回绑定了 env 的 NodeFactory，包含所有通过 Register 注册的 Node 类型。
func DefaultFactory(env *Env) *pipeline.NodeFactory {
	if env == nil {
		env = &Env{}
	}
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, func(cfg map[string]any) (pipeline.Node, error) {
			return builder(cfg, env)
		})
	}
	return f
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := SupportedTypes()
	for _, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			continue
		}
		defaultBuildersMu.RLock()
		_, ok := defaultBuilders[nc.Type]
		defaultBuildersMu.RUnlock()
		if !ok {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, supported)
		}
	}
	return nil
}

// BuildPipeline 加载 YAML 并用 env 构建 Pipeline。
func BuildPipeline(path string, env *Env) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return nil, err
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(DefaultFactory(env))
}
