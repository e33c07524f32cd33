// Package artrec 是基于内容的文章推荐引擎。
//
// 设计要点：
// - 物品按 topic / subtopic / keyword 多热编码为矩阵快照，用户画像是交互物品向量的加权平均
// - Pipeline-first: 个性化排序由 Node 串联（Recall → Filter → ReRank），可用 YAML 配置
// - 没有画像或候选时降级为按兴趣打分的随机抽样，任何请求都返回结构完整的结果
package artrec

import "github.com/rushteam/artrec/pipeline"

// 轻量 facade：便于直接 import "github.com/rushteam/artrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
