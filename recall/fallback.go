package recall

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/ontology"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/conv"
	"github.com/rushteam/artrec/pkg/dsl"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/utils"
)

// DefaultFallbackCount 是未指定数量时的降级条数
const DefaultFallbackCount = 6

// 降级打分命中类型
const (
	MatchTopic       = "topic"
	MatchSubtopic    = "subtopic"
	MatchNone        = "none"
	MatchNoInterests = "no_interests"
)

// ScoreRange 是闭区间 [Min, Max] 的整数分数范围。
type ScoreRange struct {
	Min int `koanf:"min" yaml:"min" json:"min"`
	Max int `koanf:"max" yaml:"max" json:"max"`
}

// BonusRule 是一条附加打分规则：Expr 为 CEL 布尔表达式，命中时加 Bonus 分。
//
// 表达式可访问 item.meta 中的文章字段（title, topics, subtopics, keywords, abstract, authors, read_time）
// 以及 rctx.interests。
type BonusRule struct {
	Name  string  `koanf:"name" yaml:"name" json:"name"`
	Expr  string  `koanf:"expr" yaml:"expr" json:"expr"`
	Bonus float64 `koanf:"bonus" yaml:"bonus" json:"bonus"`
}

// FallbackPolicy 是降级打分策略。
type FallbackPolicy struct {
	TopicMatch    ScoreRange `koanf:"topic_match" yaml:"topic_match" json:"topic_match"`
	SubtopicMatch ScoreRange `koanf:"subtopic_match" yaml:"subtopic_match" json:"subtopic_match"`
	NoMatch       ScoreRange `koanf:"no_match" yaml:"no_match" json:"no_match"`
	NoInterests   ScoreRange `koanf:"no_interests" yaml:"no_interests" json:"no_interests"`

	Bonuses []BonusRule `koanf:"bonuses" yaml:"bonuses" json:"bonuses"`

	// AlignInterests 为 true 时，先把兴趣经 ontology 映射到文章 topic 词表再匹配
	AlignInterests bool `koanf:"align_interests" yaml:"align_interests" json:"align_interests"`
}

// DefaultFallbackPolicy 返回默认策略：topic 命中 75-95，subtopic 命中 65-85，其余 30-70。
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		TopicMatch:    ScoreRange{Min: 75, Max: 95},
		SubtopicMatch: ScoreRange{Min: 65, Max: 85},
		NoMatch:       ScoreRange{Min: 30, Max: 70},
		NoInterests:   ScoreRange{Min: 30, Max: 70},
	}
}

// Validate 检查分数范围。
func (p FallbackPolicy) Validate() error {
	ranges := map[string]ScoreRange{
		"topic_match":    p.TopicMatch,
		"subtopic_match": p.SubtopicMatch,
		"no_match":       p.NoMatch,
		"no_interests":   p.NoInterests,
	}
	for name, r := range ranges {
		if r.Min > r.Max {
			return fmt.Errorf("fallback.%s: min %d > max %d", name, r.Min, r.Max)
		}
	}
	for _, b := range p.Bonuses {
		if b.Expr == "" {
			return fmt.Errorf("fallback bonus %q: empty expression", b.Name)
		}
	}
	return nil
}

type bonus struct {
	rule BonusRule
	prog *dsl.Program
}

// Fallback 是降级召回：从全量目录中无放回均匀抽样，并按兴趣命中情况给出启发式分数。
//
// 不依赖画像与物品矩阵，唯一的失败来源是目录不可达。
// 随机源可注入，测试时使用固定种子。Fallback 同时实现了 Source 和 Node 接口。
type Fallback struct {
	Catalog core.CatalogSource
	// Users 可选：rctx 中没有用户时用于读取兴趣
	Users  core.UserStore
	Policy FallbackPolicy
	Mapper *ontology.Mapper
	Logger zerolog.Logger

	bonuses []bonus
	mu      sync.Mutex
	rng     *rand.Rand
}

// NewFallback 创建降级召回；src 为 nil 时使用随机种子。
func NewFallback(catalog core.CatalogSource, policy FallbackPolicy, src rand.Source) (*Fallback, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	f := &Fallback{
		Catalog: catalog,
		Policy:  policy,
		Mapper:  ontology.NewMapper(),
		Logger:  logging.With().Str("component", "recall.fallback").Logger(),
	}
	for _, rule := range policy.Bonuses {
		prog, err := dsl.Compile(rule.Expr)
		if err != nil {
			return nil, fmt.Errorf("fallback bonus %q: %w", rule.Name, err)
		}
		f.bonuses = append(f.bonuses, bonus{rule: rule, prog: prog})
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	f.rng = rand.New(src)
	return f, nil
}

func (f *Fallback) Name() string        { return "recall.fallback" }
func (f *Fallback) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，数量取 rctx.Params["count"]
func (f *Fallback) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return f.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (f *Fallback) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil {
		rctx = &core.RecommendContext{}
	}
	count := DefaultFallbackCount
	if v, ok := rctx.Params["count"]; ok {
		if n, ok := conv.ToInt(v); ok && n > 0 {
			count = n
		}
	}
	if rctx.User == nil && rctx.UserID != "" && f.Users != nil {
		u, err := f.Users.GetUser(ctx, rctx.UserID)
		if err != nil {
			// 兴趣只影响打分，读取失败按无兴趣处理
			f.Logger.Warn().Err(err).Str("user_id", rctx.UserID).Msg("load user interests failed")
		} else {
			rctx.User = u
		}
	}
	return f.Sample(ctx, rctx, count)
}

// Sample 抽取 count 个物品并打分，结果按分数降序。目录为空时返回空列表。
func (f *Fallback) Sample(ctx context.Context, rctx *core.RecommendContext, count int) ([]*core.Item, error) {
	if count <= 0 {
		return nil, nil
	}
	articles, err := f.Catalog.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	picked := f.pick(articles, count)
	matcher := f.newMatcher(rctx.Interests())

	out := make([]*core.Item, 0, len(picked))
	for _, a := range picked {
		match, topic := matcher.match(a)
		it := articleItem(a)
		it.Score = float64(f.draw(f.rangeFor(match)))
		for _, b := range f.bonuses {
			ok, err := b.prog.Match(it, rctx)
			if err != nil {
				f.Logger.Debug().Err(err).Str("rule", b.rule.Name).Msg("bonus rule failed")
				continue
			}
			if ok {
				it.Score += b.rule.Bonus
				it.PutLabel("fallback_bonus", utils.Label{Value: b.rule.Name, Source: "fallback"})
			}
		}
		it.Score = clamp(it.Score, 0, 100)
		it.PutLabel("recall_source", utils.Label{Value: "fallback", Source: "recall"})
		it.PutLabel("fallback_match", utils.Label{Value: match, Source: "fallback"})
		it.PutLabel("reason", utils.Label{Value: Reason(topic, it.Score), Source: "fallback"})
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// pick 无放回均匀抽样（部分 Fisher-Yates）。
func (f *Fallback) pick(articles []*core.Article, count int) []*core.Article {
	n := len(articles)
	if count > n {
		count = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	f.mu.Lock()
	for i := 0; i < count; i++ {
		j := i + f.rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	f.mu.Unlock()

	out := make([]*core.Article, count)
	for i := 0; i < count; i++ {
		out[i] = articles[idx[i]]
	}
	return out
}

func (f *Fallback) draw(r ScoreRange) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Min + f.rng.IntN(r.Max-r.Min+1)
}

func (f *Fallback) rangeFor(match string) ScoreRange {
	switch match {
	case MatchTopic:
		return f.Policy.TopicMatch
	case MatchSubtopic:
		return f.Policy.SubtopicMatch
	case MatchNone:
		return f.Policy.NoMatch
	default:
		return f.Policy.NoInterests
	}
}

type interestMatcher struct {
	exact   map[string]struct{}
	aligned map[string]struct{}
}

func (f *Fallback) newMatcher(interests []string) *interestMatcher {
	m := &interestMatcher{exact: make(map[string]struct{}, len(interests))}
	for _, in := range interests {
		m.exact[in] = struct{}{}
	}
	if f.Policy.AlignInterests && f.Mapper != nil && len(interests) > 0 {
		m.aligned = make(map[string]struct{})
		for _, t := range f.Mapper.AlignInterests(interests, ontology.DomainArticle) {
			m.aligned[t] = struct{}{}
		}
	}
	return m
}

func (m *interestMatcher) has(label string) bool {
	if _, ok := m.exact[label]; ok {
		return true
	}
	if m.aligned != nil {
		_, ok := m.aligned[ontology.Normalize(label)]
		return ok
	}
	return false
}

// match 返回命中类型以及用于推荐理由的 topic。
func (m *interestMatcher) match(a *core.Article) (string, string) {
	topic := a.PrimaryTopic()
	if len(m.exact) == 0 {
		return MatchNoInterests, topic
	}
	for _, t := range a.Topics {
		if m.has(t) {
			return MatchTopic, t
		}
	}
	for _, s := range a.Subtopics {
		if m.has(s) {
			return MatchSubtopic, topic
		}
	}
	return MatchNone, topic
}

// Reason 根据分数生成推荐理由。
func Reason(topic string, score float64) string {
	switch {
	case score >= 80:
		return "Matches your interest in " + topic
	case score >= 60:
		return "Might interest you: " + topic
	default:
		return "Discover new topics"
	}
}

// articleItem 把文章转换为 Item，文章字段放进 Meta 供规则与展示使用。
func articleItem(a *core.Article) *core.Item {
	it := core.NewItem(a.ID)
	it.Name = a.DisplayName()
	it.Meta["title"] = a.Title
	it.Meta["topic"] = a.PrimaryTopic()
	it.Meta["topics"] = nonNil(a.Topics)
	it.Meta["subtopics"] = nonNil(a.Subtopics)
	it.Meta["keywords"] = nonNil(a.Keywords)
	it.Meta["abstract"] = a.Abstract
	it.Meta["authors"] = nonNil(a.Authors)
	it.Meta["read_time"] = a.ReadTime
	return it
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
