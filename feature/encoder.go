package feature

import (
	"sort"

	"github.com/rushteam/artrec/core"
)

// Vocabulary 是每个标签类别的有序去重词表，决定矩阵的列顺序。
// 词表在拟合时确定，之后遇到的新标签不会扩展列。
type Vocabulary struct {
	Topics    []string
	Subtopics []string
	Keywords  []string
}

// Columns 返回带前缀的列名：topic 列、subtopic 列、keyword 列依次拼接。
func (v *Vocabulary) Columns() []string {
	cols := make([]string, 0, v.Size())
	for _, t := range v.Topics {
		cols = append(cols, PrefixTopic+t)
	}
	for _, s := range v.Subtopics {
		cols = append(cols, PrefixSubtopic+s)
	}
	for _, k := range v.Keywords {
		cols = append(cols, PrefixKeyword+k)
	}
	return cols
}

// Size 返回总列数。
func (v *Vocabulary) Size() int {
	return len(v.Topics) + len(v.Subtopics) + len(v.Keywords)
}

// FitVocabulary 从一批文章中收集各类别的全部标签，排序去重。
func FitVocabulary(articles []*core.Article) *Vocabulary {
	topics := make(map[string]struct{})
	subtopics := make(map[string]struct{})
	keywords := make(map[string]struct{})
	for _, a := range articles {
		if a == nil {
			continue
		}
		collect(topics, topicLabels(a))
		collect(subtopics, subtopicLabels(a))
		collect(keywords, a.Keywords)
	}
	return &Vocabulary{
		Topics:    sortedKeys(topics),
		Subtopics: sortedKeys(subtopics),
		Keywords:  sortedKeys(keywords),
	}
}

// MultiHotEncoder 多热编码：每个出现的标签对应列置 1，其余为 0。
// 与 One-Hot 的区别是同一类别可以同时有多个 1。
type MultiHotEncoder struct {
	vocab     *Vocabulary
	topics    map[string]int
	subtopics map[string]int
	keywords  map[string]int
}

// NewMultiHotEncoder 基于已拟合的词表创建编码器。
func NewMultiHotEncoder(vocab *Vocabulary) *MultiHotEncoder {
	e := &MultiHotEncoder{
		vocab:     vocab,
		topics:    make(map[string]int, len(vocab.Topics)),
		subtopics: make(map[string]int, len(vocab.Subtopics)),
		keywords:  make(map[string]int, len(vocab.Keywords)),
	}
	offset := 0
	for i, t := range vocab.Topics {
		e.topics[t] = offset + i
	}
	offset += len(vocab.Topics)
	for i, s := range vocab.Subtopics {
		e.subtopics[s] = offset + i
	}
	offset += len(vocab.Subtopics)
	for i, k := range vocab.Keywords {
		e.keywords[k] = offset + i
	}
	return e
}

// Vocabulary 返回编码器使用的词表。
func (e *MultiHotEncoder) Vocabulary() *Vocabulary {
	return e.vocab
}

// Encode 把一篇文章编码为多热向量；词表外的标签被忽略。
func (e *MultiHotEncoder) Encode(a *core.Article) []float64 {
	row := make([]float64, e.vocab.Size())
	if a == nil {
		return row
	}
	setHot(row, e.topics, topicLabels(a))
	setHot(row, e.subtopics, subtopicLabels(a))
	setHot(row, e.keywords, a.Keywords)
	return row
}

// Vectorize 对一批文章拟合词表并生成物品矩阵。
// 这是对完整快照的纯批处理变换；同一批输入多次调用结果完全一致。
func Vectorize(articles []*core.Article) (*Matrix, *Vocabulary) {
	vocab := FitVocabulary(articles)
	enc := NewMultiHotEncoder(vocab)
	m := NewMatrix(vocab.Columns())
	for _, a := range articles {
		if a == nil {
			continue
		}
		// 空 ID 与重复 ID 直接跳过，重复时保留第一次出现
		_, _ = m.Add(a.ID, enc.Encode(a))
	}
	return m, vocab
}

// topicLabels 缺失的 topic 视为 "unknown"
func topicLabels(a *core.Article) []string {
	if a.Topics == nil {
		return []string{core.UnknownLabel}
	}
	return a.Topics
}

// subtopicLabels 缺失的 subtopic 视为 "unknown"
func subtopicLabels(a *core.Article) []string {
	if a.Subtopics == nil {
		return []string{core.UnknownLabel}
	}
	return a.Subtopics
}

func collect(set map[string]struct{}, labels []string) {
	for _, l := range labels {
		if l == "" {
			continue
		}
		set[l] = struct{}{}
	}
}

func setHot(row []float64, idx map[string]int, labels []string) {
	for _, l := range labels {
		if i, ok := idx[l]; ok {
			row[i] = 1
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
