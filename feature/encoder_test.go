package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
)

func sampleArticles() []*core.Article {
	return []*core.Article{
		{ID: "1", Topics: []string{"ai", "data"}, Subtopics: []string{"nlp"}, Keywords: []string{"bert", "ai"}},
		{ID: "2.0", Topics: []string{"web"}, Subtopics: nil, Keywords: nil},
		{ID: "3", Topics: nil, Subtopics: []string{"css"}, Keywords: []string{"flexbox"}},
	}
}

func TestFitVocabulary(t *testing.T) {
	v := FitVocabulary(sampleArticles())

	assert.Equal(t, []string{"ai", "data", "unknown", "web"}, v.Topics)
	assert.Equal(t, []string{"css", "nlp", "unknown"}, v.Subtopics)
	assert.Equal(t, []string{"ai", "bert", "flexbox"}, v.Keywords)
	assert.Equal(t, 10, v.Size())
	assert.Equal(t, []string{
		"topic_ai", "topic_data", "topic_unknown", "topic_web",
		"subtopic_css", "subtopic_nlp", "subtopic_unknown",
		"keyword_ai", "keyword_bert", "keyword_flexbox",
	}, v.Columns())
}

func TestVectorize(t *testing.T) {
	m, vocab := Vectorize(sampleArticles())
	require.Equal(t, 3, m.Len())
	require.Equal(t, vocab.Size(), m.Width())

	row, ok := m.Row("1")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1, 0, 0, 0, 1, 0, 1, 1, 0}, row)

	// "2.0" 被规范化为 "2"，缺失的 subtopic 记为 unknown
	row, ok = m.Row("2")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 0, 1, 0, 0, 0}, row)

	row, ok = m.Row("3.0")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 1, 0, 1, 0, 0, 0, 0, 1}, row)
}

func TestVectorizeHotCountMatchesLabels(t *testing.T) {
	articles := sampleArticles()
	m, vocab := Vectorize(articles)
	for _, a := range articles {
		row, ok := m.Row(a.ID)
		require.True(t, ok)
		var hot float64
		for _, v := range row {
			hot += v
		}
		want := len(distinct(topicLabels(a))) + len(distinct(subtopicLabels(a))) + len(distinct(a.Keywords))
		assert.Equal(t, float64(want), hot, "article %s", a.ID)
	}
	assert.Equal(t, 4, len(vocab.Topics))
}

func TestVectorizeIdempotent(t *testing.T) {
	m1, _ := Vectorize(sampleArticles())
	m2, _ := Vectorize(sampleArticles())
	assert.Equal(t, m1.Columns(), m2.Columns())
	assert.Equal(t, m1.IDs(), m2.IDs())
	for _, id := range m1.IDs() {
		r1, _ := m1.Row(id)
		r2, _ := m2.Row(id)
		assert.Equal(t, r1, r2)
	}
}

func TestVectorizeSkipsDuplicatesAndEmptyIDs(t *testing.T) {
	articles := []*core.Article{
		{ID: "1", Topics: []string{"a"}},
		{ID: "1.0", Topics: []string{"b"}},
		{ID: " ", Topics: []string{"c"}},
		nil,
	}
	m, vocab := Vectorize(articles)
	assert.Equal(t, 1, m.Len())
	row, _ := m.Row("1")
	assert.Equal(t, 1.0, row[m.ColumnIndex("topic_a")])
	assert.Equal(t, 0.0, row[m.ColumnIndex("topic_b")])
	// 词表仍然包含整批标签
	assert.Equal(t, []string{"a", "b", "c"}, vocab.Topics)
}

func TestEncoderIgnoresLabelsOutsideVocabulary(t *testing.T) {
	enc := NewMultiHotEncoder(FitVocabulary(sampleArticles()))
	row := enc.Encode(&core.Article{ID: "9", Topics: []string{"ai", "quantum"}, Subtopics: []string{}, Keywords: []string{"new"}})
	assert.Len(t, row, 10)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, row)
}

func TestTopicColumns(t *testing.T) {
	m := NewMatrix([]string{"topic_AI", "subtopic_ai", "topic_web"})
	assert.Equal(t, map[string][]int{"topic_ai": {0}, "topic_web": {2}}, m.TopicColumns())

	m = NewMatrix([]string{"topic_AI", "topic_ai", "topic_web"})
	assert.Equal(t, map[string][]int{"topic_ai": {0, 1}, "topic_web": {2}}, m.TopicColumns())
}

func distinct(labels []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, l := range labels {
		out[l] = struct{}{}
	}
	return out
}
