// Package ontology 在课程主题（course）与文章话题（article）两套标签空间之间做语义对齐。
package ontology

import (
	"sort"
	"strings"
)

// Domain 是标签所属的命名空间。
type Domain string

const (
	DomainCourse  Domain = "course"
	DomainArticle Domain = "article"
)

// 相似度分值，按优先级从高到低匹配
const (
	ScoreExact     = 1.0
	ScoreMapped    = 0.8
	ScoreSubstring = 0.6
	ScoreNone      = 0.0
)

// defaultCourseToArticle 是内置的课程主题 → 文章话题字典。
var defaultCourseToArticle = map[string][]string{
	// 编程与开发
	"programming":             {"programming", "software", "development", "coding"},
	"web_development":         {"web", "frontend", "backend", "javascript", "html", "css"},
	"mobile_development":      {"mobile", "android", "ios", "react_native", "flutter"},
	"data_science":            {"data", "analytics", "machine_learning", "ai", "statistics"},
	"artificial_intelligence": {"ai", "machine_learning", "deep_learning", "neural_networks"},

	// 商业与管理
	"business":           {"business", "management", "strategy", "entrepreneurship"},
	"marketing":          {"marketing", "digital_marketing", "seo", "social_media"},
	"finance":            {"finance", "investment", "accounting", "economics"},
	"project_management": {"project", "management", "agile", "scrum"},

	// 设计与创意
	"design":      {"design", "ui", "ux", "graphic_design", "visual"},
	"photography": {"photography", "photo", "visual_arts"},
	"video":       {"video", "multimedia", "editing", "production"},

	// 语言与沟通
	"language": {"language", "communication", "writing", "linguistics"},
	"english":  {"english", "language", "communication"},

	// 健康与生活
	"health":    {"health", "wellness", "fitness", "nutrition"},
	"lifestyle": {"lifestyle", "personal_development", "productivity"},

	// 科学与技术
	"technology": {"technology", "tech", "innovation", "digital"},
	"science":    {"science", "research", "academic", "scientific"},
}

// Mapper 是双向映射字典。构建后只读，可被并发使用。
type Mapper struct {
	courseToArticle map[string][]string
	articleToCourse map[string][]string
}

// NewMapper 使用内置字典创建 Mapper。
func NewMapper() *Mapper {
	return NewMapperWith(defaultCourseToArticle)
}

// NewMapperWith 使用自定义字典创建 Mapper；key 与 value 都会被规范化。
// 反向映射中，一个文章话题对应的课程主题按字母序排列。
func NewMapperWith(courseToArticle map[string][]string) *Mapper {
	m := &Mapper{
		courseToArticle: make(map[string][]string, len(courseToArticle)),
		articleToCourse: make(map[string][]string),
	}
	themes := make([]string, 0, len(courseToArticle))
	for theme := range courseToArticle {
		themes = append(themes, theme)
	}
	sort.Strings(themes)

	for _, theme := range themes {
		key := Normalize(theme)
		topics := make([]string, 0, len(courseToArticle[theme]))
		for _, t := range courseToArticle[theme] {
			topic := Normalize(t)
			topics = append(topics, topic)
			if !contains(m.articleToCourse[topic], key) {
				m.articleToCourse[topic] = append(m.articleToCourse[topic], key)
			}
		}
		m.courseToArticle[key] = topics
	}
	return m
}

// Normalize 小写并去掉首尾空白。
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// CourseToArticleTopics 把课程主题映射为文章话题。
// 未知主题返回只包含规范化输入本身的切片，保证调用方至少有一个标签可用。
func (m *Mapper) CourseToArticleTopics(theme string) []string {
	return lookup(m.courseToArticle, Normalize(theme))
}

// ArticleTopicToCourseThemes 把文章话题映射为课程主题，未知时同上。
func (m *Mapper) ArticleTopicToCourseThemes(topic string) []string {
	return lookup(m.articleToCourse, Normalize(topic))
}

// Similarity 计算两个词的语义相似度，取值 [0,1]，按以下顺序第一条命中即返回：
//
//	规范化后完全相同               1.0
//	跨域字典命中（term1 所在域 → term2 所在域） 0.8
//	任一方向子串包含               0.6
//	其他                           0.0
//
// 跨域规则有方向：Similarity(a, b, course, article) 与 Similarity(b, a, article, course) 不一定相等。
func (m *Mapper) Similarity(term1, term2 string, domain1, domain2 Domain) float64 {
	t1, t2 := Normalize(term1), Normalize(term2)
	if t1 == t2 {
		return ScoreExact
	}

	switch {
	case domain1 == DomainCourse && domain2 == DomainArticle:
		if contains(m.CourseToArticleTopics(t1), t2) {
			return ScoreMapped
		}
	case domain1 == DomainArticle && domain2 == DomainCourse:
		if contains(m.ArticleTopicToCourseThemes(t1), t2) {
			return ScoreMapped
		}
	}

	// 空串是任何词的子串
	if strings.Contains(t2, t1) || strings.Contains(t1, t2) {
		return ScoreSubstring
	}
	return ScoreNone
}

// AlignInterests 把用户兴趣映射到目标域词表，返回去重后的并集（按字母序）。
// 目标域既不是 course 也不是 article 时，只做规范化。
func (m *Mapper) AlignInterests(interests []string, target Domain) []string {
	set := make(map[string]struct{})
	for _, interest := range interests {
		var mapped []string
		switch target {
		case DomainArticle:
			mapped = m.CourseToArticleTopics(interest)
		case DomainCourse:
			mapped = m.ArticleTopicToCourseThemes(interest)
		default:
			mapped = []string{Normalize(interest)}
		}
		for _, t := range mapped {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func lookup(dict map[string][]string, key string) []string {
	if v, ok := dict[key]; ok {
		out := make([]string, len(v))
		copy(out, v)
		return out
	}
	return []string{key}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
