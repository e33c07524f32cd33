package core

// UnknownLabel 是 topic/subtopic 缺失时的占位标签。
const UnknownLabel = "unknown"

// Article 是目录中的一篇文章（推荐的候选物品）。
//
// Topics/Subtopics 为 nil 表示源数据缺失该字段，向量化时按 UnknownLabel 处理；
// 空切片表示字段存在但没有标签。Keywords 缺失与空等价。
type Article struct {
	ID        string
	Title     string
	Topics    []string
	Subtopics []string
	Keywords  []string

	// 以下字段只用于展示和降级打分规则，不参与向量化
	Abstract string
	Authors  []string
	ReadTime string
}

// PrimaryTopic 返回第一个 topic，没有则返回空串。
func (a *Article) PrimaryTopic() string {
	if a == nil || len(a.Topics) == 0 {
		return ""
	}
	return a.Topics[0]
}

// DisplayName 返回展示名；标题为空时退化为 "Item <id>"。
func (a *Article) DisplayName() string {
	if a != nil && a.Title != "" {
		return a.Title
	}
	id := ""
	if a != nil {
		id = a.ID
	}
	return FallbackName(id)
}

// FallbackName 是名称无法解析时使用的合成名称。
func FallbackName(id string) string {
	return "Item " + id
}
