// Package source 提供物品目录与用户存储的实现：MongoDB、静态内存数据，以及带熔断保护的包装。
package source

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/conv"
)

// 文章展示名依次尝试的字段
var titleFields = []string{"title", "article", "name", "articleName"}

// DecodeArticle 把一条目录文档（Mongo 文档或 JSON 对象）转换为 Article。
//
// topic/subtopic 缺失时保持 nil（向量化时视为 unknown）；单个字符串视为只有一个标签的列表。
// 没有 id 字段时退回 _id。
func DecodeArticle(doc map[string]any) *core.Article {
	a := &core.Article{
		ID:        core.CanonicalID(IDString(doc["id"])),
		Topics:    labels(doc, "topic"),
		Subtopics: labels(doc, "subtopic"),
		Keywords:  labels(doc, "keywords"),
		Authors:   labels(doc, "author"),
	}
	if a.ID == "" {
		a.ID = IDString(doc["_id"])
	}
	for _, f := range titleFields {
		if s, ok := doc[f].(string); ok && s != "" {
			a.Title = s
			break
		}
	}
	if s, ok := doc["abstract"].(string); ok {
		a.Abstract = s
	} else if s, ok := doc["content"].(string); ok {
		a.Abstract = s
	}
	if a.Authors == nil {
		a.Authors = labels(doc, "authors")
	}
	if s, ok := doc["readTime"].(string); ok {
		a.ReadTime = s
	}
	return a
}

// DecodeUser 把一条用户文档转换为 User，用户 ID 取 _id，缺失时取 user_id。
func DecodeUser(doc map[string]any) *core.User {
	id := IDString(doc["_id"])
	if id == "" {
		id = IDString(doc["user_id"])
	}
	return &core.User{
		UserID:    id,
		Likes:     idList(doc["likes"]),
		Favorites: idList(doc["favorites"]),
		Read:      idList(doc["read"]),
		Interests: labels(doc, "interests"),
	}
}

// IDString 把各种形态的 ID（ObjectID、字符串、数值）转换为字符串。
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case primitive.ObjectID:
		return id.Hex()
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	case float64:
		return conv.FormatCell(id)
	default:
		return fmt.Sprint(id)
	}
}

func idList(v any) []string {
	var raw []any
	switch val := v.(type) {
	case nil:
		return nil
	case primitive.A:
		raw = val
	case []any:
		raw = val
	case []string:
		return core.CanonicalIDs(val)
	default:
		raw = []any{val}
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if id := core.CanonicalID(IDString(e)); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// labels 读取标签列表字段；字段不存在返回 nil，空字符串标签被丢弃。
func labels(doc map[string]any, key string) []string {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil
	}
	if a, ok := v.(primitive.A); ok {
		v = []any(a)
	}
	raw := conv.SliceAnyToString(v)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// idFilters 返回按物品 ID 查询目录的候选条件，依次为字符串、整数、ObjectID 形式。
func idFilters(id string) []bson.M {
	id = core.CanonicalID(id)
	filters := []bson.M{{"id": id}}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		filters = append(filters, bson.M{"id": n}, bson.M{"id": float64(n)}, bson.M{"id": id + ".0"})
	}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filters = append(filters, bson.M{"_id": oid})
	}
	return filters
}
