package core

import "strings"

// CanonicalID 把物品 ID 统一成一种可比较的字符串形式。
//
// 历史数据里的数值 ID 经过 CSV/浮点存储后会带上 ".0" 后缀（例如 "712.0"、"712.00"），
// 这里去掉全零的小数部分，得到 "712"；其余 ID（ObjectID、slug 等）只做首尾空白裁剪。
// 所有入口（向量化、画像构建、已交互排除、名称解析）都必须使用此函数。
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	dot := strings.IndexByte(id, '.')
	if dot <= 0 || dot == len(id)-1 {
		return id
	}
	intPart, frac := id[:dot], id[dot+1:]
	if !isInteger(intPart) {
		return id
	}
	for i := 0; i < len(frac); i++ {
		if frac[i] != '0' {
			return id
		}
	}
	return intPart
}

// CanonicalIDs 对一组 ID 做规范化，跳过空 ID，保持原有顺序（不去重）。
func CanonicalIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		c := CanonicalID(id)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
