package core

import "time"

// User 是用户在某一时刻的交互快照。
//
// Likes/Favorites/Read 允许重复、允许相互重叠：画像构建时每次出现都独立计权。
type User struct {
	UserID    string
	Likes     []string
	Favorites []string
	Read      []string

	// Interests 是用户填写的原始兴趣文本
	Interests []string
}

// InteractedIDs 返回去重后的已交互物品 ID（规范化后），用于排序阶段排除。
func (u *User) InteractedIDs() map[string]struct{} {
	out := make(map[string]struct{})
	if u == nil {
		return out
	}
	for _, list := range [][]string{u.Likes, u.Favorites, u.Read} {
		for _, id := range CanonicalIDs(list) {
			out[id] = struct{}{}
		}
	}
	return out
}

// ProfileVector 是用户画像向量，列空间与物品矩阵一致。
// Columns 随向量一起持久化，以便矩阵重建后按列名对齐。
type ProfileVector struct {
	UserID    string    `json:"user_id"`
	Columns   []string  `json:"columns"`
	Values    []float64 `json:"values"`
	Trigger   string    `json:"trigger,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project 把画像投影到给定的列顺序上，缺失列补 0。
// 列完全一致时直接返回 Values 的副本。
func (p *ProfileVector) Project(columns []string) []float64 {
	out := make([]float64, len(columns))
	if p == nil {
		return out
	}
	if sameColumns(p.Columns, columns) && len(p.Values) == len(columns) {
		copy(out, p.Values)
		return out
	}
	idx := make(map[string]int, len(p.Columns))
	for i, c := range p.Columns {
		idx[c] = i
	}
	for i, c := range columns {
		if j, ok := idx[c]; ok && j < len(p.Values) {
			out[i] = p.Values[j]
		}
	}
	return out
}

// IsZero 判断画像是否为零向量。
func (p *ProfileVector) IsZero() bool {
	if p == nil {
		return true
	}
	for _, v := range p.Values {
		if v != 0 {
			return false
		}
	}
	return true
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
