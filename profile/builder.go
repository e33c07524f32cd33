// Package profile 根据用户交互历史与兴趣构建画像向量，并负责画像的重建与持久化。
package profile

import (
	"strings"
	"time"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
)

// Builder 把一个用户的 (likes, favorites, read, interests) 聚合为与物品矩阵同宽的向量。
// Builder 无状态，可并发使用。
type Builder struct {
	Weights core.InteractionWeights
}

// NewBuilder 创建 Builder；weights 为零值时使用默认权重。
func NewBuilder(weights core.InteractionWeights) *Builder {
	if weights == (core.InteractionWeights{}) {
		weights = core.DefaultInteractionWeights()
	}
	return &Builder{Weights: weights}
}

// Build 计算画像向量。
//
//  1. 交互加权平均：每个在矩阵中的交互物品累加 weight × 物品向量，同时累加 weight；
//     同一个 ID 出现多次就累加多次，矩阵中找不到的 ID 直接跳过。
//  2. 兴趣向量：兴趣文本（小写、去空白）与小写后的 "topic_<label>" 列名相同时该列置 1（大小写变体都置 1）。
//  3. 两者都有时取算术平均；只有一个时取那一个；都没有时为零向量。
func (b *Builder) Build(u *core.User, m *feature.Matrix) []float64 {
	width := m.Width()
	out := make([]float64, width)
	if u == nil || width == 0 {
		return out
	}

	weighted := make([]float64, width)
	var totalWeight float64
	accumulate := func(ids []string, w float64) {
		for _, id := range ids {
			row, ok := m.Row(id)
			if !ok {
				continue
			}
			for i, v := range row {
				weighted[i] += v * w
			}
			totalWeight += w
		}
	}
	accumulate(u.Likes, b.Weights.Like)
	accumulate(u.Favorites, b.Weights.Favorite)
	accumulate(u.Read, b.Weights.Read)

	interest, hasInterest := InterestVector(u.Interests, m)
	hasInteractions := totalWeight > 0

	switch {
	case hasInteractions && hasInterest:
		for i := range out {
			out[i] = (weighted[i]/totalWeight + interest[i]) / 2
		}
	case hasInteractions:
		for i := range out {
			out[i] = weighted[i] / totalWeight
		}
	case hasInterest:
		copy(out, interest)
	}
	return out
}

// BuildProfile 计算画像并附带列名与触发来源。
func (b *Builder) BuildProfile(u *core.User, m *feature.Matrix, trigger string) *core.ProfileVector {
	cols := make([]string, m.Width())
	copy(cols, m.Columns())
	userID := ""
	if u != nil {
		userID = u.UserID
	}
	return &core.ProfileVector{
		UserID:    userID,
		Columns:   cols,
		Values:    b.Build(u, m),
		Trigger:   trigger,
		UpdatedAt: time.Now(),
	}
}

// InterestVector 返回兴趣向量以及是否至少有一列被置 1。
func InterestVector(interests []string, m *feature.Matrix) ([]float64, bool) {
	vec := make([]float64, m.Width())
	topics := m.TopicColumns()
	hit := false
	for _, interest := range interests {
		target := feature.PrefixTopic + strings.ToLower(strings.TrimSpace(interest))
		for _, i := range topics[target] {
			vec[i] = 1
			hit = true
		}
	}
	return vec, hit
}
