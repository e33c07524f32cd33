package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/source"
)

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewItem(id))
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestInteractedFilterFromContext(t *testing.T) {
	n := &FilterNode{Filters: []Filter{NewInteractedFilter(nil)}}
	rctx := &core.RecommendContext{User: &core.User{
		Likes:     []string{"1.0"},
		Favorites: []string{"3"},
		Read:      []string{"3", "9"},
	}}
	in := items("1", "2", "3", "4")
	out, err := n.Process(context.Background(), rctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4"}, ids(out))

	lbl, ok := in[0].GetLabel("filtered")
	assert.True(t, ok)
	assert.Equal(t, "filter.interacted", lbl.Source)
}

func TestInteractedFilterLoadsUser(t *testing.T) {
	users := source.NewStaticUsers([]*core.User{{UserID: "u1", Read: []string{"2"}}})
	n := &FilterNode{Filters: []Filter{NewInteractedFilter(users)}}

	rctx := &core.RecommendContext{UserID: "u1"}
	out, err := n.Process(context.Background(), rctx, items("1", "2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(out))
	assert.NotNil(t, rctx.User)

	// 用户读取失败时不排除任何物品
	out, err = n.Process(context.Background(), &core.RecommendContext{UserID: "ghost"}, items("1", "2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(out))
}

func TestBlacklistFilter(t *testing.T) {
	n := &FilterNode{Filters: []Filter{NewBlacklistFilter([]string{"2.0"})}}
	out, err := n.Process(context.Background(), &core.RecommendContext{}, items("1", "2", "3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(out))
}

func TestFilterNodeWithoutFilters(t *testing.T) {
	in := items("1")
	out, err := (&FilterNode{}).Process(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter("item.score < 0.1")
	require.NoError(t, err)

	low, high := core.NewItem("1"), core.NewItem("2")
	low.Score, high.Score = 0.05, 0.8

	n := &FilterNode{Filters: []Filter{f}}
	out, err := n.Process(context.Background(), &core.RecommendContext{}, []*core.Item{low, high})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(out))

	_, err = NewExprFilter("item.score +")
	assert.Error(t, err)
}
