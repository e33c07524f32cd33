package rerank

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
)

type nameCatalog struct {
	names map[string]string
	calls atomic.Int32
}

func (c *nameCatalog) ListArticles(context.Context) ([]*core.Article, error) { return nil, nil }

func (c *nameCatalog) ResolveName(_ context.Context, id string) (string, error) {
	c.calls.Add(1)
	if id == "boom" {
		return "", errors.New("timeout")
	}
	name, ok := c.names[id]
	if !ok {
		return "", core.ErrArticleNotFound
	}
	return name, nil
}

func scored(pairs ...any) []*core.Item {
	out := make([]*core.Item, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		it := core.NewItem(pairs[i].(string))
		it.Score = pairs[i+1].(float64)
		out = append(out, it)
	}
	return out
}

func TestTopNNode(t *testing.T) {
	in := scored("a", 3.0, "b", 2.0, "c", 1.0)
	out, err := (&TopNNode{N: 2}).Process(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	rctx := &core.RecommendContext{Params: map[string]any{"count": 1}}
	out, err = (&TopNNode{}).Process(context.Background(), rctx, in)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	out, err = (&TopNNode{}).Process(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestTieBreakOrdersTiesByName(t *testing.T) {
	catalog := &nameCatalog{names: map[string]string{
		"1": "Zebra", "2": "Apple", "3": "Mango", "4": "Kiwi",
	}}
	n := &TieBreakNode{Catalog: catalog, N: 3}
	in := scored("1", 0.9, "2", 0.9, "3", 0.5, "4", 0.9)

	out, err := n.Process(context.Background(), nil, in)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "Apple", out[0].Name)
	assert.Equal(t, "Kiwi", out[1].Name)
	assert.Equal(t, "Zebra", out[2].Name)
}

func TestTieBreakWidenWindow(t *testing.T) {
	catalog := &nameCatalog{names: map[string]string{}}
	n := &TieBreakNode{Catalog: catalog, N: 1, Widen: 2}
	in := scored("a", 5.0, "b", 4.0, "c", 3.0, "d", 2.0)

	out, err := n.Process(context.Background(), nil, in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
	// 只解析窗口内的 2 个候选
	assert.Equal(t, int32(2), catalog.calls.Load())
}

func TestTieBreakFallbackNames(t *testing.T) {
	catalog := &nameCatalog{names: map[string]string{}}
	n := &TieBreakNode{Catalog: catalog}
	rctx := &core.RecommendContext{Params: map[string]any{"count": 5}}

	out, err := n.Process(context.Background(), rctx, scored("712.0", 0.4, "boom", 0.4))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Item 712", out[0].Name)
	assert.Equal(t, "Item boom", out[1].Name)
}

func TestTieBreakEmpty(t *testing.T) {
	out, err := (&TieBreakNode{}).Process(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
