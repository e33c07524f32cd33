package builders

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/profile"
	"github.com/rushteam/artrec/source"
	"github.com/rushteam/artrec/store"
)

func testEnv(t *testing.T) *config.Env {
	t.Helper()
	articles := []*core.Article{
		{ID: "A", Title: "Alpha", Topics: []string{"x"}},
		{ID: "B", Title: "Beta", Topics: []string{"y"}},
		{ID: "C", Title: "Gamma", Topics: []string{"x"}, Subtopics: []string{"y"}},
	}
	m, _ := feature.Vectorize(articles)
	users := source.NewStaticUsers([]*core.User{{UserID: "u1", Likes: []string{"A"}}})

	profiles := profile.NewKVStore(store.NewMemoryStore(), "test")
	u, err := users.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	p := profile.NewBuilder(core.DefaultInteractionWeights()).BuildProfile(u, m, "manual")
	require.NoError(t, profiles.SaveProfiles(context.Background(), []*core.ProfileVector{p}))

	return &config.Env{
		Matrix:   m,
		Catalog:  source.NewStaticCatalog(articles),
		Users:    users,
		Profiles: profiles,
		Rand:     rand.NewPCG(1, 2),
		Ranking:  config.Default().Ranking,
	}
}

func TestSupportedTypes(t *testing.T) {
	types := config.SupportedTypes()
	for _, want := range []string{
		"recall.content", "recall.fallback", "filter", "filter.interacted",
		"filter.blacklist", "rerank.tiebreak", "rerank.topn",
	} {
		assert.Contains(t, types, want)
	}
}

func TestBuildPipelineFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  name: personalized
  nodes:
    - type: recall.content
    - type: filter
      config:
        filters:
          - type: interacted
          - type: blacklist
            item_ids: ["C"]
    - type: rerank.tiebreak
      config:
        widen: 2
`), 0o644))

	p, err := config.BuildPipeline(path, testEnv(t))
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)

	rctx := &core.RecommendContext{UserID: "u1", Params: map[string]any{"count": 5}}
	items, err := p.Run(context.Background(), rctx, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].ID)
	assert.Equal(t, "Beta", items[0].Name)
}

func TestBuildPipeline_UnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  nodes:
    - type: rank.lr
`), 0o644))
	_, err := config.BuildPipeline(path, testEnv(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recall.content")
}

func TestBuildFallbackNode(t *testing.T) {
	env := testEnv(t)
	node, err := BuildFallbackNode(map[string]any{"align_interests": true}, env)
	require.NoError(t, err)
	assert.Equal(t, pipeline.KindRecall, node.Kind())

	rctx := &core.RecommendContext{UserID: "u1", Params: map[string]any{"count": 10}}
	items, err := node.Process(context.Background(), rctx, nil)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestBuildFilterNode_Errors(t *testing.T) {
	env := testEnv(t)
	_, err := BuildFilterNode(map[string]any{}, env)
	assert.Error(t, err)

	_, err = BuildFilterNode(map[string]any{"filters": []any{map[string]any{"type": "bogus"}}}, env)
	assert.Error(t, err)

	_, err = BuildFilterNode(map[string]any{"filters": []any{map[string]any{"type": "expr", "expr": "item.score +"}}}, env)
	assert.Error(t, err)
}

func TestBuildContentNode_RequiresProfiles(t *testing.T) {
	_, err := BuildContentNode(nil, &config.Env{})
	assert.Error(t, err)
}
