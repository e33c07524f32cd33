package engine

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pkg/metrics"
	"github.com/rushteam/artrec/profile"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/source"
	"github.com/rushteam/artrec/store"
)

type brokenCatalog struct{}

func (brokenCatalog) ListArticles(context.Context) ([]*core.Article, error) {
	return nil, core.ErrCatalogUnavailable.Wrap(errors.New("connection refused"))
}

func (brokenCatalog) ResolveName(context.Context, string) (string, error) {
	return "", core.ErrCatalogUnavailable
}

type brokenUsers struct{}

func (brokenUsers) GetUser(context.Context, string) (*core.User, error) {
	return nil, core.ErrUsersUnavailable
}

func (brokenUsers) ListUsers(context.Context) ([]*core.User, error) {
	return nil, core.ErrUsersUnavailable
}

type fixture struct {
	catalog  *source.StaticCatalog
	users    *source.StaticUsers
	profiles *profile.KVStore
	matrix   *feature.Matrix
}

// newFixture 构造两篇文章 A{x}、B{y}，用户 u1 点赞 A 并已重建画像。
func newFixture(t *testing.T) *fixture {
	t.Helper()
	articles := []*core.Article{
		{ID: "A", Title: "Alpha", Topics: []string{"x"}},
		{ID: "B", Title: "Beta", Topics: []string{"y"}},
	}
	m, _ := feature.Vectorize(articles)
	f := &fixture{
		catalog: source.NewStaticCatalog(articles),
		users: source.NewStaticUsers([]*core.User{
			{UserID: "u1", Likes: []string{"A"}},
			{UserID: "u2", Interests: []string{"y"}},
		}),
		profiles: profile.NewKVStore(store.NewMemoryStore(), "test"),
		matrix:   m,
	}
	r := profile.NewRebuilder(profile.NewBuilder(core.DefaultInteractionWeights()), f.users, f.profiles, m)
	_, err := r.Rebuild(context.Background(), "u1", "manual")
	require.NoError(t, err)
	return f
}

func (f *fixture) recommender(t *testing.T, catalog core.CatalogSource, users core.UserStore) *Recommender {
	t.Helper()
	env := &config.Env{
		Matrix:   f.matrix,
		Catalog:  catalog,
		Users:    users,
		Profiles: f.profiles,
		Ranking:  config.Default().Ranking,
	}
	fb, err := recall.NewFallback(catalog, recall.DefaultFallbackPolicy(), rand.NewPCG(7, 7))
	require.NoError(t, err)
	r := NewRecommender(DefaultPipeline(env), fb)
	r.Users = users
	return r
}

func TestRecommend_ExcludesInteracted(t *testing.T) {
	f := newFixture(t)
	r := f.recommender(t, f.catalog, f.users)

	res := r.Recommend(context.Background(), "u1", 1)
	require.True(t, res.Success)
	assert.Equal(t, SourcePersonalized, res.Source)
	assert.NotEmpty(t, res.RequestID)
	require.Len(t, res.Recommendations, 1)

	rec := res.Recommendations[0]
	assert.Equal(t, "B", rec.ID)
	assert.Equal(t, "Beta", rec.Name)
	// cosine(vector(A), vector(B)) == 0
	assert.Zero(t, rec.Score)
	assert.Equal(t, 30, rec.MatchPercentage)
	assert.Equal(t, 1, res.Total)
}

func TestRecommend_FallbackWithoutProfile(t *testing.T) {
	f := newFixture(t)
	r := f.recommender(t, f.catalog, f.users)

	res := r.Recommend(context.Background(), "u2", 5)
	require.True(t, res.Success)
	assert.Equal(t, SourceFallback, res.Source)
	require.Len(t, res.Recommendations, 2)

	// u2 对 y 感兴趣：B 命中 topic，分数在 75-95
	var beta Recommendation
	for _, rec := range res.Recommendations {
		if rec.ID == "B" {
			beta = rec
		}
	}
	assert.GreaterOrEqual(t, beta.Score, 75.0)
	assert.LessOrEqual(t, beta.Score, 95.0)
	assert.Equal(t, int(beta.Score), beta.MatchPercentage)
	assert.NotEmpty(t, beta.Reason)
	assert.GreaterOrEqual(t, res.Recommendations[0].Score, res.Recommendations[1].Score)
}

func TestRecommend_Anonymous(t *testing.T) {
	f := newFixture(t)
	r := f.recommender(t, f.catalog, f.users)

	res := r.Recommend(context.Background(), "", 0)
	require.True(t, res.Success)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, res.Recommendations, 2)
	for _, rec := range res.Recommendations {
		assert.Equal(t, "Discover new topics", rec.Reason)
		assert.GreaterOrEqual(t, rec.Score, 30.0)
		assert.LessOrEqual(t, rec.Score, 70.0)
	}
}

func TestRecommend_UsersUnavailable(t *testing.T) {
	f := newFixture(t)
	r := f.recommender(t, f.catalog, brokenUsers{})

	// 用户存储不可达：不排除任何物品，仍然个性化
	res := r.Recommend(context.Background(), "u1", 5)
	require.True(t, res.Success)
	assert.Equal(t, SourcePersonalized, res.Source)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "A", res.Recommendations[0].ID)
	assert.Equal(t, 95, res.Recommendations[0].MatchPercentage)
}

func TestRecommend_CatalogUnavailable(t *testing.T) {
	f := newFixture(t)
	r := f.recommender(t, brokenCatalog{}, f.users)

	res := r.Recommend(context.Background(), "u2", 3)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)

	var buf bytes.Buffer
	require.NoError(t, res.Encode(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, []any{}, decoded["recommendations"])
}

func TestRandom(t *testing.T) {
	f := newFixture(t)
	r := f.recommender(t, f.catalog, f.users)

	res := r.Random(context.Background(), "", 10)
	require.True(t, res.Success)
	assert.Len(t, res.Recommendations, 2)
	ids := map[string]bool{}
	for _, rec := range res.Recommendations {
		ids[rec.ID] = true
	}
	assert.Len(t, ids, 2)
}

func TestRecommend_Metrics(t *testing.T) {
	f := newFixture(t)
	r := f.recommender(t, f.catalog, f.users)
	reg := prometheus.NewRegistry()
	r.Metrics = metrics.NewRecorder(reg)

	r.Recommend(context.Background(), "u1", 1)
	r.Recommend(context.Background(), "u2", 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["artrec_recommend_requests_total"])
	assert.True(t, names["artrec_fallback_total"])
}

func TestPercent(t *testing.T) {
	r := NewRecommender(nil, nil)
	assert.Equal(t, 30, r.percent(0))
	assert.Equal(t, 30, r.percent(0.299))
	assert.Equal(t, 57, r.percent(0.579))
	assert.Equal(t, 95, r.percent(1))
}

func TestApp_FileBackends(t *testing.T) {
	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "articles.json")
	usersFile := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(catalogFile, []byte(`[
		{"id": "1", "title": "Go Concurrency", "topic": "Programming", "subtopic": "Go"},
		{"id": "2", "title": "Deep Nets", "topic": "Machine_Learning", "subtopic": "Deep_Learning"},
		{"id": "3", "title": "Goroutines", "topic": "Programming", "subtopic": "Go"}
	]`), 0o644))
	require.NoError(t, os.WriteFile(usersFile, []byte(`[
		{"_id": "u1", "likes": ["1.0"], "interests": []}
	]`), 0o644))

	cfg := config.Default()
	cfg.Catalog.Backend = config.BackendFile
	cfg.Users.Backend = config.BackendFile
	cfg.Profile.Store = config.BackendSQLite
	cfg.SQLite.Path = filepath.Join(dir, "artrec.db")
	cfg.Snapshot.CatalogFile = catalogFile
	cfg.Snapshot.UsersFile = usersFile
	cfg.Snapshot.MatrixPath = filepath.Join(dir, "matrix.csv")

	ctx := context.Background()
	app, err := Open(ctx, cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	defer app.Close(ctx)
	assert.Zero(t, app.Matrix.Len())

	m, err := app.Vectorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	require.NoError(t, app.LoadMatrix())
	assert.Equal(t, 3, app.Matrix.Len())

	n, err := app.Rebuilder().RebuildAll(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := app.Recommender()
	require.NoError(t, err)
	res := rec.Recommend(ctx, "u1", 1)
	require.True(t, res.Success)
	assert.Equal(t, SourcePersonalized, res.Source)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "3", res.Recommendations[0].ID)
	assert.Equal(t, "Goroutines", res.Recommendations[0].Name)
	assert.Equal(t, 95, res.Recommendations[0].MatchPercentage)

	topics, subtopics, err := Topics(ctx, app.Catalog)
	require.NoError(t, err)
	assert.Equal(t, []string{"Machine_Learning", "Programming"}, topics)
	assert.Equal(t, []string{"Deep_Learning", "Go"}, subtopics)
}
