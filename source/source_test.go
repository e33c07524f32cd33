package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rushteam/artrec/core"
)

func TestDecodeArticle(t *testing.T) {
	doc := bson.M{
		"_id":      primitive.NewObjectID(),
		"id":       712.0,
		"title":    "Intro to Go",
		"topic":    primitive.A{"Programming", ""},
		"subtopic": "Go",
		"keywords": primitive.A{"concurrency", "channels"},
		"author":   "Ada",
		"readTime": "7 min",
	}
	a := DecodeArticle(doc)
	assert.Equal(t, "712", a.ID)
	assert.Equal(t, "Intro to Go", a.Title)
	assert.Equal(t, []string{"Programming"}, a.Topics)
	assert.Equal(t, []string{"Go"}, a.Subtopics)
	assert.Equal(t, []string{"concurrency", "channels"}, a.Keywords)
	assert.Equal(t, []string{"Ada"}, a.Authors)
	assert.Equal(t, "7 min", a.ReadTime)
}

func TestDecodeArticleMissingFields(t *testing.T) {
	oid := primitive.NewObjectID()
	a := DecodeArticle(map[string]any{"_id": oid, "name": "Fallback title"})
	assert.Equal(t, oid.Hex(), a.ID)
	assert.Nil(t, a.Topics)
	assert.Nil(t, a.Subtopics)
	assert.Nil(t, a.Keywords)
	assert.Equal(t, "Fallback title", a.Title)
}

func TestDecodeUser(t *testing.T) {
	oid := primitive.NewObjectID()
	liked := primitive.NewObjectID()
	u := DecodeUser(bson.M{
		"_id":       oid,
		"likes":     primitive.A{"12.0", liked, int32(5)},
		"favorites": primitive.A{},
		"interests": primitive.A{"AI", "Data Science"},
	})
	assert.Equal(t, oid.Hex(), u.UserID)
	assert.Equal(t, []string{"12", liked.Hex(), "5"}, u.Likes)
	assert.Empty(t, u.Favorites)
	assert.Nil(t, u.Read)
	assert.Equal(t, []string{"AI", "Data Science"}, u.Interests)
}

func TestIDFilters(t *testing.T) {
	filters := idFilters("712.0")
	require.Len(t, filters, 4)
	assert.Equal(t, bson.M{"id": "712"}, filters[0])
	assert.Equal(t, bson.M{"id": int64(712)}, filters[1])

	oid := primitive.NewObjectID()
	filters = idFilters(oid.Hex())
	assert.Equal(t, bson.M{"_id": oid}, filters[len(filters)-1])
}

func TestStaticCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewStaticCatalog([]*core.Article{
		{ID: "1.0", Title: "One"},
		{ID: "1", Title: "Duplicate"},
		{ID: "2"},
		nil,
	})
	list, err := c.ListArticles(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	name, err := c.ResolveName(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "One", name)

	name, err = c.ResolveName(ctx, "2.0")
	require.NoError(t, err)
	assert.Equal(t, "Item 2", name)

	_, err = c.ResolveName(ctx, "3")
	assert.True(t, errors.Is(err, core.ErrArticleNotFound))
}

func TestStaticUsers(t *testing.T) {
	ctx := context.Background()
	s := NewStaticUsers([]*core.User{{UserID: "u1"}, {UserID: "u2"}, {UserID: " "}})
	s.Put(&core.User{UserID: "u1", Likes: []string{"9"}})

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, u.Likes)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "u1", all[0].UserID)

	_, err = s.GetUser(ctx, "nobody")
	assert.True(t, errors.Is(err, core.ErrUserNotFound))
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "articles.json")
	usersPath := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`[
		{"id": 1, "title": "A", "topic": ["AI"]},
		{"id": "2", "title": "B", "topic": "Data"}
	]`), 0o644))
	require.NoError(t, os.WriteFile(usersPath, []byte(`[
		{"_id": "u1", "likes": [1.0], "interests": ["AI"]}
	]`), 0o644))

	c, err := LoadCatalogFile(catalogPath)
	require.NoError(t, err)
	list, _ := c.ListArticles(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, []string{"Data"}, list[1].Topics)

	s, err := LoadUsersFile(usersPath)
	require.NoError(t, err)
	u, err := s.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, u.Likes)

	_, err = LoadCatalogFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

type brokenCatalog struct{ calls int }

func (b *brokenCatalog) ListArticles(context.Context) ([]*core.Article, error) {
	b.calls++
	return nil, errors.New("connection reset")
}

func (b *brokenCatalog) ResolveName(context.Context, string) (string, error) {
	return "", core.ErrArticleNotFound
}

func TestGuardedCatalog(t *testing.T) {
	inner := &brokenCatalog{}
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 2
	g := NewGuardedCatalog(inner, cfg)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := g.ListArticles(ctx)
		assert.True(t, errors.Is(err, core.ErrCatalogUnavailable))
	}
	// 打开后不再调用上游
	assert.Equal(t, 2, inner.calls)

	// NOT_FOUND 不算失败，也不被包装
	for i := 0; i < 5; i++ {
		_, err := g.ResolveName(ctx, "x")
		assert.True(t, errors.Is(err, core.ErrArticleNotFound))
	}
}

func TestGuardedUsers(t *testing.T) {
	g := NewGuardedUsers(NewStaticUsers([]*core.User{{UserID: "u1"}}), DefaultBreakerConfig())
	u, err := g.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)

	_, err = g.GetUser(context.Background(), "u2")
	assert.True(t, errors.Is(err, core.ErrUserNotFound))
	assert.False(t, errors.Is(err, core.ErrUsersUnavailable))
}

// lookupOnlyUsers 只能按 ID 查询，不能枚举
type lookupOnlyUsers struct{ calls int }

func (l *lookupOnlyUsers) GetUser(_ context.Context, userID string) (*core.User, error) {
	return &core.User{UserID: userID}, nil
}

func (l *lookupOnlyUsers) ListUsers(context.Context) ([]*core.User, error) {
	l.calls++
	return nil, core.NewDomainError(core.ModuleUsers, core.ErrorCodeNotSupported, "users: listing not supported")
}

func TestGuardedUsersNotSupportedPassesThrough(t *testing.T) {
	inner := &lookupOnlyUsers{}
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 2
	g := NewGuardedUsers(inner, cfg)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := g.ListUsers(ctx)
		require.Error(t, err)
		assert.True(t, core.IsNotSupported(err))
		assert.False(t, core.IsUnavailable(err))
	}
	// 熔断器保持闭合，每次都到达上游
	assert.Equal(t, 6, inner.calls)

	u, err := g.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}
