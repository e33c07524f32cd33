package source

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// StaticCatalog 是内存中的物品目录，用于测试、离线批处理与无数据库部署。
type StaticCatalog struct {
	mu       sync.RWMutex
	articles []*core.Article
	byID     map[string]*core.Article
}

// NewStaticCatalog 创建目录；重复 ID 保留第一篇。
func NewStaticCatalog(articles []*core.Article) *StaticCatalog {
	c := &StaticCatalog{byID: make(map[string]*core.Article, len(articles))}
	c.Replace(articles)
	return c
}

// Replace 整体替换目录快照。
func (c *StaticCatalog) Replace(articles []*core.Article) {
	byID := make(map[string]*core.Article, len(articles))
	list := make([]*core.Article, 0, len(articles))
	for _, a := range articles {
		if a == nil {
			continue
		}
		id := core.CanonicalID(a.ID)
		if _, ok := byID[id]; ok || id == "" {
			continue
		}
		byID[id] = a
		list = append(list, a)
	}
	c.mu.Lock()
	c.articles, c.byID = list, byID
	c.mu.Unlock()
}

func (c *StaticCatalog) ListArticles(_ context.Context) ([]*core.Article, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*core.Article, len(c.articles))
	copy(out, c.articles)
	return out, nil
}

func (c *StaticCatalog) ResolveName(_ context.Context, itemID string) (string, error) {
	c.mu.RLock()
	a, ok := c.byID[core.CanonicalID(itemID)]
	c.mu.RUnlock()
	if !ok {
		return "", core.ErrArticleNotFound
	}
	return a.DisplayName(), nil
}

// StaticUsers 是内存中的用户存储。
type StaticUsers struct {
	mu    sync.RWMutex
	order []string
	users map[string]*core.User
}

// NewStaticUsers 创建用户存储。
func NewStaticUsers(users []*core.User) *StaticUsers {
	s := &StaticUsers{users: make(map[string]*core.User, len(users))}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

// Put 新增或替换一个用户。
func (s *StaticUsers) Put(u *core.User) {
	if u == nil || strings.TrimSpace(u.UserID) == "" {
		return
	}
	id := strings.TrimSpace(u.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		s.order = append(s.order, id)
	}
	s.users[id] = u
}

func (s *StaticUsers) GetUser(_ context.Context, userID string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return u, nil
}

func (s *StaticUsers) ListUsers(_ context.Context) ([]*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id])
	}
	return out, nil
}

// LoadCatalogFile 从 JSON 文件（文档数组，字段与 Mongo 目录集合一致）加载目录。
func LoadCatalogFile(path string) (*StaticCatalog, error) {
	docs, err := readDocs(path)
	if err != nil {
		return nil, err
	}
	articles := make([]*core.Article, 0, len(docs))
	for _, d := range docs {
		articles = append(articles, DecodeArticle(d))
	}
	return NewStaticCatalog(articles), nil
}

// LoadUsersFile 从 JSON 文件加载用户。
func LoadUsersFile(path string) (*StaticUsers, error) {
	docs, err := readDocs(path)
	if err != nil {
		return nil, err
	}
	users := make([]*core.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, DecodeUser(d))
	}
	return NewStaticUsers(users), nil
}

func readDocs(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return docs, nil
}

var (
	_ core.CatalogSource = (*StaticCatalog)(nil)
	_ core.UserStore     = (*StaticUsers)(nil)
)
