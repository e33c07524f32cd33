package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rushteam/artrec/config"
	_ "github.com/rushteam/artrec/config/builders"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feast"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
	"github.com/rushteam/artrec/profile"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/rerank"
	"github.com/rushteam/artrec/source"
	"github.com/rushteam/artrec/store"
)

// App 持有按配置创建的全部后端：目录、用户存储、画像存储与物品矩阵快照。
type App struct {
	Config   *config.Config
	Catalog  core.CatalogSource
	Users    core.UserStore
	Profiles core.ProfileStore
	Matrix   *feature.Matrix
	Metrics  *metrics.Recorder
	Logger   zerolog.Logger

	mongo   *mongo.Client
	closers []func(context.Context) error
}

// Open 按配置连接后端并加载矩阵快照；矩阵不存在时使用空矩阵（个性化排序降级）。
// reg 为 nil 时不注册指标。
func Open(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logging.With().Str("component", "app").Logger(),
	}
	if reg != nil {
		a.Metrics = metrics.NewRecorder(reg)
	}

	var err error
	if a.Catalog, err = a.openCatalog(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if a.Users, err = a.openUsers(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if a.Profiles, err = a.openProfiles(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if err := a.LoadMatrix(); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// Close 释放所有连接。
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) connectMongo(ctx context.Context) (*mongo.Client, error) {
	if a.mongo != nil {
		return a.mongo, nil
	}
	client, err := source.ConnectMongo(ctx, a.Config.Mongo)
	if err != nil {
		return nil, err
	}
	a.mongo = client
	a.closers = append(a.closers, client.Disconnect)
	return client, nil
}

func (a *App) openCatalog(ctx context.Context) (core.CatalogSource, error) {
	switch a.Config.Catalog.Backend {
	case config.BackendFile:
		return source.LoadCatalogFile(a.Config.Snapshot.CatalogFile)
	default:
		client, err := a.connectMongo(ctx)
		if err != nil {
			return nil, err
		}
		return source.NewGuardedCatalog(source.NewMongoCatalog(client, a.Config.Mongo), a.Config.Breaker), nil
	}
}

func (a *App) openUsers(ctx context.Context) (core.UserStore, error) {
	switch a.Config.Users.Backend {
	case config.BackendFile:
		return source.LoadUsersFile(a.Config.Snapshot.UsersFile)
	case config.BackendFeast:
		client, err := feast.NewGrpcClient(a.Config.Feast)
		if err != nil {
			return nil, core.ErrUsersUnavailable.Wrap(err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		users := feast.NewUserStore(client, a.Config.Feast)
		// 在线特征无法枚举用户，批量重建时从目录同库的用户集合取 ID
		if a.Config.Catalog.Backend == config.BackendMongo {
			mc, err := a.connectMongo(ctx)
			if err != nil {
				return nil, err
			}
			mongoUsers := source.NewMongoUsers(mc, a.Config.Mongo)
			users.IDs = func(ctx context.Context) ([]string, error) {
				list, err := mongoUsers.ListUsers(ctx)
				if err != nil {
					return nil, err
				}
				ids := make([]string, 0, len(list))
				for _, u := range list {
					ids = append(ids, u.UserID)
				}
				return ids, nil
			}
		}
		return source.NewGuardedUsers(users, a.Config.Breaker), nil
	default:
		client, err := a.connectMongo(ctx)
		if err != nil {
			return nil, err
		}
		return source.NewGuardedUsers(source.NewMongoUsers(client, a.Config.Mongo), a.Config.Breaker), nil
	}
}

func (a *App) openProfiles(ctx context.Context) (core.ProfileStore, error) {
	var kv core.Store
	switch a.Config.Profile.Store {
	case config.BackendCSV:
		return profile.NewCSVStore(a.Config.Snapshot.ProfilesPath), nil
	case config.BackendRedis:
		rs, err := store.NewRedisStore(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("open redis profile store: %w", err)
		}
		kv = rs
	case config.BackendSQLite:
		ss, err := store.NewSQLiteStore(ctx, a.Config.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite profile store: %w", err)
		}
		kv = ss
	default:
		kv = store.NewMemoryStore()
	}
	a.closers = append(a.closers, func(context.Context) error { return kv.Close() })
	profiles := profile.NewKVStore(kv, a.Config.Redis.KeyPrefix)
	profiles.TTL = int(a.Config.Redis.TTL.Seconds())
	return profiles, nil
}

// LoadMatrix 重新读取矩阵快照。
func (a *App) LoadMatrix() error {
	m, err := feature.LoadCSVFile(a.Config.Snapshot.MatrixPath)
	if err != nil {
		if !core.IsNotFound(err) {
			return fmt.Errorf("load item matrix: %w", err)
		}
		a.Logger.Warn().Str("path", a.Config.Snapshot.MatrixPath).Msg("item matrix snapshot missing, personalized ranking disabled")
		m = feature.NewMatrix(nil)
	}
	a.Matrix = m
	return nil
}

// Env 返回构建 Pipeline Node 所需的依赖。
func (a *App) Env() *config.Env {
	policy := a.Config.Fallback
	env := &config.Env{
		Matrix:   a.Matrix,
		Catalog:  a.Catalog,
		Users:    a.Users,
		Profiles: a.Profiles,
		Policy:   &policy,
		Ranking:  a.Config.Ranking,
	}
	if seed := a.Config.Ranking.FallbackSeed; seed != 0 {
		env.Rand = rand.NewPCG(seed, seed)
	}
	return env
}

// Recommender 按配置构建推荐入口：配置了 pipeline_file 时从 YAML 构建个性化 Pipeline，否则使用 DefaultPipeline。
func (a *App) Recommender() (*Recommender, error) {
	env := a.Env()
	var (
		p   *pipeline.Pipeline
		err error
	)
	if a.Config.Ranking.PipelineFile != "" {
		if p, err = config.BuildPipeline(a.Config.Ranking.PipelineFile, env); err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
	} else {
		p = DefaultPipeline(env)
	}

	fb, err := recall.NewFallback(a.Catalog, *env.Policy, env.Rand)
	if err != nil {
		return nil, err
	}
	fb.Users = a.Users

	r := NewRecommender(p, fb)
	r.Users = a.Users
	r.Metrics = a.Metrics
	if a.Config.Ranking.DefaultCount > 0 {
		r.DefaultCount = a.Config.Ranking.DefaultCount
	}
	r.MinPercent = a.Config.Ranking.MinPercent
	r.MaxPercent = a.Config.Ranking.MaxPercent
	return r, nil
}

// Rebuilder 返回基于当前矩阵的画像重建器。
func (a *App) Rebuilder() *profile.Rebuilder {
	r := profile.NewRebuilder(profile.NewBuilder(a.Config.Profile.Weights), a.Users, a.Profiles, a.Matrix)
	r.Concurrency = a.Config.Profile.Concurrency
	r.Metrics = a.Metrics
	return r
}

// DefaultPipeline 是内置的个性化 Pipeline：
// 余弦相似度召回 -> 排除已交互与黑名单 -> 按 (相似度, 名称) 收尾并截断。
func DefaultPipeline(env *config.Env) *pipeline.Pipeline {
	content := recall.NewContentRecall(env.Matrix, env.Profiles)
	content.NeutralScore = env.Ranking.NeutralScore

	filters := []filter.Filter{filter.NewInteractedFilter(env.Users)}
	if len(env.Ranking.Blacklist) > 0 {
		filters = append(filters, filter.NewBlacklistFilter(env.Ranking.Blacklist))
	}
	return &pipeline.Pipeline{Nodes: []pipeline.Node{
		content,
		&filter.FilterNode{Filters: filters},
		&rerank.TieBreakNode{Catalog: env.Catalog, Widen: env.Ranking.Widen},
	}}
}

// Vectorize 从目录全量重建物品矩阵并写入快照文件，返回新矩阵。
func (a *App) Vectorize(ctx context.Context) (*feature.Matrix, error) {
	m, err := Vectorize(ctx, a.Catalog, a.Config.Snapshot.MatrixPath)
	if err != nil {
		return nil, err
	}
	a.Matrix = m
	return m, nil
}

// Vectorize 读取目录、编码为多热矩阵并写入 path。
func Vectorize(ctx context.Context, catalog core.CatalogSource, path string) (*feature.Matrix, error) {
	articles, err := catalog.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	m, vocab := feature.Vectorize(articles)
	if err := feature.SaveCSVFile(path, feature.ItemIDHeader, m); err != nil {
		return nil, fmt.Errorf("save item matrix: %w", err)
	}
	logging.Info().
		Int("articles", m.Len()).
		Int("columns", vocab.Size()).
		Str("path", path).
		Msg("item matrix written")
	return m, nil
}

// Topics 返回目录中出现过的 topic 与 subtopic（去重、排序）。
func Topics(ctx context.Context, catalog core.CatalogSource) (topics, subtopics []string, err error) {
	articles, err := catalog.ListArticles(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list articles: %w", err)
	}
	ts := make(map[string]struct{})
	ss := make(map[string]struct{})
	for _, a := range articles {
		for _, t := range a.Topics {
			ts[t] = struct{}{}
		}
		for _, s := range a.Subtopics {
			ss[s] = struct{}{}
		}
	}
	return sortedSet(ts), sortedSet(ss), nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
