package profile

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
)

// Rebuilder 从用户存储读取交互历史，全量重算画像并写入 ProfileStore。
//
// 不同用户的重建可以并行；同一用户的重建串行执行，避免旧结果覆盖新结果。
// RebuildAll 与单用户 Rebuild 互斥。
type Rebuilder struct {
	Builder  *Builder
	Users    core.UserStore
	Profiles core.ProfileStore
	Matrix   *feature.Matrix

	// Concurrency 是 RebuildAll 的并发度，<=0 时使用 GOMAXPROCS
	Concurrency int

	Metrics *metrics.Recorder
	Logger  zerolog.Logger

	all   sync.RWMutex
	users keyedMutex
}

// NewRebuilder 创建 Rebuilder。
func NewRebuilder(b *Builder, users core.UserStore, profiles core.ProfileStore, m *feature.Matrix) *Rebuilder {
	return &Rebuilder{
		Builder:  b,
		Users:    users,
		Profiles: profiles,
		Matrix:   m,
		Logger:   logging.With().Str("component", "profile.rebuilder").Logger(),
	}
}

// Rebuild 重建单个用户的画像。
func (r *Rebuilder) Rebuild(ctx context.Context, userID, trigger string) (*core.ProfileVector, error) {
	if r.Matrix == nil || r.Matrix.Width() == 0 {
		return nil, core.ErrMatrixMissing
	}
	r.all.RLock()
	defer r.all.RUnlock()

	unlock := r.users.Lock(userID)
	defer unlock()

	u, err := r.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	p := r.Builder.BuildProfile(u, r.Matrix, trigger)
	p.UserID = userID
	if err := r.Profiles.SaveProfiles(ctx, []*core.ProfileVector{p}); err != nil {
		return nil, fmt.Errorf("save profile %s: %w", userID, err)
	}
	r.Metrics.ProfilesRebuilt(trigger, 1)
	r.Logger.Info().Str("user_id", userID).Str("trigger", trigger).Bool("zero", p.IsZero()).Msg("profile rebuilt")
	return p, nil
}

// RebuildAll 重建全部用户的画像，返回写入的画像数量。
func (r *Rebuilder) RebuildAll(ctx context.Context, trigger string) (int, error) {
	if r.Matrix == nil || r.Matrix.Width() == 0 {
		return 0, core.ErrMatrixMissing
	}
	r.all.Lock()
	defer r.all.Unlock()

	users, err := r.Users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	r.Logger.Info().Int("users", len(users)).Int("columns", r.Matrix.Width()).Str("trigger", trigger).Msg("rebuilding profiles")

	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	profiles := make([]*core.ProfileVector, len(users))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, u := range users {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if u == nil || u.UserID == "" {
				return nil
			}
			profiles[i] = r.Builder.BuildProfile(u, r.Matrix, trigger)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	out := profiles[:0]
	for _, p := range profiles {
		if p != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		r.Logger.Warn().Msg("no user profiles generated")
		return 0, nil
	}
	if err := r.Profiles.SaveProfiles(ctx, out); err != nil {
		return 0, fmt.Errorf("save profiles: %w", err)
	}
	r.Metrics.ProfilesRebuilt(trigger, len(out))
	r.Logger.Info().Int("profiles", len(out)).Msg("profiles rebuilt")
	return len(out), nil
}

// keyedMutex 为每个 key 提供独立的互斥锁，空闲的锁会被回收。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock 锁住 key 并返回解锁函数。
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
