package source

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/logging"
)

// BreakerConfig 控制熔断器行为。
type BreakerConfig struct {
	// MaxRequests 是半开状态允许通过的请求数
	MaxRequests uint32 `koanf:"max_requests" yaml:"max_requests"`
	// Interval 是闭合状态下计数清零的周期
	Interval time.Duration `koanf:"interval" yaml:"interval"`
	// Timeout 是打开状态持续多久后进入半开
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	// ConsecutiveFailures 连续失败多少次后打开
	ConsecutiveFailures uint32 `koanf:"consecutive_failures" yaml:"consecutive_failures"`
}

// DefaultBreakerConfig 返回默认配置。
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         3,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

func newBreaker[T any](name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[T] {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || passThrough(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// passThrough 判断 err 是否为上游的正常应答（找不到、不支持），这类错误不计为失败，也不改写。
func passThrough(err error) bool {
	return core.IsNotFound(err) || core.IsNotSupported(err)
}

// unavailable 把上游错误包装为领域错误，NOT_FOUND 与 NOT_SUPPORTED 原样返回。
func unavailable(base *core.DomainError, err error) error {
	if err == nil || passThrough(err) {
		return err
	}
	if errors.Is(err, base) {
		return err
	}
	return base.Wrap(err)
}

// GuardedCatalog 为目录源加上熔断保护，上游错误统一映射为 ErrCatalogUnavailable。
type GuardedCatalog struct {
	inner core.CatalogSource
	list  *gobreaker.CircuitBreaker[[]*core.Article]
	name  *gobreaker.CircuitBreaker[string]
}

// NewGuardedCatalog 包装目录源。
func NewGuardedCatalog(inner core.CatalogSource, cfg BreakerConfig) *GuardedCatalog {
	return &GuardedCatalog{
		inner: inner,
		list:  newBreaker[[]*core.Article]("catalog.list", cfg),
		name:  newBreaker[string]("catalog.resolve_name", cfg),
	}
}

func (g *GuardedCatalog) ListArticles(ctx context.Context) ([]*core.Article, error) {
	out, err := g.list.Execute(func() ([]*core.Article, error) {
		return g.inner.ListArticles(ctx)
	})
	return out, unavailable(core.ErrCatalogUnavailable, err)
}

func (g *GuardedCatalog) ResolveName(ctx context.Context, itemID string) (string, error) {
	out, err := g.name.Execute(func() (string, error) {
		return g.inner.ResolveName(ctx, itemID)
	})
	return out, unavailable(core.ErrCatalogUnavailable, err)
}

// GuardedUsers 为用户存储加上熔断保护，上游错误统一映射为 ErrUsersUnavailable。
type GuardedUsers struct {
	inner core.UserStore
	get   *gobreaker.CircuitBreaker[*core.User]
	list  *gobreaker.CircuitBreaker[[]*core.User]
}

// NewGuardedUsers 包装用户存储。
func NewGuardedUsers(inner core.UserStore, cfg BreakerConfig) *GuardedUsers {
	return &GuardedUsers{
		inner: inner,
		get:   newBreaker[*core.User]("users.get", cfg),
		list:  newBreaker[[]*core.User]("users.list", cfg),
	}
}

func (g *GuardedUsers) GetUser(ctx context.Context, userID string) (*core.User, error) {
	out, err := g.get.Execute(func() (*core.User, error) {
		return g.inner.GetUser(ctx, userID)
	})
	return out, unavailable(core.ErrUsersUnavailable, err)
}

func (g *GuardedUsers) ListUsers(ctx context.Context) ([]*core.User, error) {
	out, err := g.list.Execute(func() ([]*core.User, error) {
		return g.inner.ListUsers(ctx)
	})
	return out, unavailable(core.ErrUsersUnavailable, err)
}

var (
	_ core.CatalogSource = (*GuardedCatalog)(nil)
	_ core.UserStore     = (*GuardedUsers)(nil)
)
