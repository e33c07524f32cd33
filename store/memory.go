package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/artrec/core"
)

// DefaultSweepInterval 是过期 key 的回收周期
const DefaultSweepInterval = 10 * time.Second

// MemoryStore 是进程内的 Store，用作默认画像存储与测试。
// ttl 以秒为单位，<=0 表示永不过期；重新写入同一个 key 时以最后一次的 ttl 为准。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]record

	// now 可在测试中替换
	now func() time.Time

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// record 的 expiresAt 为零值时永不过期
type record struct {
	value     []byte
	expiresAt time.Time
}

func (r record) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && !now.Before(r.expiresAt)
}

// NewMemoryStore 创建 MemoryStore 并启动后台回收，使用完需要 Close。
func NewMemoryStore() *MemoryStore {
	return newMemoryStore(DefaultSweepInterval)
}

func newMemoryStore(interval time.Duration) *MemoryStore {
	m := &MemoryStore{
		records: make(map[string]record),
		now:     time.Now,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go m.sweepLoop(interval)
	return m
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[key]
	if !ok || r.expired(m.now()) {
		return nil, core.ErrStoreNotFound
	}
	return r.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = record{value: value, expiresAt: m.expiry(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if r, ok := m.records[k]; ok && !r.expired(now) {
			out[k] = r.value
		}
	}
	return out, nil
}

func (m *MemoryStore) BatchSet(_ context.Context, kvs map[string][]byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.expiry(ttl)
	for k, v := range kvs {
		m.records[k] = record{value: v, expiresAt: expiresAt}
	}
	return nil
}

// Close 停止后台回收并等待其退出，可重复调用。
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	<-m.stopped
	return nil
}

func (m *MemoryStore) expiry(ttl []int) time.Time {
	if len(ttl) == 0 || ttl[0] <= 0 {
		return time.Time{}
	}
	return m.now().Add(time.Duration(ttl[0]) * time.Second)
}

func (m *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(m.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep 删除已过期的 key
func (m *MemoryStore) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, r := range m.records {
		if r.expired(now) {
			delete(m.records, k)
		}
	}
}

var _ core.Store = (*MemoryStore)(nil)
