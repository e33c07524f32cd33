package profile

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// KVStore 是基于 core.Store 接口的画像存储适配器（Redis / SQLite / 内存）。
// 画像以 JSON 保存，key 为 {KeyPrefix}:profile:{userID}。
type KVStore struct {
	store core.Store

	KeyPrefix string

	// TTL 秒，0 表示不过期
	TTL int
}

// NewKVStore 创建一个基于 core.Store 的画像存储。
func NewKVStore(s core.Store, keyPrefix string) *KVStore {
	if keyPrefix == "" {
		keyPrefix = "artrec"
	}
	return &KVStore{store: s, KeyPrefix: keyPrefix}
}

func (a *KVStore) key(userID string) string {
	return a.KeyPrefix + ":profile:" + core.CanonicalID(userID)
}

func (a *KVStore) GetProfile(ctx context.Context, userID string) (*core.ProfileVector, error) {
	data, err := a.store.Get(ctx, a.key(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrProfileNotFound
		}
		return nil, err
	}

	var p core.ProfileVector
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *KVStore) SaveProfiles(ctx context.Context, profiles []*core.ProfileVector) error {
	kvs := make(map[string][]byte, len(profiles))
	for _, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		kvs[a.key(p.UserID)] = data
	}
	if len(kvs) == 0 {
		return nil
	}
	return a.store.BatchSet(ctx, kvs, a.TTL)
}

// 确保实现 ProfileStore 接口
var _ core.ProfileStore = (*KVStore)(nil)
