package feast

import (
	"context"
	"fmt"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/conv"
)

// UserStore 从 Feast 在线特征读取用户交互与兴趣，实现 core.UserStore。
//
// 每个用户对应一个实体行，likes/favorites/read/interests 为 string list 特征。
// 在线存储不支持枚举实体，ListUsers 需要 IDs 提供用户列表。
type UserStore struct {
	Client Client
	Config Config

	// IDs 枚举用户 ID；为空时 ListUsers 返回不支持错误
	IDs func(ctx context.Context) ([]string, error)
}

// NewUserStore 创建 Feast 用户存储。
func NewUserStore(client Client, cfg Config) *UserStore {
	if cfg.EntityKey == "" {
		cfg.EntityKey = DefaultConfig().EntityKey
	}
	return &UserStore{Client: client, Config: cfg}
}

func (s *UserStore) features() []string {
	out := make([]string, 0, 4)
	for _, f := range []string{s.Config.LikesFeature, s.Config.FavoritesFeature, s.Config.ReadFeature, s.Config.InterestsFeature} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// GetUser 读取单个用户；所有特征都为空时视为用户不存在。
func (s *UserStore) GetUser(ctx context.Context, userID string) (*core.User, error) {
	users, err := s.fetch(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0] == nil {
		return nil, core.ErrUserNotFound
	}
	return users[0], nil
}

// ListUsers 通过 IDs 枚举用户后批量读取特征。
func (s *UserStore) ListUsers(ctx context.Context) ([]*core.User, error) {
	if s.IDs == nil {
		return nil, core.NewDomainError(core.ModuleUsers, core.ErrorCodeNotSupported, "feast: listing users requires an id source")
	}
	ids, err := s.IDs(ctx)
	if err != nil {
		return nil, core.ErrUsersUnavailable.Wrap(err)
	}
	users, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*core.User, 0, len(users))
	for _, u := range users {
		if u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserStore) fetch(ctx context.Context, ids []string) ([]*core.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if s.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.Timeout)
		defer cancel()
	}

	rows := make([]map[string]any, len(ids))
	for i, id := range ids {
		rows[i] = map[string]any{s.Config.EntityKey: id}
	}
	resp, err := s.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   s.features(),
		EntityRows: rows,
		Project:    s.Config.Project,
	})
	if err != nil {
		return nil, core.ErrUsersUnavailable.Wrap(err)
	}
	if len(resp.FeatureVectors) != len(ids) {
		return nil, core.ErrUsersUnavailable.Wrap(
			fmt.Errorf("feast: expected %d rows, got %d", len(ids), len(resp.FeatureVectors)))
	}

	users := make([]*core.User, len(ids))
	for i, vec := range resp.FeatureVectors {
		if len(vec.Values) == 0 {
			continue
		}
		users[i] = &core.User{
			UserID:    ids[i],
			Likes:     stringList(vec.Values[s.Config.LikesFeature]),
			Favorites: stringList(vec.Values[s.Config.FavoritesFeature]),
			Read:      stringList(vec.Values[s.Config.ReadFeature]),
			Interests: stringList(vec.Values[s.Config.InterestsFeature]),
		}
	}
	return users, nil
}

func stringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []float64:
		out := make([]string, len(val))
		for i, f := range val {
			out[i] = conv.FormatCell(f)
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return []string{fmt.Sprint(val)}
	}
}

var _ core.UserStore = (*UserStore)(nil)
