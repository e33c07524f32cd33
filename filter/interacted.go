package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/logging"
)

// interactedParam 是请求内缓存已交互集合的参数 key
const interactedParam = "filter.interacted_ids"

// InteractedFilter 过滤掉用户已经点赞、收藏或阅读过的物品（ID 规范化后比较）。
//
// 用户优先取 rctx.User；没有时从 Users 读取。读取失败时不排除任何物品，
// 只影响结果新鲜度，不让请求失败。
type InteractedFilter struct {
	Users core.UserStore
}

// NewInteractedFilter 创建已交互过滤器；users 可以为 nil。
func NewInteractedFilter(users core.UserStore) *InteractedFilter {
	return &InteractedFilter{Users: users}
}

func (f *InteractedFilter) Name() string {
	return "filter.interacted"
}

func (f *InteractedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}
	_, ok := f.interacted(ctx, rctx)[core.CanonicalID(item.ID)]
	return ok, nil
}

func (f *InteractedFilter) interacted(ctx context.Context, rctx *core.RecommendContext) map[string]struct{} {
	if ids, ok := rctx.Params[interactedParam].(map[string]struct{}); ok {
		return ids
	}
	if rctx.User == nil && rctx.UserID != "" && f.Users != nil {
		u, err := f.Users.GetUser(ctx, rctx.UserID)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", rctx.UserID).Msg("load interactions failed, nothing excluded")
		} else {
			rctx.User = u
		}
	}
	ids := rctx.User.InteractedIDs()
	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params[interactedParam] = ids
	return ids
}
