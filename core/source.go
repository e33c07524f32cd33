package core

import "context"

// CatalogSource 是物品目录的领域接口，由 source 包（Mongo/内存）实现。
//
// 组件本身不持有任何外部连接，连接生命周期由实现方负责。
type CatalogSource interface {
	// ListArticles 返回目录快照中的全部文章
	ListArticles(ctx context.Context) ([]*Article, error)

	// ResolveName 返回物品的展示名；找不到时返回 ErrArticleNotFound（调用方退化为 FallbackName）
	ResolveName(ctx context.Context, itemID string) (string, error)
}

// UserStore 是用户交互数据的领域接口。
type UserStore interface {
	// GetUser 返回单个用户；不存在时返回 ErrUserNotFound
	GetUser(ctx context.Context, userID string) (*User, error)

	// ListUsers 返回全部用户，用于批量重建画像
	ListUsers(ctx context.Context) ([]*User, error)
}

// ProfileStore 是画像向量的持久化接口。
type ProfileStore interface {
	// GetProfile 读取画像；不存在时返回 ErrProfileNotFound
	GetProfile(ctx context.Context, userID string) (*ProfileVector, error)

	// SaveProfiles 批量写入画像（覆盖同一用户的旧画像）
	SaveProfiles(ctx context.Context, profiles []*ProfileVector) error
}
