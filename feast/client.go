package feast

import (
	"context"
	"time"
)

// Client 是 Feast Feature Store 在线特征的客户端接口。
//
// 这里只需要在线特征读取：用户的交互列表与兴趣以 list 类型特征保存在 Feast 在线存储中，
// 由 UserStore 适配为 core.UserStore。
//
// 参考：https://github.com/feast-dev/feast
type Client interface {
	// GetOnlineFeatures 获取在线特征
	//
	// 参数：
	//   - features: 特征引用列表，例如 ["user_interactions:likes", "user_interactions:interests"]
	//   - entityRows: 实体行，例如 [{"user_id": "64b7..."}]
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求
type GetOnlineFeaturesRequest struct {
	// Features 特征引用列表
	Features []string

	// EntityRows 实体行
	EntityRows []map[string]any

	// Project 项目名称（可选，为空时使用客户端默认项目）
	Project string
}

// GetOnlineFeaturesResponse 获取在线特征响应
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 特征向量列表，每个元素对应一个实体行
	FeatureVectors []FeatureVector
}

// FeatureVector 特征向量
type FeatureVector struct {
	// Values 特征值，key 为特征引用；缺失（null）的特征不出现
	Values map[string]any

	// EntityRow 对应的实体行
	EntityRow map[string]any
}

// Config 是 Feast 连接与特征映射配置。
type Config struct {
	Host    string        `koanf:"host" yaml:"host"`
	Port    int           `koanf:"port" yaml:"port"`
	Project string        `koanf:"project" yaml:"project"`
	Token   string        `koanf:"token" yaml:"token"`
	TLS     bool          `koanf:"tls" yaml:"tls"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`

	// EntityKey 是用户实体的 join key
	EntityKey string `koanf:"entity_key" yaml:"entity_key"`

	// 用户特征引用
	LikesFeature     string `koanf:"likes_feature" yaml:"likes_feature"`
	FavoritesFeature string `koanf:"favorites_feature" yaml:"favorites_feature"`
	ReadFeature      string `koanf:"read_feature" yaml:"read_feature"`
	InterestsFeature string `koanf:"interests_feature" yaml:"interests_feature"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Port:             6565,
		Timeout:          5 * time.Second,
		EntityKey:        "user_id",
		LikesFeature:     "user_interactions:likes",
		FavoritesFeature: "user_interactions:favorites",
		ReadFeature:      "user_interactions:read",
		InterestsFeature: "user_interactions:interests",
	}
}
