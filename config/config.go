package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feast"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/rerank"
	"github.com/rushteam/artrec/source"
)

// EnvPrefix 是环境变量前缀：ARTREC_MONGO_URI -> mongo.uri
const EnvPrefix = "ARTREC_"

// ConfigPathEnvVar 可覆盖配置文件路径
const ConfigPathEnvVar = "ARTREC_CONFIG"

// DefaultConfigPaths 按顺序查找配置文件，使用第一个存在的。
var DefaultConfigPaths = []string{
	"artrec.yaml",
	"artrec.yml",
	"/etc/artrec/artrec.yaml",
}

// 后端类型
const (
	BackendMongo  = "mongo"
	BackendFile   = "file"
	BackendFeast  = "feast"
	BackendCSV    = "csv"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config 是引擎的完整配置。
type Config struct {
	Log      logging.Config        `koanf:"log"`
	Snapshot SnapshotConfig        `koanf:"snapshot"`
	Catalog  BackendConfig         `koanf:"catalog"`
	Users    BackendConfig         `koanf:"users"`
	Mongo    source.MongoConfig    `koanf:"mongo"`
	Breaker  source.BreakerConfig  `koanf:"breaker"`
	Redis    RedisConfig           `koanf:"redis"`
	SQLite   SQLiteConfig          `koanf:"sqlite"`
	Feast    feast.Config          `koanf:"feast"`
	Profile  ProfileConfig         `koanf:"profile"`
	Ranking  RankingConfig         `koanf:"ranking"`
	Fallback recall.FallbackPolicy `koanf:"fallback"`
	Server   ServerConfig          `koanf:"server"`
}

// SnapshotConfig 是快照文件路径。
type SnapshotConfig struct {
	// MatrixPath 物品特征矩阵 CSV
	MatrixPath string `koanf:"matrix_path"`
	// ProfilesPath 用户画像 CSV（profile.store=csv 时使用）
	ProfilesPath string `koanf:"profiles_path"`
	// CatalogFile / UsersFile 是 file 后端的 JSON 文件
	CatalogFile string `koanf:"catalog_file"`
	UsersFile   string `koanf:"users_file"`
}

// BackendConfig 选择目录或用户存储的后端。
type BackendConfig struct {
	Backend string `koanf:"backend"`
}

// RedisConfig 是 Redis 连接配置。
type RedisConfig struct {
	Addr      string        `koanf:"addr"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
}

// SQLiteConfig 是嵌入式存储配置。
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ProfileConfig 是画像构建与持久化配置。
type ProfileConfig struct {
	Weights core.InteractionWeights `koanf:"weights"`
	// Store: csv / redis / sqlite / memory
	Store string `koanf:"store"`
	// Concurrency 批量重建的并发数
	Concurrency int `koanf:"concurrency"`
}

// RankingConfig 是个性化排序与降级配置。
type RankingConfig struct {
	DefaultCount int     `koanf:"default_count"`
	Widen        int     `koanf:"widen"`
	NeutralScore float64 `koanf:"neutral_score"`
	MinPercent   int     `koanf:"min_percent"`
	MaxPercent   int     `koanf:"max_percent"`
	// Blacklist 全局屏蔽的物品 ID
	Blacklist []string `koanf:"blacklist"`
	// PipelineFile 可选的 Pipeline YAML，为空时使用内置 Pipeline
	PipelineFile string `koanf:"pipeline_file"`
	// FallbackSeed 非 0 时降级抽样使用固定种子
	FallbackSeed uint64 `koanf:"fallback_seed"`
}

// ServerConfig 是 HTTP 服务配置。
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// RequestTimeout 单个推荐请求的超时
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Default 返回带默认值的配置。
func Default() *Config {
	return &Config{
		Log: logging.DefaultConfig(),
		Snapshot: SnapshotConfig{
			MatrixPath:   "data/article_features.csv",
			ProfilesPath: "data/user_profiles.csv",
			CatalogFile:  "data/articles.json",
			UsersFile:    "data/users.json",
		},
		Catalog: BackendConfig{Backend: BackendMongo},
		Users:   BackendConfig{Backend: BackendMongo},
		Mongo:   source.DefaultMongoConfig(),
		Breaker: source.DefaultBreakerConfig(),
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "artrec",
		},
		SQLite: SQLiteConfig{Path: "data/artrec.db"},
		Feast:  feast.DefaultConfig(),
		Profile: ProfileConfig{
			Weights:     core.DefaultInteractionWeights(),
			Store:       BackendCSV,
			Concurrency: 8,
		},
		Ranking: RankingConfig{
			DefaultCount: 5,
			Widen:        rerank.DefaultWiden,
			NeutralScore: recall.DefaultNeutralScore,
			MinPercent:   30,
			MaxPercent:   95,
		},
		Fallback: recall.DefaultFallbackPolicy(),
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
	}
}

// Load 按 默认值 -> YAML 文件 -> ARTREC_ 环境变量 的顺序加载配置并校验。
// path 为空时依次查找 ARTREC_CONFIG 与 DefaultConfigPaths，找不到文件时只用默认值和环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// 逗号分隔的环境变量转为列表
	if raw, ok := k.Get("ranking.blacklist").(string); ok {
		if err := k.Set("ranking.blacklist", splitList(raw)); err != nil {
			return nil, fmt.Errorf("parse ranking.blacklist: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Log.Output == nil {
		cfg.Log.Output = os.Stderr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate 校验取值范围与后端类型。
func (c *Config) Validate() error {
	switch c.Catalog.Backend {
	case BackendMongo, BackendFile:
	default:
		return fmt.Errorf("catalog.backend: unknown backend %q", c.Catalog.Backend)
	}
	switch c.Users.Backend {
	case BackendMongo, BackendFile, BackendFeast:
	default:
		return fmt.Errorf("users.backend: unknown backend %q", c.Users.Backend)
	}
	switch c.Profile.Store {
	case BackendCSV, BackendRedis, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("profile.store: unknown backend %q", c.Profile.Store)
	}
	if c.Profile.Store == BackendCSV && c.Snapshot.ProfilesPath == "" {
		return fmt.Errorf("snapshot.profiles_path is required for the csv profile store")
	}
	if c.Profile.Concurrency < 0 {
		return fmt.Errorf("profile.concurrency must not be negative")
	}
	w := c.Profile.Weights
	if w.Like < 0 || w.Favorite < 0 || w.Read < 0 {
		return fmt.Errorf("profile.weights must not be negative")
	}
	if c.Ranking.DefaultCount < 0 {
		return fmt.Errorf("ranking.default_count must not be negative")
	}
	if c.Ranking.Widen < 0 {
		return fmt.Errorf("ranking.widen must not be negative")
	}
	if c.Ranking.MinPercent < 0 || c.Ranking.MaxPercent > 100 || c.Ranking.MinPercent > c.Ranking.MaxPercent {
		return fmt.Errorf("ranking percent clamp [%d,%d] is invalid", c.Ranking.MinPercent, c.Ranking.MaxPercent)
	}
	if err := c.Fallback.Validate(); err != nil {
		return err
	}
	if c.Users.Backend == BackendFeast && c.Feast.Host == "" {
		return fmt.Errorf("feast.host is required for the feast users backend")
	}
	return nil
}

// envTransform 把 ARTREC_RANKING_DEFAULT_COUNT 转为 ranking.default_count：
// 去掉前缀并转小写，第一个下划线作为段分隔符。
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	return strings.Replace(key, "_", ".", 1)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
