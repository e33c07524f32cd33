package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/logging"
)

// MongoConfig 是目录/用户数据库的连接配置。
type MongoConfig struct {
	URI                string        `koanf:"uri" yaml:"uri"`
	Database           string        `koanf:"database" yaml:"database"`
	ArticlesCollection string        `koanf:"articles_collection" yaml:"articles_collection"`
	UsersCollection    string        `koanf:"users_collection" yaml:"users_collection"`
	Timeout            time.Duration `koanf:"timeout" yaml:"timeout"`
}

// DefaultMongoConfig 返回默认集合名。
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		Database:           "Online_courses",
		ArticlesCollection: "Articles",
		UsersCollection:    "userAR",
		Timeout:            10 * time.Second,
	}
}

// ConnectMongo 建立连接并 Ping；失败时返回 ErrCatalogUnavailable。
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, core.ErrCatalogUnavailable.Wrap(errors.New("mongo uri is empty"))
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, core.ErrCatalogUnavailable.Wrap(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, core.ErrCatalogUnavailable.Wrap(err)
	}
	return client, nil
}

// MongoCatalog 从 Mongo 集合读取文章目录。
type MongoCatalog struct {
	coll   *mongo.Collection
	logger zerolog.Logger
}

// NewMongoCatalog 创建目录源。
func NewMongoCatalog(client *mongo.Client, cfg MongoConfig) *MongoCatalog {
	return &MongoCatalog{
		coll:   client.Database(cfg.Database).Collection(cfg.ArticlesCollection),
		logger: logging.With().Str("component", "source.mongo_catalog").Logger(),
	}
}

func (c *MongoCatalog) ListArticles(ctx context.Context) ([]*core.Article, error) {
	cur, err := c.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	out := make([]*core.Article, 0, len(docs))
	for _, d := range docs {
		a := DecodeArticle(d)
		if a.ID == "" {
			continue
		}
		out = append(out, a)
	}
	c.logger.Debug().Int("articles", len(out)).Msg("catalog loaded")
	return out, nil
}

// ResolveName 依次按字符串、整数、ObjectID 形式查找物品。
func (c *MongoCatalog) ResolveName(ctx context.Context, itemID string) (string, error) {
	for _, filter := range idFilters(itemID) {
		var doc bson.M
		err := c.coll.FindOne(ctx, filter).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("find article %s: %w", itemID, err)
		}
		return DecodeArticle(doc).DisplayName(), nil
	}
	return "", core.ErrArticleNotFound
}

// MongoUsers 从 Mongo 集合读取用户交互数据。
type MongoUsers struct {
	coll *mongo.Collection
}

// NewMongoUsers 创建用户存储。
func NewMongoUsers(client *mongo.Client, cfg MongoConfig) *MongoUsers {
	return &MongoUsers{coll: client.Database(cfg.Database).Collection(cfg.UsersCollection)}
}

// GetUser 24 位十六进制 ID 按 ObjectID 查询，其余按字符串查询。
func (u *MongoUsers) GetUser(ctx context.Context, userID string) (*core.User, error) {
	var filter bson.M
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		filter = bson.M{"_id": oid}
	} else {
		filter = bson.M{"_id": userID}
	}
	var doc bson.M
	err := u.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}
	return DecodeUser(doc), nil
}

func (u *MongoUsers) ListUsers(ctx context.Context) ([]*core.User, error) {
	cur, err := u.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]*core.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, DecodeUser(d))
	}
	return out, nil
}

var (
	_ core.CatalogSource = (*MongoCatalog)(nil)
	_ core.UserStore     = (*MongoUsers)(nil)
)
