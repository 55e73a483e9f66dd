package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"HederaDEX-Agent/internal/dex"
	"HederaDEX-Agent/pkg/logger"
)

// Config 描述 Redis 连接与缓存键。
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type store interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// DecimalsCache 实现 dex.MetadataService。缓存不可用时直接回源。
type DecimalsCache struct {
	client store
	closer func() error
	next   dex.MetadataService
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// Dial 连接 Redis 并在 next 前包装一层缓存。
func Dial(ctx context.Context, cfg Config, next dex.MetadataService) (*DecimalsCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	cache := NewDecimalsCache(client, next, cfg.Prefix, cfg.TTL)
	cache.closer = client.Close
	return cache, nil
}

// NewDecimalsCache 使用已有客户端构建缓存。
func NewDecimalsCache(client store, next dex.MetadataService, prefix string, ttl time.Duration) *DecimalsCache {
	if prefix == "" {
		prefix = "hederadex:decimals:"
	}
	return &DecimalsCache{
		client: client,
		next:   next,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.Named("decimals-cache"),
	}
}

func (c *DecimalsCache) key(network, assetID string) string {
	return c.prefix + network + ":" + strings.ToLower(strings.TrimSpace(assetID))
}

// Decimals 先查 Redis，未命中时回源并写回。
func (c *DecimalsCache) Decimals(ctx context.Context, network, assetID string) (string, error) {
	key := c.key(network, assetID)
	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		return cached, nil
	case err != nil && !errors.Is(err, goredis.Nil):
		c.logger.Warn("读取精度缓存失败", slog.String("key", key), slog.Any("error", err))
	}

	value, err := c.next.Decimals(ctx, network, assetID)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("写入精度缓存失败", slog.String("key", key), slog.Any("error", err))
	}
	return value, nil
}

// Close 关闭由 Dial 创建的连接。
func (c *DecimalsCache) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}
