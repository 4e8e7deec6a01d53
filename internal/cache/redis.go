// Package cache 排行榜结果缓存：配置 Redis 时跨实例共享，否则使用进程内缓存
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ProgressSync/internal/config"
	"ProgressSync/internal/interfaces"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache 读写失败只记录日志，按未命中处理
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
	logger *logrus.Logger
}

var _ interfaces.LeaderboardCache = (*RedisCache)(nil)

// NewRedisCache 连接 Redis 并 ping 校验
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("未配置 redis.addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisCache(rdb, cfg.Prefix, logger), nil
}

func newRedisCache(rdb *goredis.Client, prefix string, logger *logrus.Logger) *RedisCache {
	if prefix == "" {
		prefix = "progresssync:leaderboard:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("读取排行榜缓存失败")
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("写入排行榜缓存失败")
	}
}

// Invalidate 删除前缀下的全部键
func (c *RedisCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("扫描排行榜缓存失败: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("删除排行榜缓存失败: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
