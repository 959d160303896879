package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
	TTL      time.Duration
}

type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisCache(client, cfg.Prefix, cfg.TTL), nil
}

func newRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "emb:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeVector(val)
}

func (c *RedisCache) Set(ctx context.Context, key string, vector []float32) error {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(vector), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
