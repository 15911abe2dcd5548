package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"stockwatch/internal/adapters/config"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
)

// Client wraps go-redis and serves as the shared kvstore backend across replicas
type Client struct {
	rdb    *redis.Client
	prefix string
}

var (
	_ kvstore.Store  = (*Client)(nil)
	_ kvstore.Locker = (*Client)(nil)
)

// NewClient connects and pings Redis
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	return &Client{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) key(k string) string {
	return c.prefix + k
}

// Set stores value as JSON. ttl 0 keeps the key until deleted.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode key %s", key)
	}
	return c.rdb.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *Client) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get key %s", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrapf(err, "decode key %s", key)
	}
	return true, nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// TryLock takes a SET NX lease; an abandoned lease expires after ttl
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, c.key(kvstore.LockKey(key)), "1", ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "lock %s", key)
	}
	return ok, nil
}

func (c *Client) Unlock(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(kvstore.LockKey(key))).Err()
}
