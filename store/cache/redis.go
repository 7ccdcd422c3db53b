package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hrygo/blubb/internal/profile"
)

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "blubb:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisConfigFromProfile builds a Redis configuration from the profile.
func RedisConfigFromProfile(profile *profile.Profile) *RedisConfig {
	config := DefaultRedisConfig()
	if profile.RedisAddr != "" {
		config.Addr = profile.RedisAddr
	}
	config.Password = profile.RedisPassword
	config.DB = profile.RedisDB
	if profile.RedisPrefix != "" {
		config.KeyPrefix = profile.RedisPrefix
	}
	return config
}

// RedisCache is a Cache backed by a shared Redis instance.
type RedisCache struct {
	client    *goredis.Client
	keyPrefix string
}

// NewRedis connects to Redis and verifies the connection. Errors after this
// point are returned from individual operations and absorbed by callers as
// cache unavailability.
func NewRedis(config *RedisConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{
		client:    client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.fullKey(key), value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.fullKey(key)).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) fullKey(key string) string {
	return r.keyPrefix + key
}
