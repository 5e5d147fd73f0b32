package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"

	"github.com/redis/go-redis/v9"
)

// ErrDisabled 未启用 Redis
var ErrDisabled = errors.New("redis disabled")

// 进程级单例；未启用时 client 为 nil，读写操作全部降级为未命中/空操作
var (
	client *redis.Client
	prefix = constants.RedisPrefixDefault
)

// InitRedis 按配置创建客户端，不做连通性检查（见 Ping）
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	Use(redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}), cfg.Prefix)
	return nil
}

// Use 注入客户端，nil 表示禁用；测试与 qrctl 直接调用
func Use(c *redis.Client, keyPrefix string) {
	client = c
	prefix = strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = constants.RedisPrefixDefault
	}
}

func Enabled() bool {
	return client != nil
}

// Client 未启用时返回 nil
func Client() *redis.Client {
	return client
}

func Ping(ctx context.Context) error {
	if client == nil {
		return ErrDisabled
	}
	return client.Ping(ctx).Err()
}

func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// GetJSON 命中时反序列化到 dest
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, Key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, Key(key), raw, ttl).Err()
}

func Del(ctx context.Context, keys ...string) error {
	if client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = Key(k)
	}
	return client.Del(ctx, full...).Err()
}

// Key 拼接全局前缀，如 qrewards:card:view:<code>
func Key(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return prefix
	}
	return prefix + ":" + key
}
