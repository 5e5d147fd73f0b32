package counter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/constants"

	"github.com/redis/go-redis/v9"
)

const fieldQuantity = "quantity"

// 返回值：-1 不存在，-2 已领完，-3 已过期，其余为扣减后的剩余数量
var decrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if ARGV[2] == '1' then
	local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at_ms') or '0')
	if exp > 0 and tonumber(ARGV[1]) > exp then
		return -3
	end
end
local q = tonumber(redis.call('HGET', KEYS[1], 'quantity') or '0')
if q <= 0 then
	return -2
end
return redis.call('HINCRBY', KEYS[1], 'quantity', -1)
`)

var initScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'quantity', ARGV[1], 'expires_at_ms', ARGV[2])
return 1
`)

var setExpiryScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'expires_at_ms', ARGV[1])
return 1
`)

// RedisStore 以 Lua 脚本在 Redis Hash 上完成条件递减
type RedisStore struct {
	client      redis.UniversalClient
	prefix      string
	checkExpiry bool
}

// NewRedisStore 创建 Redis 计数存储
func NewRedisStore(client redis.UniversalClient, prefix string, opts Options) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = constants.RedisPrefixDefault
	}
	return &RedisStore{client: client, prefix: prefix, checkExpiry: opts.CheckExpiry}
}

// Backend 后端名称
func (s *RedisStore) Backend() string {
	return constants.CounterBackendRedis
}

func (s *RedisStore) key(cardID uint) string {
	return fmt.Sprintf("%s:counter:card:%d", s.prefix, cardID)
}

// Init 写入初始计数
func (s *RedisStore) Init(ctx context.Context, cardID uint, quantity int, expiresAt *time.Time) error {
	if quantity < 0 {
		return fmt.Errorf("invalid initial quantity %d", quantity)
	}
	return initScript.Run(ctx, s.client, []string{s.key(cardID)}, quantity, expiryMillis(expiresAt)).Err()
}

// TryDecrement 单次 EVALSHA 完成判定与扣减
func (s *RedisStore) TryDecrement(ctx context.Context, cardID uint, now time.Time) (int, error) {
	check := "0"
	if s.checkExpiry {
		check = "1"
	}
	res, err := decrementScript.Run(ctx, s.client, []string{s.key(cardID)}, now.UTC().UnixMilli(), check).Int64()
	if err != nil {
		return 0, err
	}
	switch res {
	case -1:
		return 0, ErrNotFound
	case -2:
		return 0, ErrExhausted
	case -3:
		return 0, ErrExpired
	}
	if res < 0 {
		return 0, fmt.Errorf("unexpected counter script result %d", res)
	}
	return int(res), nil
}

// Remaining 读取剩余数量
func (s *RedisStore) Remaining(ctx context.Context, cardID uint) (int, error) {
	val, err := s.client.HGet(ctx, s.key(cardID), fieldQuantity).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// SetExpiry 更新过期时间，计数不存在时忽略
func (s *RedisStore) SetExpiry(ctx context.Context, cardID uint, expiresAt *time.Time) error {
	return setExpiryScript.Run(ctx, s.client, []string{s.key(cardID)}, expiryMillis(expiresAt)).Err()
}

// Remove 删除计数
func (s *RedisStore) Remove(ctx context.Context, cardID uint) error {
	return s.client.Del(ctx, s.key(cardID)).Err()
}
