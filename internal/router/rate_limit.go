package router

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中取限流维度，返回空串时退回客户端 IP
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流，可选超限后封禁一段时间
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// KEYS[1] 计数，KEYS[2] 封禁标记；ARGV 依次为窗口、上限、封禁时长
// 返回 {count, ttl}，count = -1 表示仍在封禁期
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {-1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local block = tonumber(ARGV[3])
if current > tonumber(ARGV[2]) and block > 0 then
	redis.call("SET", KEYS[2], "1", "EX", block)
	return {current, block}
end
return {current, redis.call("TTL", KEYS[1])}
`)

// RateLimitMiddleware client 为 nil（未启用 Redis）时直接放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		key := rateLimitKey(c, rule.Prefix, keyFunc)
		res, err := rateLimitScript.Run(c.Request.Context(), client,
			[]string{key, key + ":block"},
			rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds,
		).Int64Slice()
		if err != nil || len(res) < 2 {
			logger.Warnw("rate_limit_eval_failed", "prefix", rule.Prefix, "error", err)
			response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}

		count, ttl := res[0], res[1]
		if count >= 0 && count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}
		wait := int(ttl)
		if wait < 1 {
			wait = max(rule.WindowSeconds, 1)
		}
		logger.Infow("rate_limited", "prefix", rule.Prefix, "client_ip", c.ClientIP(), "wait_seconds", wait)
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, wait))
		c.Abort()
	}
}

func rateLimitKey(c *gin.Context, prefix string, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 以 JSON 请求体中的字段加 IP 作为维度，读取后还原请求体
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(peekJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func peekJSONField(c *gin.Context, field string) string {
	if c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
