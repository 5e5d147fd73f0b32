package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	applog "github.com/qrewards/qrewards/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Locale",
		requestIDHeader,
	}
	// 下载二维码与导出 CSV 时前端需要读取文件名
	corsExposeHeaders = strings.Join([]string{requestIDHeader, "Content-Disposition"}, ", ")
)

// quietPaths 探活类请求只记 debug 日志
var quietPaths = map[string]struct{}{
	"/healthz": {},
}

type corsPolicy struct {
	origins     []string
	wildcard    bool
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(orDefault(cfg.AllowedMethods, defaultCORSMethods), ", "),
		headers:     strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", "),
	}
	for _, origin := range orDefault(cfg.AllowedOrigins, []string{"*"}) {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			p.wildcard = true
			continue
		}
		if origin != "" {
			p.origins = append(p.origins, origin)
		}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin 返回应写入 Access-Control-Allow-Origin 的值，空串表示不允许
// 携带凭证时浏览器不接受 *，需回显来源
func (p corsPolicy) allowOrigin(origin string) string {
	if p.wildcard {
		if p.credentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range p.origins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

// CORSMiddleware 跨域中间件，管理后台与领取页通常部署在不同域名
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowed := policy.allowOrigin(c.GetHeader("Origin")); allowed != "" {
			header.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if policy.credentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", policy.headers)
		header.Set("Access-Control-Allow-Methods", policy.methods)
		header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		if policy.maxAge != "" {
			header.Set("Access-Control-Max-Age", policy.maxAge)
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 沿用上游的 X-Request-ID，没有时生成
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(applog.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		switch {
		case len(c.Errors) > 0:
			log.Errorw("request", "errors", c.Errors.String())
		case isQuietPath(route):
			log.Debugw("request")
		default:
			log.Infow("request")
		}
	}
}

func isQuietPath(route string) bool {
	_, ok := quietPaths[route]
	return ok
}

func getRequestID(c *gin.Context) string {
	if requestID, ok := c.Get(requestIDKey); ok {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
