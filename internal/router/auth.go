package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/authz"
	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/repository"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 管理端上下文键，handlers/admin 按同名读取
const (
	ctxAdminID      = "admin_id"
	ctxUsername     = "username"
	ctxAdminIsSuper = "admin_is_super"
)

var errAdminRepoUnavailable = errors.New("admin repository unavailable")

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}

// bearerToken 解析 Authorization 头，失败时返回对应的错误文案键
func bearerToken(header string) (string, string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "error.auth_header_missing"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || scheme != "Bearer" || token == "" {
		return "", "error.auth_header_invalid"
	}
	return token, ""
}

// JWTAuthMiddleware 校验管理员 Token
// 改密或禁用后 TokenVersion / TokenInvalidBefore 变化，旧 Token 立即失效
func JWTAuthMiddleware(secretKey string, adminRepo repository.AdminRepository) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		if secretKey == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		raw, errKey := bearerToken(c.GetHeader("Authorization"))
		if errKey != "" {
			abortUnauthorized(c, errKey)
			return
		}

		claims := &service.JWTClaims{}
		token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid || claims.AdminID == 0 {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		state, err := loadAdminAuthState(c.Request.Context(), claims.AdminID, adminRepo)
		if err != nil || state == nil {
			if err != nil && !errors.Is(err, errAdminRepoUnavailable) {
				logger.Warnw("admin_auth_state_load_failed", "admin_id", claims.AdminID, "error", err)
			}
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		var issuedAt time.Time
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		if !state.Accepts(claims.TokenVersion, issuedAt) {
			abortUnauthorized(c, "error.token_revoked")
			return
		}

		c.Set(ctxAdminID, state.AdminID)
		c.Set(ctxUsername, state.Username)
		c.Set(ctxAdminIsSuper, state.IsSuper)
		c.Next()
	}
}

// loadAdminAuthState 先读 Redis 快照，未命中再查库并回填
func loadAdminAuthState(ctx context.Context, adminID uint, adminRepo repository.AdminRepository) (*cache.AdminAuthState, error) {
	if cached, hit, err := cache.GetAdminAuthState(ctx, adminID); err == nil && hit && cached != nil {
		return cached, nil
	}
	if adminRepo == nil {
		return nil, errAdminRepoUnavailable
	}
	admin, err := adminRepo.GetByID(adminID)
	if err != nil || admin == nil {
		return nil, err
	}
	state := cache.BuildAdminAuthState(admin)
	if err := cache.SetAdminAuthState(ctx, state); err != nil {
		logger.Debugw("admin_auth_state_cache_set_failed", "admin_id", adminID, "error", err)
	}
	return state, nil
}

// AdminRBACMiddleware 按路由模板做 Casbin 判定，超级管理员直接放行
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if isSuper, ok := c.Get(ctxAdminIsSuper); ok {
			if super, _ := isSuper.(bool); super {
				c.Next()
				return
			}
		}

		adminID := contextAdminID(c)
		if adminID == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		// 用路由模板而非实际路径，/admin/cards/:id 才能匹配策略
		resource := strings.TrimSpace(c.FullPath())
		if resource == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, i18n.T(i18n.ResolveLocale(c), "error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func contextAdminID(c *gin.Context) uint {
	value, ok := c.Get(ctxAdminID)
	if !ok {
		return 0
	}
	switch v := value.(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
