package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/qrewards/qrewards/internal/authz"
	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
	adminhandlers "github.com/qrewards/qrewards/internal/http/handlers/admin"
	publichandlers "github.com/qrewards/qrewards/internal/http/handlers/public"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/provider"
	"github.com/qrewards/qrewards/internal/storage"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:claim", redisPrefix),
		WindowSeconds: cfg.Claim.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Claim.RateLimit.MaxRequests,
		BlockSeconds:  cfg.Claim.RateLimit.BlockSeconds,
		MessageKey:    "error.claim_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 本地存储时直接提供上传的 logo
	if local, ok := c.Storage.(*storage.LocalStore); ok {
		r.Static(local.URLPrefix(), local.Dir())
	}

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
			public.GET("/cards/:code", publicHandler.GetCard)
			public.POST("/cards/:code/claim", RateLimitMiddleware(redisClient, claimRule, KeyByIP), publicHandler.ClaimCard)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 只需登录即可访问的个人接口
			self := admin.Group("", JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				self.GET("/me", adminHandler.GetAdminMe)
				self.PUT("/password", adminHandler.UpdateAdminPassword)
				self.GET("/authz/me", adminHandler.GetAuthzMe)
			}

			// 需要 RBAC 授权的接口
			authorized := self.Group("", AdminRBACMiddleware(c.AuthzService))
			{
				// 仪表盘
				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)

				// 卡片管理
				authorized.GET("/cards", adminHandler.ListCards)
				authorized.POST("/cards", adminHandler.CreateCard)
				authorized.GET("/cards/:id", adminHandler.GetCard)
				authorized.PUT("/cards/:id", adminHandler.UpdateCard)
				authorized.DELETE("/cards/:id", adminHandler.DeleteCard)
				authorized.GET("/cards/:id/qrcode", adminHandler.GetCardQRCode)

				// 文件上传
				authorized.POST("/upload", adminHandler.UploadFile)

				// 领取记录与通知
				authorized.GET("/claims", adminHandler.ListClaims)
				authorized.GET("/claims/export", adminHandler.ExportClaims)
				authorized.POST("/claims/:id/renotify", adminHandler.RenotifyClaim)
				authorized.POST("/notify/test", adminHandler.TestNotify)

				// 审计日志
				authorized.GET("/audit-logs", adminHandler.ListAuditLogs)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			}
		}
	}

	// 健康检查
	r.GET("/healthz", publicHandler.Healthz)
	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"status_code": response.CodeNotFound, "msg": "not found"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
