package admin

import "github.com/qrewards/qrewards/internal/provider"

// Handler 管理端接口，JWT 与 RBAC 由路由层中间件完成，这里只做参数解析与响应
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
