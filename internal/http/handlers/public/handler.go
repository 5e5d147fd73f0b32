package public

import "github.com/qrewards/qrewards/internal/provider"

// Handler 扫码领取页使用的游客接口，无需登录
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
