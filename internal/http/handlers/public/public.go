package public

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/constants"
	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

const healthzTimeout = 2 * time.Second

// ClaimRequest 扫码领取请求
type ClaimRequest struct {
	Contact        string                       `json:"contact" binding:"required"`
	Channel        string                       `json:"channel" binding:"required"`
	Locale         string                       `json:"locale"`
	CaptchaPayload handlershared.CaptchaPayload `json:"captcha_payload"`
}

// GetConfig 领取页公开配置
func (h *Handler) GetConfig(c *gin.Context) {
	cooldown := 0
	if h.Config != nil {
		cooldown = h.Config.Claim.CooldownSeconds
	}
	response.Success(c, gin.H{
		"languages":        []string{i18n.LocaleZH, i18n.LocaleTW, i18n.LocaleEN},
		"captcha":          h.CaptchaService.PublicSetting(),
		"cooldown_seconds": cooldown,
		"channels": gin.H{
			constants.ClaimChannelEmail: h.EmailService.Enabled(),
			constants.ClaimChannelSMS:   h.SMSService.Enabled(),
		},
	})
}

// GetCard 公开卡片视图，剩余数量实时读取
func (h *Handler) GetCard(c *gin.Context) {
	view, err := h.CardService.GetPublicView(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondMappedError(c, err, handlershared.CardErrorRules, response.CodeInternal, "error.card_fetch_failed")
		return
	}
	response.Success(c, view)
}

// ClaimCard 领取卡片奖励
func (h *Handler) ClaimCard(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = i18n.ResolveLocale(c)
	}

	result, err := h.ClaimService.Claim(c.Request.Context(), service.ClaimInput{
		Code:     c.Param("code"),
		Contact:  req.Contact,
		Channel:  req.Channel,
		Locale:   locale,
		ClientIP: c.ClientIP(),
		Captcha:  req.CaptchaPayload.Service(),
	})
	if err != nil {
		respondMappedError(c, err, handlershared.ClaimErrorRules, response.CodeServiceUnavailable, "error.service_unavailable")
		return
	}
	response.Success(c, result)
}

// Healthz 存活与依赖检查；数据库不可用时返回 503
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthzTimeout)
	defer cancel()

	checks := gin.H{}
	healthy := true
	if err := pingDB(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}
	if cache.Enabled() {
		if err := cache.Ping(ctx); err != nil {
			// Redis 只影响缓存与冷却，不判定为不健康
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}
	if h.CounterStore != nil {
		checks["counter_backend"] = h.CounterStore.Backend()
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "checks": checks})
}

func pingDB(ctx context.Context) error {
	if models.DB == nil {
		return service.ErrClaimStoreUnavailable
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
