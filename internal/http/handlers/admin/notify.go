package admin

import (
	"strings"

	"github.com/qrewards/qrewards/internal/constants"
	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

// NotifyTestRequest 通知渠道测试请求
type NotifyTestRequest struct {
	Channel string `json:"channel" binding:"required"`
	Contact string `json:"contact" binding:"required"`
	Locale  string `json:"locale"`
}

// TestNotify 通过当前配置的渠道发送一条测试消息
func (h *Handler) TestNotify(c *gin.Context) {
	var req NotifyTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = i18n.ResolveLocale(c)
	}
	contact := strings.TrimSpace(req.Contact)

	var err error
	switch strings.ToLower(strings.TrimSpace(req.Channel)) {
	case constants.ClaimChannelEmail:
		err = h.EmailService.SendTestEmail(contact, locale)
	case constants.ClaimChannelSMS:
		err = h.SMSService.SendTestSMS(c.Request.Context(), contact, locale)
	default:
		err = service.ErrClaimChannelInvalid
	}
	if err != nil {
		requestLog(c).Warnw("admin_notify_test_failed", "channel", req.Channel, "error", err)
		respondMappedError(c, err, handlershared.NotifyErrorRules, response.CodeInternal, "error.notify_failed")
		return
	}

	response.Success(c, gin.H{"sent": true})
}
