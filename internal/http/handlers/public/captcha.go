package public

import (
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

// GetImageCaptcha 领取页与登录页共用的图片验证码
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, response.CodeServiceUnavailable, "error.captcha_unavailable", service.ErrCaptchaConfigInvalid)
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		rules := []handlerMappedError{{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeBadRequest, Key: "error.captcha_unavailable"}}
		respondMappedError(c, err, rules, response.CodeInternal, "error.captcha_generate_failed")
		return
	}
	response.Success(c, gin.H{
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
