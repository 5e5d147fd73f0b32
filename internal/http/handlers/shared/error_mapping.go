package shared

import (
	"errors"

	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 业务错误到接口错误响应的映射
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RespondMappedError 按规则表顺序匹配错误，未命中时使用兜底响应并记录原始错误。
// 错误链里已有 AppError 时直接使用它的业务码与文案
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	if appErr, ok := response.AsAppError(err); ok {
		respondAppError(c, appErr)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedErrors 合并多组规则
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

// CaptchaErrorRules 验证码错误
var CaptchaErrorRules = []MappedError{
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Key: "error.captcha_required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Key: "error.captcha_invalid"},
	{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeInternal, Key: "error.captcha_config_invalid"},
	{Target: service.ErrCaptchaVerifyFailed, Code: response.CodeInternal, Key: "error.captcha_verify_failed"},
}

// CardErrorRules 卡片读取错误
var CardErrorRules = []MappedError{
	{Target: service.ErrCardNotFound, Code: response.CodeNotFound, Key: "error.card_not_found"},
	{Target: service.ErrCardInvalid, Code: response.CodeBadRequest, Key: "error.card_invalid"},
	{Target: service.ErrClaimStoreUnavailable, Code: response.CodeServiceUnavailable, Key: "error.claim_store_unavailable"},
}

// ClaimErrorRules 领取流程错误
// ErrClaimRecordFailed 必须排在 ErrClaimStoreUnavailable 之前：记录失败时库存已扣减
var ClaimErrorRules = ConcatMappedErrors(CaptchaErrorRules, []MappedError{
	{Target: service.ErrClaimContactInvalid, Code: response.CodeBadRequest, Key: "error.claim_contact_invalid"},
	{Target: service.ErrClaimChannelInvalid, Code: response.CodeBadRequest, Key: "error.claim_channel_invalid"},
	{Target: service.ErrCardNotFound, Code: response.CodeNotFound, Key: "error.card_not_found"},
	{Target: service.ErrCardDisabled, Code: response.CodeBadRequest, Key: "error.card_disabled"},
	{Target: service.ErrCardExpired, Code: response.CodeBadRequest, Key: "error.card_expired"},
	{Target: service.ErrCardExhausted, Code: response.CodeBadRequest, Key: "error.card_exhausted"},
	{Target: service.ErrClaimCooldown, Code: response.CodeTooManyRequests, Key: "error.claim_cooldown"},
	{Target: service.ErrClaimRecordFailed, Code: response.CodeInternal, Key: "error.claim_record_failed"},
	{Target: service.ErrClaimStoreUnavailable, Code: response.CodeServiceUnavailable, Key: "error.claim_store_unavailable"},
})

// UploadErrorRules 上传错误
var UploadErrorRules = []MappedError{
	{Target: service.ErrUploadTooLarge, Code: response.CodeBadRequest, Key: "error.upload_too_large"},
	{Target: service.ErrUploadTypeNotAllowed, Code: response.CodeBadRequest, Key: "error.upload_type_not_allowed"},
	{Target: service.ErrUploadImageOversize, Code: response.CodeBadRequest, Key: "error.upload_image_oversize"},
	{Target: service.ErrUploadImageUnreadable, Code: response.CodeBadRequest, Key: "error.upload_type_not_allowed"},
}

// PasswordErrorRules 修改密码错误
var PasswordErrorRules = []MappedError{
	{Target: service.ErrInvalidPassword, Code: response.CodeBadRequest, Key: "error.password_old_invalid"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Key: "error.password_weak"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.admin_not_found"},
}

// NotifyErrorRules 通知重发与测试发送错误
var NotifyErrorRules = []MappedError{
	{Target: service.ErrClaimNotFound, Code: response.CodeNotFound, Key: "error.claim_not_found"},
	{Target: service.ErrNotificationAlreadySent, Code: response.CodeBadRequest, Key: "error.notification_already_sent"},
	{Target: service.ErrEmailServiceDisabled, Code: response.CodeBadRequest, Key: "error.email_disabled"},
	{Target: service.ErrEmailServiceNotConfigured, Code: response.CodeBadRequest, Key: "error.email_disabled"},
	{Target: service.ErrSMSServiceDisabled, Code: response.CodeBadRequest, Key: "error.sms_disabled"},
	{Target: service.ErrSMSServiceNotConfigured, Code: response.CodeBadRequest, Key: "error.sms_disabled"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.claim_contact_invalid"},
	{Target: service.ErrInvalidPhone, Code: response.CodeBadRequest, Key: "error.claim_contact_invalid"},
	{Target: service.ErrEmailRecipientRejected, Code: response.CodeBadRequest, Key: "error.claim_contact_invalid"},
	{Target: service.ErrClaimChannelInvalid, Code: response.CodeBadRequest, Key: "error.claim_channel_invalid"},
}
