package service

import "errors"

// 通用错误
var (
	ErrNotFound              = errors.New("记录不存在")
	ErrInvalidCredentials    = errors.New("用户名或密码错误")
	ErrInvalidPassword       = errors.New("原密码错误")
	ErrWeakPassword          = errors.New("密码强度不足")
	ErrDashboardRangeInvalid = errors.New("统计区间无效")
)

// 验证码错误
var (
	ErrCaptchaRequired      = errors.New("需要验证码")
	ErrCaptchaInvalid       = errors.New("验证码错误")
	ErrCaptchaConfigInvalid = errors.New("验证码配置无效")
	ErrCaptchaVerifyFailed  = errors.New("验证码校验服务异常")
)

// 通知渠道错误
var (
	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrInvalidEmail              = errors.New("邮箱格式无效")
	ErrEmailRecipientRejected    = errors.New("收件人被拒绝")
	ErrSMSServiceDisabled        = errors.New("短信服务未启用")
	ErrSMSServiceNotConfigured   = errors.New("短信服务未配置")
	ErrInvalidPhone              = errors.New("手机号格式无效")
)

// 上传错误
var (
	ErrUploadTooLarge        = errors.New("文件大小超过限制")
	ErrUploadTypeNotAllowed  = errors.New("文件类型不被允许")
	ErrUploadImageOversize   = errors.New("图片尺寸超过限制")
	ErrUploadImageUnreadable = errors.New("无法解析图片")
)

// 卡片错误
var (
	ErrCardNotFound  = errors.New("卡片不存在")
	ErrCardInvalid   = errors.New("卡片参数无效")
	ErrCardExhausted = errors.New("奖励已领完")
	ErrCardExpired   = errors.New("卡片已过期")
	ErrCardDisabled  = errors.New("卡片已停用")
)

// 领取错误
var (
	ErrClaimStoreUnavailable = errors.New("库存存储不可用")
	ErrClaimRecordFailed     = errors.New("领取记录写入失败")
	ErrClaimContactInvalid   = errors.New("联系方式无效")
	ErrClaimChannelInvalid   = errors.New("通知渠道无效")
	ErrClaimCooldown         = errors.New("领取过于频繁")
	ErrClaimNotFound         = errors.New("领取记录不存在")
)

// 通知错误
var (
	ErrNotificationNotFound    = errors.New("通知不存在")
	ErrNotificationAlreadySent = errors.New("通知已发送")
)
