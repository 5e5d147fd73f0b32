package constants

// 卡片状态常量
const (
	CardStatusActive   = "active"
	CardStatusDisabled = "disabled"
)

// 领取联系方式渠道常量
const (
	ClaimChannelEmail = "email"
	ClaimChannelSMS   = "sms"
)

// 领取通知状态常量
const (
	ClaimNotificationStatusPending = "pending"
	ClaimNotificationStatusSent    = "sent"
	ClaimNotificationStatusFailed  = "failed"
	ClaimNotificationStatusSkipped = "skipped"
)

// 计数存储后端常量
const (
	CounterBackendSQL      = "sql"
	CounterBackendRedis    = "redis"
	CounterBackendDynamoDB = "dynamodb"
)

// 文件存储驱动常量
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// 验证码提供方常量
const (
	CaptchaProviderNone      = "none"
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin = "login"
	CaptchaSceneClaim = "claim"
)

// 队列常量
const (
	QueueDefault     = "default"
	QueueCritical    = "critical"
	TaskClaimNotify  = "claim:notify"
	ClaimNotifyRetry = 3
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "qr"
)
