package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Upload   UploadConfig   `mapstructure:"upload"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Email    EmailConfig    `mapstructure:"email"`
	SMS      SMSConfig      `mapstructure:"sms"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Counter  CounterConfig  `mapstructure:"counter"`
	Claim    ClaimConfig    `mapstructure:"claim"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Captcha  CaptchaConfig  `mapstructure:"captcha"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		Level:      c.Level,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Addr 缓存 Redis 地址，未配置时为 127.0.0.1:6379
func (c RedisConfig) Addr() string { return redisAddr(c.Host, c.Port) }

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// Addr asynq 使用的 Redis 地址，可与缓存分开部署
func (c QueueConfig) Addr() string { return redisAddr(c.Host, c.Port) }

func redisAddr(host string, port int) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	UseTLS   bool   `mapstructure:"use_tls"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// SMSConfig 短信通知配置（AWS SNS）
type SMSConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SenderID  string `mapstructure:"sender_id"`
	SMSType   string `mapstructure:"sms_type"` // Transactional / Promotional
	MaxLength int    `mapstructure:"max_length"`
}

// AWSConfig AWS 公共配置，SNS / S3 / DynamoDB 共用
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"` // 本地调试（localstack）时使用
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	Driver string          `mapstructure:"driver"` // local / s3
	Local  LocalStorage    `mapstructure:"local"`
	S3     S3StorageConfig `mapstructure:"s3"`
}

// LocalStorage 本地存储配置
type LocalStorage struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
}

// S3StorageConfig S3 存储配置
type S3StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	ACL           string `mapstructure:"acl"`
}

// CounterConfig 库存计数存储配置
type CounterConfig struct {
	Backend  string                `mapstructure:"backend"` // sql / redis / dynamodb
	DynamoDB DynamoDBCounterConfig `mapstructure:"dynamodb"`
}

// DynamoDBCounterConfig DynamoDB 计数表配置
type DynamoDBCounterConfig struct {
	Table string `mapstructure:"table"`
}

// ClaimConfig 领取流程配置
type ClaimConfig struct {
	TimeoutMS         int             `mapstructure:"timeout_ms"`
	CooldownSeconds   int             `mapstructure:"cooldown_seconds"`
	AtomicExpiryCheck bool            `mapstructure:"atomic_expiry_check"`
	PublicBaseURL     string          `mapstructure:"public_base_url"`
	QRCodeSize        int             `mapstructure:"qrcode_size"`
	CardCacheSeconds  int             `mapstructure:"card_cache_seconds"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
}

// Timeout 领取守卫超时
func (c ClaimConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RateLimitConfig 通用限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// NotifyConfig 领取通知配置
type NotifyConfig struct {
	TimeoutSeconds       int `mapstructure:"timeout_seconds"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	RequeueAfterSeconds  int `mapstructure:"requeue_after_seconds"`
	MaxAttempts          int `mapstructure:"max_attempts"`
	SweepBatchSize       int `mapstructure:"sweep_batch_size"`
}

// CaptchaConfig 验证码配置
type CaptchaConfig struct {
	Provider  string                 `mapstructure:"provider"`
	Scenes    CaptchaSceneConfig     `mapstructure:"scenes"`
	Image     CaptchaImageConfig     `mapstructure:"image"`
	Turnstile CaptchaTurnstileConfig `mapstructure:"turnstile"`
}

// CaptchaSceneConfig 验证码场景开关
type CaptchaSceneConfig struct {
	Login bool `mapstructure:"login"`
	Claim bool `mapstructure:"claim"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// CaptchaTurnstileConfig Cloudflare Turnstile 配置
type CaptchaTurnstileConfig struct {
	SiteKey   string `mapstructure:"site_key"`
	SecretKey string `mapstructure:"secret_key"`
	VerifyURL string `mapstructure:"verify_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// UploadConfig 文件上传配置
type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`
	AllowedTypes      []string `mapstructure:"allowed_types"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	MaxWidth          int      `mapstructure:"max_width"`
	MaxHeight         int      `mapstructure:"max_height"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
	PasswordPolicy PasswordPolicyConfig `mapstructure:"password_policy"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// PasswordPolicyConfig 密码策略配置
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	cfg, err := LoadFrom(viper.GetViper(), "")
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// LoadFrom 使用指定 viper 实例加载配置，file 为空时按默认路径查找
func LoadFrom(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")     // 从当前目录查找
		v.AddConfigPath("../")   // 如果从 cmd/server 运行
		v.AddConfigPath("./etc") // etc 文件夹
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // claim.cooldown_seconds -> CLAIM_COOLDOWN_SECONDS

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "qrewards.log")
	v.SetDefault("log.level", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.stdout", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/qrewards.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "qr")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("upload.max_size", 5242880)
	v.SetDefault("upload.allowed_types", []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	})
	v.SetDefault("upload.allowed_extensions", []string{
		".jpg",
		".jpeg",
		".png",
		".gif",
		".webp",
	})
	v.SetDefault("upload.max_width", 4096)
	v.SetDefault("upload.max_height", 4096)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Locale",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.login_rate_limit.block_seconds", 900)
	v.SetDefault("security.password_policy.min_length", 8)
	v.SetDefault("security.password_policy.require_upper", true)
	v.SetDefault("security.password_policy.require_lower", true)
	v.SetDefault("security.password_policy.require_number", true)
	v.SetDefault("security.password_policy.require_special", false)
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "QRewards")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.sender_id", "")
	v.SetDefault("sms.sms_type", "Transactional")
	v.SetDefault("sms.max_length", 280)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.dir", "uploads")
	v.SetDefault("storage.local.url_prefix", "/uploads")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "logos")
	v.SetDefault("storage.s3.public_base_url", "")
	v.SetDefault("storage.s3.acl", "")
	v.SetDefault("counter.backend", "sql")
	v.SetDefault("counter.dynamodb.table", "qrewards_card_counters")
	v.SetDefault("claim.timeout_ms", 3000)
	v.SetDefault("claim.cooldown_seconds", 30)
	v.SetDefault("claim.atomic_expiry_check", true)
	v.SetDefault("claim.public_base_url", "http://localhost:5173")
	v.SetDefault("claim.qrcode_size", 512)
	v.SetDefault("claim.card_cache_seconds", 60)
	v.SetDefault("claim.rate_limit.window_seconds", 60)
	v.SetDefault("claim.rate_limit.max_requests", 10)
	v.SetDefault("claim.rate_limit.block_seconds", 0)
	v.SetDefault("notify.timeout_seconds", 15)
	v.SetDefault("notify.sweep_interval_seconds", 60)
	v.SetDefault("notify.requeue_after_seconds", 300)
	v.SetDefault("notify.max_attempts", 5)
	v.SetDefault("notify.sweep_batch_size", 100)
	v.SetDefault("captcha.provider", "none")
	v.SetDefault("captcha.scenes.login", false)
	v.SetDefault("captcha.scenes.claim", false)
	v.SetDefault("captcha.image.length", 5)
	v.SetDefault("captcha.image.width", 240)
	v.SetDefault("captcha.image.height", 80)
	v.SetDefault("captcha.image.noise_count", 2)
	v.SetDefault("captcha.image.show_line", 2)
	v.SetDefault("captcha.image.expire_seconds", 300)
	v.SetDefault("captcha.image.max_store", 10240)
	v.SetDefault("captcha.turnstile.site_key", "")
	v.SetDefault("captcha.turnstile.secret_key", "")
	v.SetDefault("captcha.turnstile.verify_url", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("captcha.turnstile.timeout_ms", 2000)
}
