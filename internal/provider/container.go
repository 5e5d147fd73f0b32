package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/authz"
	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/cloud"
	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/counter"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/queue"
	"github.com/qrewards/qrewards/internal/repository"
	"github.com/qrewards/qrewards/internal/service"
	"github.com/qrewards/qrewards/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"gorm.io/gorm"
)

// awsInitTimeout 加载 AWS 凭证链的最长等待
const awsInitTimeout = 10 * time.Second

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Storage     storage.Store
	SNSClient   service.SNSPublisher

	// Repositories
	AdminRepo             repository.AdminRepository
	AuditLogRepo          repository.AuditLogRepository
	CardRepo              repository.CardRepository
	ClaimRecordRepo       repository.ClaimRecordRepository
	ClaimNotificationRepo repository.ClaimNotificationRepository
	DashboardRepo         repository.DashboardRepository

	// 库存计数
	CounterStore counter.Store

	// Services
	AuthzService        *authz.Service
	AuditService        *service.AuditService
	AuthService         *service.AuthService
	CaptchaService      *service.CaptchaService
	EmailService        *service.EmailService
	SMSService          *service.SMSService
	UploadService       *service.UploadService
	CardService         *service.CardService
	ClaimService        *service.ClaimService
	NotificationService *service.NotificationService
	QRCodeService       *service.QRCodeService
	DashboardService    *service.DashboardService

	awsCfg    *aws.Config
	awsLoaded bool
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时得到一个禁用态客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)

	// 2. 初始化外部依赖（计数后端、存储、短信通道）
	c.initInfrastructure(models.DB)

	// 3. 初始化 Services
	c.initServices(models.DB)

	return c
}

// Close 释放容器持有的连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
	c.CardRepo = repository.NewCardRepository(db)
	c.ClaimRecordRepo = repository.NewClaimRecordRepository(db)
	c.ClaimNotificationRepo = repository.NewClaimNotificationRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initInfrastructure(db *gorm.DB) {
	store, err := c.newCounterStore(db)
	if err != nil {
		logger.Errorw("provider_init_counter_failed", "backend", c.Config.Counter.Backend, "error", err)
		panic(err)
	}
	c.CounterStore = store
	logger.Infow("provider_counter_backend", "backend", store.Backend())

	objectStore, err := c.newStorage()
	if err != nil {
		logger.Errorw("provider_init_storage_failed", "driver", c.Config.Storage.Driver, "error", err)
		panic(err)
	}
	c.Storage = objectStore

	if c.Config.SMS.Enabled {
		if awsCfg, ok := c.loadAWS(); ok {
			c.SNSClient = cloud.NewSNSClient(awsCfg)
		} else {
			logger.Warnw("provider_sms_disabled_without_aws")
		}
	}
}

// newCounterStore 按 counter.backend 创建计数后端
func (c *Container) newCounterStore(db *gorm.DB) (counter.Store, error) {
	opts := counter.Options{CheckExpiry: c.Config.Claim.AtomicExpiryCheck}
	backend := strings.ToLower(strings.TrimSpace(c.Config.Counter.Backend))
	switch backend {
	case "", constants.CounterBackendSQL:
		return counter.NewSQLStore(db, opts), nil
	case constants.CounterBackendRedis:
		if !cache.Enabled() {
			return nil, fmt.Errorf("redis counter backend requires redis.enabled")
		}
		return counter.NewRedisStore(cache.Client(), c.Config.Redis.Prefix, opts), nil
	case constants.CounterBackendDynamoDB:
		table := strings.TrimSpace(c.Config.Counter.DynamoDB.Table)
		if table == "" {
			return nil, fmt.Errorf("counter.dynamodb.table is required")
		}
		awsCfg, ok := c.loadAWS()
		if !ok {
			return nil, fmt.Errorf("dynamodb counter backend requires aws config")
		}
		return counter.NewDynamoDBStore(cloud.NewDynamoDBClient(awsCfg), table, opts), nil
	default:
		return nil, fmt.Errorf("unsupported counter backend: %s", c.Config.Counter.Backend)
	}
}

func (c *Container) newStorage() (storage.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(c.Config.Storage.Driver))
	if driver != constants.StorageDriverS3 {
		return storage.New(c.Config.Storage, "", nil)
	}
	awsCfg, ok := c.loadAWS()
	if !ok {
		return nil, fmt.Errorf("s3 storage requires aws config")
	}
	return storage.New(c.Config.Storage, awsCfg.Region, cloud.NewS3Client(awsCfg))
}

// loadAWS 懒加载 AWS 配置，只尝试一次
func (c *Container) loadAWS() (aws.Config, bool) {
	if c.awsLoaded {
		if c.awsCfg == nil {
			return aws.Config{}, false
		}
		return *c.awsCfg, true
	}
	c.awsLoaded = true
	ctx, cancel := context.WithTimeout(context.Background(), awsInitTimeout)
	defer cancel()
	awsCfg, err := cloud.LoadConfig(ctx, c.Config.AWS)
	if err != nil {
		logger.Errorw("provider_load_aws_config_failed", "error", err)
		return aws.Config{}, false
	}
	c.awsCfg = &awsCfg
	return awsCfg, true
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuditService = service.NewAuditService(c.AuditLogRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo, c.AuditService)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.SMSService = service.NewSMSService(&c.Config.SMS, c.SNSClient)
	c.UploadService = service.NewUploadService(&c.Config.Upload, c.Storage)
	c.CardService = service.NewCardService(c.Config, c.CardRepo, c.ClaimRecordRepo, c.CounterStore, c.AuditService)
	c.NotificationService = service.NewNotificationService(
		c.Config.Notify,
		c.ClaimNotificationRepo,
		c.ClaimRecordRepo,
		c.EmailService,
		c.SMSService,
		c.QueueClient,
		c.AuditService,
	)
	c.ClaimService = service.NewClaimService(
		c.Config,
		c.CardService,
		c.CardRepo,
		c.ClaimRecordRepo,
		c.CounterStore,
		c.CaptchaService,
		c.NotificationService,
	)
	c.QRCodeService = service.NewQRCodeService(c.CardService, c.Config.Claim.QRCodeSize)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
