package queue

import (
	"context"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 领取通知使用的高优先级队列
	CriticalQueue = constants.QueueCritical
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client 队列客户端封装
type Client struct {
	client  enqueuer
	enabled bool
	queue   string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, queue: CriticalQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	return &Client{
		client:  asynq.NewClient(opt),
		enabled: true,
		queue:   resolveNotifyQueue(cfg),
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueClaimNotify 推送领取通知任务
func (c *Client) EnqueueClaimNotify(ctx context.Context, notificationID uint) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewClaimNotifyTask(ClaimNotifyPayload{NotificationID: notificationID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(constants.ClaimNotifyRetry),
	)
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 2, DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

// resolveNotifyQueue 配置了 critical 队列时使用，否则回落到 default
func resolveNotifyQueue(cfg *config.QueueConfig) string {
	if cfg == nil || len(cfg.Queues) == 0 {
		return CriticalQueue
	}
	if _, ok := cfg.Queues[CriticalQueue]; ok {
		return CriticalQueue
	}
	return DefaultQueue
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		cfg = &config.QueueConfig{}
	}
	return asynq.RedisClientOpt{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB}
}
