package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/provider"
	"github.com/qrewards/qrewards/internal/queue"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskClaimNotify, c.handleClaimNotify)
}

func (c *Consumer) handleClaimNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_claim_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseClaimNotifyPayload(task)
	if err != nil {
		logger.Warnw("worker_claim_notify_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_claim_notify_skip_service_nil", "notification_id", payload.NotificationID)
		return nil
	}

	if taskID, ok := asynq.GetTaskID(ctx); ok {
		ctx = logger.WithRequestID(ctx, taskID)
	}
	err = c.NotificationService.Deliver(ctx, payload.NotificationID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNotificationNotFound):
		logger.Ctx(ctx).Debugw("worker_claim_notify_skip_not_found", "notification_id", payload.NotificationID)
		return nil
	default:
		logger.Ctx(ctx).Warnw("worker_claim_notify_failed", "notification_id", payload.NotificationID, "error", err)
		return err
	}
}
