package worker

import (
	"context"
	"errors"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultSweepInterval = time.Minute

// Service 异步队列服务
// 队列未启用时只运行通知巡检，巡检重投递走后台 goroutine
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	svc := &Service{
		name:          "worker",
		consumer:      consumer,
		sweepInterval: defaultSweepInterval,
	}
	if cfg.Notify.SweepIntervalSeconds > 0 {
		svc.sweepInterval = time.Duration(cfg.Notify.SweepIntervalSeconds) * time.Second
	}
	if cfg.Queue.Enabled {
		opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
		serverCfg.Logger = newAsynqLogger()
		svc.server = asynq.NewServer(opt, serverCfg)
		svc.mux = asynq.NewServeMux()
		consumer.Register(svc.mux)
	}
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务，阻塞直到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	if s.server != nil {
		if err := s.server.Start(s.mux); err != nil {
			return err
		}
	}
	s.runSweepLoop(ctx)
	return nil
}

// Stop 停止服务并等待后台投递完成
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.server != nil {
		s.server.Shutdown()
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.NotificationService != nil {
		return s.consumer.NotificationService.Drain(ctx)
	}
	return nil
}

func (s *Service) runSweepLoop(ctx context.Context) {
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	if s.consumer == nil || s.consumer.Container == nil || s.consumer.NotificationService == nil {
		return
	}
	if _, err := s.consumer.NotificationService.RequeuePending(ctx, time.Now()); err != nil && ctx.Err() == nil {
		logger.Warnw("worker_notify_sweep_failed", "error", err)
	}
}
