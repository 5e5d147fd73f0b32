package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errServiceExited 服务在未收到停止信号时自行退出
var errServiceExited = errors.New("service exited")

// Service 服务接口
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器
type Runner struct {
	services []Service
	cleanups []func()
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// AddCleanup 注册所有服务停止后执行的清理函数，按注册逆序执行
func (r *Runner) AddCleanup(fn func()) {
	if r == nil || fn == nil {
		return
	}
	r.cleanups = append(r.cleanups, fn)
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts, err := normalizeOptions(opts)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}

	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动并监听服务
// 任一服务退出或 ctx 结束都会触发全部服务停止
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, logger *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	for _, svc := range r.services {
		if svc == nil {
			return errors.New("service is nil")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range r.services {
		service := svc
		g.Go(func() error {
			if logger != nil {
				logger.Infow("service_start", "service", service.Name())
			}
			err := service.Start(gctx)
			if logger != nil {
				logger.Infow("service_exit", "service", service.Name(), "error", err)
			}
			if err == nil {
				return errServiceExited
			}
			return err
		})
	}

	<-gctx.Done()

	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	for _, svc := range r.services {
		if err := svc.Stop(stopCtx); err != nil && logger != nil {
			logger.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}

	runErr := g.Wait()
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
	if runErr == nil || errors.Is(runErr, errServiceExited) || errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
