package app

import (
	"errors"
	"net"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/provider"
	"github.com/qrewards/qrewards/internal/router"
	"github.com/qrewards/qrewards/internal/worker"
)

// BuildRunner 按模式组装 API 与 worker，容器在全部服务停止后关闭
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	opts, err := normalizeOptions(Options{Config: cfg, Mode: mode})
	if err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)
	runner := NewRunner()
	runner.AddCleanup(container.Close)

	if opts.servesHTTP() {
		runner.services = append(runner.services, NewHTTPService(listenAddr(cfg), router.SetupRouter(cfg, container)))
	}
	if opts.runsWorker() {
		workerService, err := worker.NewService(cfg, worker.NewConsumer(container))
		if err != nil {
			container.Close()
			return nil, err
		}
		runner.services = append(runner.services, workerService)
	}
	return runner, nil
}

// Run 进程入口，阻塞到收到信号或某个服务退出
func Run(opts Options) error {
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	opts, err := normalizeOptions(opts)
	if err != nil {
		return err
	}
	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start", "mode", opts.Mode, "addr", listenAddr(opts.Config))
	return RunWithOptions(runner, opts)
}

func listenAddr(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
}
