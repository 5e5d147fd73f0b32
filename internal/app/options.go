package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/logger"

	"go.uber.org/zap"
)

// 进程角色：all 同时跑 API 与异步通知 worker，也可拆开部署
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 校验并归一化启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	}
	return "", fmt.Errorf("unknown mode %q", raw)
}

func (o Options) servesHTTP() bool { return o.Mode == ModeAll || o.Mode == ModeAPI }

func (o Options) runsWorker() bool { return o.Mode == ModeAll || o.Mode == ModeWorker }

func normalizeOptions(opts Options) (Options, error) {
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	return opts, nil
}
