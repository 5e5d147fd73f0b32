package worker

import (
	"fmt"

	"github.com/qrewards/qrewards/internal/logger"
)

// asynqLogger 将 asynq 内部日志接入 zap
type asynqLogger struct{}

func newAsynqLogger() asynqLogger {
	return asynqLogger{}
}

func (asynqLogger) Debug(args ...interface{}) {
	logger.Debugw("asynq_log", "msg", fmt.Sprint(args...))
}

func (asynqLogger) Info(args ...interface{}) {
	logger.Infow("asynq_log", "msg", fmt.Sprint(args...))
}

func (asynqLogger) Warn(args ...interface{}) {
	logger.Warnw("asynq_log", "msg", fmt.Sprint(args...))
}

func (asynqLogger) Error(args ...interface{}) {
	logger.Errorw("asynq_log", "msg", fmt.Sprint(args...))
}

func (asynqLogger) Fatal(args ...interface{}) {
	logger.Errorw("asynq_log_fatal", "msg", fmt.Sprint(args...))
}
