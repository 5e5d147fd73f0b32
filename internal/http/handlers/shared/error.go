package shared

import (
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 带 request_id 的日志
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c != nil {
		if id := c.GetString("request_id"); id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按当前语言输出错误文案，err 非空时记 handler_error
func RespondError(c *gin.Context, code int, key string, err error) {
	respondAppError(c, response.NewError(code, key, err))
}

// RespondErrorf 文案带参数的版本，参数不参与日志
func RespondErrorf(c *gin.Context, code int, key string, args ...interface{}) {
	response.Error(c, code, i18n.Sprintf(i18n.ResolveLocale(c), key, args...))
}

func respondAppError(c *gin.Context, appErr *response.AppError) {
	msg := i18n.T(i18n.ResolveLocale(c), appErr.Key)
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"key", appErr.Key,
			"route", c.FullPath(),
			"error", appErr.Err,
		)
	}
	response.Error(c, appErr.Code, msg)
}
