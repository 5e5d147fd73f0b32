package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	parsePage         = handlershared.PageQuery
	parseTimeNullable = handlershared.ParseOptionalTime
	buildPagination   = response.NewPagination
)

// getAdminID JWT 中间件写入的管理员 ID，缺失时直接响应 401
func getAdminID(c *gin.Context) (uint, bool) {
	adminID, ok := handlershared.ContextUint(c, "admin_id")
	if !ok {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
	}
	return adminID, ok
}

// currentOperator 当前请求的操作人，用于审计
func currentOperator(c *gin.Context) (service.Operator, bool) {
	adminID, ok := getAdminID(c)
	if !ok {
		return service.Operator{}, false
	}
	return service.Operator{AdminID: adminID, Username: strings.TrimSpace(c.GetString("username"))}, true
}

func parseIDParam(c *gin.Context, name, invalidKey string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return uint(id), true
}
