package admin

import (
	"strconv"
	"strings"

	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs 获取后台操作审计日志
func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, pageSize := parsePage(c)

	operatorAdminID, err := parseOptionalUint(c.Query("operator_admin_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	targetID, err := parseOptionalUint(c.Query("target_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items, total, err := h.AuditService.List(c.Request.Context(), repository.AuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: operatorAdminID,
		Action:          strings.TrimSpace(c.Query("action")),
		TargetType:      strings.TrimSpace(c.Query("target_type")),
		TargetID:        targetID,
		CreatedFrom:     createdFrom,
		CreatedTo:       createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.audit_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, items, buildPagination(page, pageSize, total))
}

func parseOptionalUint(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
