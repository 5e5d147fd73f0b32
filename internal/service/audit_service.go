package service

import (
	"context"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"
)

// Operator 管理端操作人
type Operator struct {
	AdminID  uint
	Username string
}

// AuditEntry 审计记录输入
type AuditEntry struct {
	OperatorAdminID  uint
	OperatorUsername string
	Action           string
	TargetType       string
	TargetID         uint
	Detail           models.JSON
}

// AuditService 后台审计服务
type AuditService struct {
	repo repository.AuditLogRepository
}

// NewAuditService 创建审计服务
func NewAuditService(repo repository.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record 写入审计日志，失败只记录日志，不影响主流程
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	if entry.OperatorAdminID == 0 || strings.TrimSpace(entry.Action) == "" {
		return
	}
	item := &models.AuditLog{
		OperatorAdminID:  entry.OperatorAdminID,
		OperatorUsername: strings.TrimSpace(entry.OperatorUsername),
		Action:           strings.TrimSpace(entry.Action),
		TargetType:       strings.TrimSpace(entry.TargetType),
		TargetID:         entry.TargetID,
		RequestID:        logger.RequestID(ctx),
		DetailJSON:       entry.Detail,
		CreatedAt:        time.Now(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		logger.Ctx(ctx).Warnw("audit_log_write_failed", "action", entry.Action, "target_id", entry.TargetID, "error", err)
	}
}

// RecordFor 以操作人身份写入审计
func (s *AuditService) RecordFor(ctx context.Context, op Operator, action, targetType string, targetID uint, detail models.JSON) {
	s.Record(ctx, AuditEntry{
		OperatorAdminID:  op.AdminID,
		OperatorUsername: op.Username,
		Action:           action,
		TargetType:       targetType,
		TargetID:         targetID,
		Detail:           detail,
	})
}

// List 管理端查询审计日志
func (s *AuditService) List(ctx context.Context, filter repository.AuditLogListFilter) ([]models.AuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuditLog{}, 0, nil
	}
	return s.repo.List(ctx, filter)
}
