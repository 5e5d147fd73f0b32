package repository

import (
	"context"

	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository 审计日志数据访问接口
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter AuditLogListFilter) ([]models.AuditLog, int64, error)
}

// GormAuditLogRepository GORM 实现
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓库
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *GormAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// List 管理端查询审计日志
func (r *GormAuditLogRepository) List(ctx context.Context, filter AuditLogListFilter) ([]models.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.OperatorAdminID != 0 {
		query = query.Where("operator_admin_id = ?", filter.OperatorAdminID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != 0 {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	logs := make([]models.AuditLog, 0)
	if err := query.Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
