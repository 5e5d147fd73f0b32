package repository

import (
	"context"
	"errors"
	"time"

	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
)

// ClaimNotificationRepository 领取通知数据访问接口
type ClaimNotificationRepository interface {
	Create(ctx context.Context, n *models.ClaimNotification) error
	GetByID(ctx context.Context, id uint) (*models.ClaimNotification, error)
	GetByClaimRecordID(ctx context.Context, claimRecordID uint) (*models.ClaimNotification, error)
	BeginAttempt(ctx context.Context, id uint) (bool, error)
	MarkSent(ctx context.Context, id uint, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uint, status string, lastError string) error
	ResetPending(ctx context.Context, id uint) error
	Touch(ctx context.Context, id uint) error
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.ClaimNotification, error)
}

// GormClaimNotificationRepository GORM 实现
type GormClaimNotificationRepository struct {
	db *gorm.DB
}

// NewClaimNotificationRepository 创建通知仓库
func NewClaimNotificationRepository(db *gorm.DB) *GormClaimNotificationRepository {
	return &GormClaimNotificationRepository{db: db}
}

// Create 创建通知
func (r *GormClaimNotificationRepository) Create(ctx context.Context, n *models.ClaimNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// GetByID 根据 ID 获取
func (r *GormClaimNotificationRepository) GetByID(ctx context.Context, id uint) (*models.ClaimNotification, error) {
	if id == 0 {
		return nil, nil
	}
	var n models.ClaimNotification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// GetByClaimRecordID 根据领取记录获取
func (r *GormClaimNotificationRepository) GetByClaimRecordID(ctx context.Context, claimRecordID uint) (*models.ClaimNotification, error) {
	var n models.ClaimNotification
	if err := r.db.WithContext(ctx).Where("claim_record_id = ?", claimRecordID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// BeginAttempt 未发送时累加尝试次数，已发送返回 false
func (r *GormClaimNotificationRepository) BeginAttempt(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ClaimNotification{}).
		Where("id = ? AND status <> ?", id, constants.ClaimNotificationStatusSent).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkSent 标记已发送
func (r *GormClaimNotificationRepository) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	sentAt = sentAt.UTC()
	return r.db.WithContext(ctx).Model(&models.ClaimNotification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     constants.ClaimNotificationStatusSent,
			"sent_at":    sentAt,
			"last_error": "",
			"updated_at": sentAt,
		}).Error
}

// MarkFailed 记录失败原因，status 可为 pending（待重试）/failed/skipped
func (r *GormClaimNotificationRepository) MarkFailed(ctx context.Context, id uint, status string, lastError string) error {
	return r.db.WithContext(ctx).Model(&models.ClaimNotification{}).
		Where("id = ? AND status <> ?", id, constants.ClaimNotificationStatusSent).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ResetPending 管理端手动重发前重置状态
func (r *GormClaimNotificationRepository) ResetPending(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ClaimNotification{}).
		Where("id = ? AND status IN ?", id, []string{constants.ClaimNotificationStatusFailed, constants.ClaimNotificationStatusSkipped}).
		Updates(map[string]interface{}{
			"status":     constants.ClaimNotificationStatusPending,
			"attempts":   0,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Touch 刷新 updated_at，避免巡检重复入队
func (r *GormClaimNotificationRepository) Touch(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ClaimNotification{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}

// ListStalePending 查询长时间停留在 pending 的通知
func (r *GormClaimNotificationRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.ClaimNotification, error) {
	if limit <= 0 {
		limit = 100
	}
	items := make([]models.ClaimNotification, 0)
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", constants.ClaimNotificationStatusPending, before.UTC()).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
