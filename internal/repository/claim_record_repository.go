package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
)

// ClaimRecordRepository 领取记录数据访问接口
// 只追加，不提供更新与删除
type ClaimRecordRepository interface {
	Create(ctx context.Context, record *models.ClaimRecord) error
	GetByID(ctx context.Context, id uint) (*models.ClaimRecord, error)
	GetByClaimNo(ctx context.Context, claimNo string) (*models.ClaimRecord, error)
	List(ctx context.Context, filter ClaimRecordListFilter) ([]models.ClaimRecord, int64, error)
	CountByCard(ctx context.Context, cardID uint) (int64, error)
	Each(ctx context.Context, filter ClaimRecordListFilter, batchSize int, fn func(records []models.ClaimRecord) error) error
}

// GormClaimRecordRepository GORM 实现
type GormClaimRecordRepository struct {
	db *gorm.DB
}

// NewClaimRecordRepository 创建领取记录仓库
func NewClaimRecordRepository(db *gorm.DB) *GormClaimRecordRepository {
	return &GormClaimRecordRepository{db: db}
}

// Create 追加领取记录
func (r *GormClaimRecordRepository) Create(ctx context.Context, record *models.ClaimRecord) error {
	if record == nil {
		return errors.New("nil claim record")
	}
	return r.db.WithContext(ctx).Omit("Card", "Notification").Create(record).Error
}

// GetByID 根据 ID 获取
func (r *GormClaimRecordRepository) GetByID(ctx context.Context, id uint) (*models.ClaimRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var record models.ClaimRecord
	err := r.db.WithContext(ctx).
		Preload("Card", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Notification").
		First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByClaimNo 根据领取编号获取
func (r *GormClaimRecordRepository) GetByClaimNo(ctx context.Context, claimNo string) (*models.ClaimRecord, error) {
	claimNo = strings.TrimSpace(claimNo)
	if claimNo == "" {
		return nil, nil
	}
	var record models.ClaimRecord
	if err := r.db.WithContext(ctx).Where("claim_no = ?", claimNo).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormClaimRecordRepository) filtered(ctx context.Context, filter ClaimRecordListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.ClaimRecord{})
	if filter.CardID != 0 {
		query = query.Where("card_id = ?", filter.CardID)
	}
	if contact := strings.TrimSpace(filter.Contact); contact != "" {
		condition, argCount := buildLikeCondition(r.db, "contact")
		query = query.Where(condition, repeatLikeArgs(escapeLike(contact), argCount)...)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.ClaimNo != "" {
		query = query.Where("claim_no = ?", strings.TrimSpace(filter.ClaimNo))
	}
	if filter.CreatedFrom != nil {
		query = query.Where("claimed_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("claimed_at <= ?", filter.CreatedTo.UTC())
	}
	return query
}

// List 管理端分页查询
func (r *GormClaimRecordRepository) List(ctx context.Context, filter ClaimRecordListFilter) ([]models.ClaimRecord, int64, error) {
	query := r.filtered(ctx, filter)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	records := make([]models.ClaimRecord, 0)
	if err := query.
		Preload("Card", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Notification").
		Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// CountByCard 统计某卡片的领取记录数
func (r *GormClaimRecordRepository) CountByCard(ctx context.Context, cardID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ClaimRecord{}).Where("card_id = ?", cardID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Each 分批遍历（导出使用），按 id 升序
func (r *GormClaimRecordRepository) Each(ctx context.Context, filter ClaimRecordListFilter, batchSize int, fn func(records []models.ClaimRecord) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []models.ClaimRecord
	result := r.filtered(ctx, filter).
		Preload("Card", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Notification").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return result.Error
}
