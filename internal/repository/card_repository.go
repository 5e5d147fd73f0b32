package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
)

// cardDetailColumns 管理端允许修改的列，不包含 quantity
var cardDetailColumns = []string{
	"business_name",
	"header",
	"subheader",
	"address",
	"logo_url",
	"expires_at",
	"status",
}

// CardRepository 卡片数据访问接口
// quantity 的递减只经由 counter.Store，仓库不提供修改数量的通用方法
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id uint) (*models.Card, error)
	GetByCode(ctx context.Context, code string) (*models.Card, error)
	List(ctx context.Context, filter CardListFilter) ([]models.Card, int64, error)
	UpdateDetails(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id uint) error
	SyncQuantityMirror(ctx context.Context, id uint, remaining int) error
	WithTx(tx *gorm.DB) CardRepository
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormCardRepository GORM 实现
type GormCardRepository struct {
	db *gorm.DB
}

// NewCardRepository 创建卡片仓库
func NewCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCardRepository) WithTx(tx *gorm.DB) CardRepository {
	if tx == nil {
		return r
	}
	return &GormCardRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCardRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create 创建卡片
func (r *GormCardRepository) Create(ctx context.Context, card *models.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// GetByID 根据 ID 获取卡片
func (r *GormCardRepository) GetByID(ctx context.Context, id uint) (*models.Card, error) {
	if id == 0 {
		return nil, nil
	}
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// GetByCode 根据公开编码获取卡片
func (r *GormCardRepository) GetByCode(ctx context.Context, code string) (*models.Card, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var card models.Card
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// List 卡片列表
func (r *GormCardRepository) List(ctx context.Context, filter CardListFilter) ([]models.Card, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Card{})
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, "header", "business_name", "code")
		query = query.Where(condition, repeatLikeArgs(escapeLike(keyword), argCount)...)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Expired != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		now = now.UTC()
		if *filter.Expired {
			query = query.Where("expires_at IS NOT NULL AND expires_at < ?", now)
		} else {
			query = query.Where("expires_at IS NULL OR expires_at >= ?", now)
		}
	}
	if filter.SoldOut {
		query = query.Where("quantity <= 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	cards := make([]models.Card, 0)
	if err := query.Order("id DESC").Find(&cards).Error; err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// UpdateDetails 只更新描述字段、状态与过期时间
func (r *GormCardRepository) UpdateDetails(ctx context.Context, card *models.Card) error {
	if card == nil || card.ID == 0 {
		return errors.New("invalid card")
	}
	return r.db.WithContext(ctx).Model(&models.Card{ID: card.ID}).Select(cardDetailColumns).Updates(card).Error
}

// Delete 软删除卡片
func (r *GormCardRepository) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.Card{}, id).Error
}

// SyncQuantityMirror 非 SQL 计数后端扣减成功后回写展示镜像
// 只允许向下写，乱序到达的旧值不会把数量写回更大
func (r *GormCardRepository) SyncQuantityMirror(ctx context.Context, id uint, remaining int) error {
	if id == 0 || remaining < 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ? AND quantity > ?", id, remaining).
		UpdateColumn("quantity", remaining).Error
}
