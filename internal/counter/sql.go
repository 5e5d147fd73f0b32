package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
)

// SQLStore 直接在 cards.quantity 上做条件更新
type SQLStore struct {
	db          *gorm.DB
	checkExpiry bool
}

// NewSQLStore 创建 SQL 计数存储
func NewSQLStore(db *gorm.DB, opts Options) *SQLStore {
	return &SQLStore{db: db, checkExpiry: opts.CheckExpiry}
}

// Backend 后端名称
func (s *SQLStore) Backend() string {
	return constants.CounterBackendSQL
}

// Init 数量随卡片行一同写入，无需额外初始化
func (s *SQLStore) Init(ctx context.Context, cardID uint, quantity int, expiresAt *time.Time) error {
	return nil
}

// TryDecrement 执行 UPDATE ... WHERE quantity > 0，以影响行数判定成败
func (s *SQLStore) TryDecrement(ctx context.Context, cardID uint, now time.Time) (int, error) {
	if cardID == 0 {
		return 0, ErrNotFound
	}
	now = now.UTC()
	query := s.db.WithContext(ctx).Model(&models.Card{}).Where("id = ? AND quantity > 0", cardID)
	if s.checkExpiry {
		query = query.Where("(expires_at IS NULL OR expires_at >= ?)", now)
	}
	result := query.UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 1 {
		remaining, err := s.Remaining(ctx, cardID)
		if err != nil {
			// 已成功扣减，剩余数量读取失败不改变结果
			return 0, nil
		}
		return remaining, nil
	}
	return 0, s.diagnose(ctx, cardID, now)
}

func (s *SQLStore) diagnose(ctx context.Context, cardID uint, now time.Time) error {
	var card models.Card
	err := s.db.WithContext(ctx).Select("id", "quantity", "expires_at").Where("id = ?", cardID).Take(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if s.checkExpiry && card.IsExpired(now) {
		return ErrExpired
	}
	if card.Quantity <= 0 {
		return ErrExhausted
	}
	return fmt.Errorf("conditional decrement rejected for card %d without matching cause", cardID)
}

// Remaining 读取 cards.quantity
func (s *SQLStore) Remaining(ctx context.Context, cardID uint) (int, error) {
	var quantity int
	result := s.db.WithContext(ctx).Model(&models.Card{}).Select("quantity").Where("id = ?", cardID).Limit(1).Scan(&quantity)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return quantity, nil
}

// SetExpiry 过期时间由卡片仓库写入同一行
func (s *SQLStore) SetExpiry(ctx context.Context, cardID uint, expiresAt *time.Time) error {
	return nil
}

// Remove 卡片软删除后条件更新自然失效
func (s *SQLStore) Remove(ctx context.Context, cardID uint) error {
	return nil
}
