package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetCardStats(ctx context.Context, now time.Time) (DashboardCardStatsRow, error)
	CountClaims(ctx context.Context, startAt, endAt time.Time) (int64, error)
	GetClaimTrends(ctx context.Context, startAt, endAt time.Time) ([]DashboardClaimTrendRow, error)
	GetClaimsByChannel(ctx context.Context, startAt, endAt time.Time) ([]DashboardChannelRow, error)
	GetTopCards(ctx context.Context, startAt, endAt time.Time, limit int) ([]DashboardCardRankingRow, error)
	GetNotificationStats(ctx context.Context, startAt, endAt time.Time) ([]DashboardNotificationRow, error)
}

// DashboardCardStatsRow 卡片统计
type DashboardCardStatsRow struct {
	Total          int64
	Claimable      int64
	Exhausted      int64
	Expired        int64
	Disabled       int64
	RemainingUnits int64
	InitialUnits   int64
}

// DashboardClaimTrendRow 领取趋势
type DashboardClaimTrendRow struct {
	Day    string
	Claims int64
}

// DashboardChannelRow 按渠道统计
type DashboardChannelRow struct {
	Channel string
	Claims  int64
}

// DashboardCardRankingRow 卡片领取排行
type DashboardCardRankingRow struct {
	CardID       uint
	Header       string
	BusinessName string
	Claims       int64
}

// DashboardNotificationRow 通知状态统计
type DashboardNotificationRow struct {
	Status string
	Total  int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetCardStats 获取卡片统计（数量取自 cards.quantity 镜像）
func (r *GormDashboardRepository) GetCardStats(ctx context.Context, now time.Time) (DashboardCardStatsRow, error) {
	result := DashboardCardStatsRow{}
	now = now.UTC()
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Card{})
	}

	if err := base().Count(&result.Total).Error; err != nil {
		return result, err
	}
	if err := base().
		Where("status = ? AND quantity > 0 AND (expires_at IS NULL OR expires_at >= ?)", constants.CardStatusActive, now).
		Count(&result.Claimable).Error; err != nil {
		return result, err
	}
	if err := base().Where("quantity <= 0").Count(&result.Exhausted).Error; err != nil {
		return result, err
	}
	if err := base().Where("expires_at IS NOT NULL AND expires_at < ?", now).Count(&result.Expired).Error; err != nil {
		return result, err
	}
	if err := base().Where("status = ?", constants.CardStatusDisabled).Count(&result.Disabled).Error; err != nil {
		return result, err
	}
	if err := base().Select("COALESCE(SUM(quantity), 0)").Scan(&result.RemainingUnits).Error; err != nil {
		return result, err
	}
	if err := base().Select("COALESCE(SUM(initial_quantity), 0)").Scan(&result.InitialUnits).Error; err != nil {
		return result, err
	}
	return result, nil
}

// CountClaims 统计时间窗内的领取数
func (r *GormDashboardRepository) CountClaims(ctx context.Context, startAt, endAt time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ClaimRecord{}).
		Where("claimed_at >= ? AND claimed_at < ?", startAt.UTC(), endAt.UTC()).
		Count(&count).Error
	return count, err
}

// GetClaimTrends 按天统计领取数
func (r *GormDashboardRepository) GetClaimTrends(ctx context.Context, startAt, endAt time.Time) ([]DashboardClaimTrendRow, error) {
	dayExpr := dayExprByDialect(dbDialectName(r.db), "claimed_at")
	rows := make([]DashboardClaimTrendRow, 0)
	err := r.db.WithContext(ctx).Model(&models.ClaimRecord{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as claims", dayExpr)).
		Where("claimed_at >= ? AND claimed_at < ?", startAt.UTC(), endAt.UTC()).
		Group(dayExpr).
		Order("day asc").
		Scan(&rows).Error
	return rows, err
}

// GetClaimsByChannel 按通知渠道统计
func (r *GormDashboardRepository) GetClaimsByChannel(ctx context.Context, startAt, endAt time.Time) ([]DashboardChannelRow, error) {
	rows := make([]DashboardChannelRow, 0)
	err := r.db.WithContext(ctx).Model(&models.ClaimRecord{}).
		Select("channel, COUNT(*) as claims").
		Where("claimed_at >= ? AND claimed_at < ?", startAt.UTC(), endAt.UTC()).
		Group("channel").
		Order("claims desc").
		Scan(&rows).Error
	return rows, err
}

// GetTopCards 领取最多的卡片
func (r *GormDashboardRepository) GetTopCards(ctx context.Context, startAt, endAt time.Time, limit int) ([]DashboardCardRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardCardRankingRow, 0)
	err := r.db.WithContext(ctx).Table("claim_records AS cr").
		Select("cr.card_id as card_id, c.header as header, c.business_name as business_name, COUNT(*) as claims").
		Joins("JOIN cards c ON c.id = cr.card_id").
		Where("cr.claimed_at >= ? AND cr.claimed_at < ?", startAt.UTC(), endAt.UTC()).
		Group("cr.card_id, c.header, c.business_name").
		Order("claims desc").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// GetNotificationStats 通知投递状态分布
func (r *GormDashboardRepository) GetNotificationStats(ctx context.Context, startAt, endAt time.Time) ([]DashboardNotificationRow, error) {
	rows := make([]DashboardNotificationRow, 0)
	err := r.db.WithContext(ctx).Model(&models.ClaimNotification{}).
		Select("status, COUNT(*) as total").
		Where("created_at >= ? AND created_at < ?", startAt.UTC(), endAt.UTC()).
		Group("status").
		Scan(&rows).Error
	return rows, err
}
