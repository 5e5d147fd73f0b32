package models

import (
	"time"

	"github.com/qrewards/qrewards/internal/constants"

	"gorm.io/gorm"
)

// Card 奖励卡片
// Quantity 只允许被领取守卫以条件递减的方式修改；使用 redis/dynamodb 计数后端时
// 该列是展示用镜像，以计数后端为准。
type Card struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Code            string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"` // 二维码中的公开编码
	BusinessName    string         `gorm:"type:varchar(120);not null;default:''" json:"business_name"`
	Header          string         `gorm:"type:varchar(200);not null" json:"header"`
	Subheader       string         `gorm:"type:varchar(500);not null;default:''" json:"subheader"`
	Address         string         `gorm:"type:varchar(500);not null;default:''" json:"address"`
	LogoURL         string         `gorm:"type:varchar(500);not null;default:''" json:"logo_url"`
	Quantity        int            `gorm:"not null;default:0;check:chk_cards_quantity_non_negative,quantity >= 0" json:"quantity"`
	InitialQuantity int            `gorm:"not null;default:0" json:"initial_quantity"`
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`
	Status          string         `gorm:"type:varchar(16);index;not null;default:'active'" json:"status"`
	CreatedBy       uint           `gorm:"index;not null;default:0" json:"created_by"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Card) TableName() string {
	return "cards"
}

// IsExpired 判断在 now 时刻是否已过期（now 晚于过期时间即过期）
func (c *Card) IsExpired(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return now.After(*c.ExpiresAt)
}

// IsActive 卡片是否处于启用状态
func (c *Card) IsActive() bool {
	return c != nil && c.Status == constants.CardStatusActive
}
