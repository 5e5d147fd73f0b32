package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 管理员表
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                         // 主键
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`         // 管理员账号
	PasswordHash       string         `gorm:"not null" json:"-"`                            // 密码哈希
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                  // Token 版本，改密后递增
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                               // 该时间点前签发的 Token 失效
	IsSuper            bool           `gorm:"not null;default:false;index" json:"is_super"` // 超级管理员跳过 RBAC
	LastLoginAt        *time.Time     `json:"last_login_at"`
	LastLoginIP        string         `gorm:"type:varchar(64);not null;default:''" json:"last_login_ip"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
