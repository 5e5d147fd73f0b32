package models

import (
	"strings"

	"github.com/qrewards/qrewards/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// InitDefaultAdmin 初始化默认管理员账号
// 账号密码来自 QR_DEFAULT_ADMIN_USERNAME / QR_DEFAULT_ADMIN_PASSWORD，为空时使用内置默认值
func InitDefaultAdmin(username, password string) error {
	return EnsureDefaultAdmin(DB, username, password)
}

// EnsureDefaultAdmin 在指定连接上确保存在一个超级管理员
func EnsureDefaultAdmin(db *gorm.DB, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultAdminUsername
	}

	var count int64
	if err := db.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		// 已有管理员时只保证配置的账号仍是超级管理员
		if err := db.Model(&Admin{}).Where("username = ?", username).Update("is_super", true).Error; err != nil {
			logger.Warnw("ensure_default_admin_super_failed", "username", username, "error", err)
		}
		return nil
	}

	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Infow("default_admin_created", "username", username)
	}
	return nil
}
