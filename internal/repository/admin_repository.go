package repository

import (
	"errors"
	"time"

	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 管理员账号，查不到时返回 (nil, nil)
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	List() ([]models.Admin, error)
	RotatePassword(id uint, passwordHash string, at time.Time) error
	RecordLogin(id uint, ip string, at time.Time) error
}

type GormAdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

func (r *GormAdminRepository) first(query interface{}, args ...interface{}) (*models.Admin, error) {
	admin := &models.Admin{}
	err := r.db.Where(query, args...).First(admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return admin, nil
}

func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	return r.first("username = ?", username)
}

func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	return r.first("id = ?", id)
}

// List 不返回密码哈希
func (r *GormAdminRepository) List() ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.
		Omit("password_hash").
		Order("id ASC").
		Find(&admins).Error
	return admins, err
}

// RotatePassword 写入新密码并在同一条 UPDATE 中递增 token_version，
// at 之前签发的 token 一并失效
func (r *GormAdminRepository) RotatePassword(id uint, passwordHash string, at time.Time) error {
	result := r.db.Model(&models.Admin{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash":        passwordHash,
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": at,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormAdminRepository) RecordLogin(id uint, ip string, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_login_at": at,
		"last_login_ip": ip,
	}).Error
}
