package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 管理员认证服务
type AuthService struct {
	cfg       *config.Config
	adminRepo repository.AdminRepository
	audit     *AuditService
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository, audit *AuditService) *AuthService {
	return &AuthService{
		cfg:       cfg,
		adminRepo: adminRepo,
		audit:     audit,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword 校验密码是否符合策略
func (s *AuthService) ValidatePassword(password string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

// JWTClaims JWT 声明
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.cfg.JWT.ExpireHours) * time.Hour)

	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// LoginResult 登录结果
type LoginResult struct {
	Admin     *models.Admin
	Token     string
	ExpiresAt time.Time
}

// Login 管理员登录
func (s *AuthService) Login(ctx context.Context, username, password, clientIP string) (*LoginResult, error) {
	admin, err := s.adminRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(admin.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.adminRepo.RecordLogin(admin.ID, clientIP, now); err != nil {
		// 登录时间写入失败不影响登录
		logger.Ctx(ctx).Warnw("admin_record_login_failed", "admin_id", admin.ID, "error", err)
	}
	admin.LastLoginAt = &now
	admin.LastLoginIP = clientIP
	_ = cache.SetAdminAuthState(ctx, cache.BuildAdminAuthState(admin))

	return &LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword 修改管理员密码，旧 token 全部失效
func (s *AuthService) ChangePassword(ctx context.Context, adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrNotFound
	}
	if err := s.VerifyPassword(admin.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	// JWT iat 精度为秒，截断后新签发的 token 不会被误判为失效
	now := time.Now().Truncate(time.Second)
	if err := s.adminRepo.RotatePassword(admin.ID, hashedPassword, now); err != nil {
		return err
	}
	if fresh, err := s.adminRepo.GetByID(admin.ID); err == nil && fresh != nil {
		_ = cache.SetAdminAuthState(ctx, cache.BuildAdminAuthState(fresh))
	}

	s.audit.Record(ctx, AuditEntry{
		OperatorAdminID:  admin.ID,
		OperatorUsername: admin.Username,
		Action:           models.AuditActionPasswordChange,
		TargetType:       "admin",
		TargetID:         admin.ID,
	})
	return nil
}

// GetAdmin 获取管理员
func (s *AuthService) GetAdmin(adminID uint) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	return admin, nil
}
