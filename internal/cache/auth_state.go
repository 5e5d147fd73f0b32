package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/qrewards/qrewards/internal/models"
)

const (
	authStateKeyPrefix = "auth:admin:"
	authStateTTL       = 10 * time.Minute
)

// AdminAuthState JWT 校验所需的管理员快照，避免每个请求都查库
// TokenInvalidBefore 为 Unix 秒，0 表示未设置
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	IsSuper            bool   `json:"is_super"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
}

// Accepts 判断以 version 签发于 issuedAt 的 token 是否仍然有效
func (s *AdminAuthState) Accepts(version uint64, issuedAt time.Time) bool {
	if s == nil || version != s.TokenVersion {
		return false
	}
	return s.TokenInvalidBefore <= 0 || issuedAt.Unix() >= s.TokenInvalidBefore
}

func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		IsSuper:      admin.IsSuper,
		TokenVersion: admin.TokenVersion,
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

func authStateKey(adminID uint) string {
	return authStateKeyPrefix + strconv.FormatUint(uint64(adminID), 10)
}

// GetAdminAuthState Redis 未启用时恒为未命中
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	state := &AdminAuthState{}
	hit, err := GetJSON(ctx, authStateKey(adminID), state)
	if err != nil || !hit {
		return nil, false, err
	}
	return state, true, nil
}

// SetAdminAuthState 改密、登录后覆盖写入，让旧 token 尽快失效
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, authStateKey(state.AdminID), state, authStateTTL)
}
