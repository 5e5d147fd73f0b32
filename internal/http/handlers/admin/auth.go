package admin

import (
	"errors"
	"time"

	"github.com/qrewards/qrewards/internal/constants"
	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username       string                       `json:"username" binding:"required"`
	Password       string                       `json:"password" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayload `json:"captcha_payload"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	ctx := c.Request.Context()
	if err := h.CaptchaService.Verify(ctx, constants.CaptchaSceneLogin, req.CaptchaPayload.Service(), c.ClientIP()); err != nil {
		respondMappedError(c, err, handlershared.CaptchaErrorRules, response.CodeInternal, "error.captcha_verify_failed")
		return
	}

	result, err := h.AuthService.Login(ctx, req.Username, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			requestLog(c).Infow("admin_login_rejected", "username", req.Username, "client_ip", c.ClientIP())
			respondError(c, response.CodeUnauthorized, "error.admin_login_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.login_failed", err)
		return
	}

	response.Success(c, LoginResponse{
		Token: result.Token,
		User: map[string]interface{}{
			"id":       result.Admin.ID,
			"username": result.Admin.Username,
			"is_super": result.Admin.IsSuper,
		},
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// GetAdminMe 当前管理员信息
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AuthService.GetAdmin(adminID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"is_super":      admin.IsSuper,
		"last_login_at": admin.LastLoginAt,
		"last_login_ip": admin.LastLoginIP,
		"roles":         roles,
	})
}

// UpdateAdminPassword 修改密码，成功后旧 token 全部失效
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	err := h.AuthService.ChangePassword(c.Request.Context(), adminID, req.OldPassword, req.NewPassword)
	if err != nil {
		var policyErr interface {
			Key() string
			Args() []interface{}
		}
		if errors.As(err, &policyErr) {
			respondErrorf(c, response.CodeBadRequest, policyErr.Key(), policyErr.Args()...)
			return
		}
		respondMappedError(c, err, handlershared.PasswordErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, nil)
}
