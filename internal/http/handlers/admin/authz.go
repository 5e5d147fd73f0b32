package admin

import (
	"net/url"
	"strings"

	"github.com/qrewards/qrewards/internal/authz"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	authzRoleTargetType  = "authz_role"
	authzAdminTargetType = "admin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 获取当前管理员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	isSuper := false
	if value, exists := c.Get("admin_is_super"); exists {
		if flag, typeOK := value.(bool); typeOK {
			isSuper = flag
		}
	}

	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": isSuper,
		"roles":    roles,
		"policies": policies,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// ListAuthzAdmins 获取管理员及其角色
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		roles, roleErr := h.AuthzService.GetAdminRoles(admin.ID)
		if roleErr != nil {
			respondError(c, response.CodeInternal, "error.config_fetch_failed", roleErr)
			return
		}
		items = append(items, gin.H{
			"id":            admin.ID,
			"username":      admin.Username,
			"is_super":      admin.IsSuper,
			"last_login_at": admin.LastLoginAt,
			"created_at":    admin.CreatedAt,
			"roles":         roles,
		})
	}

	response.Success(c, items)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_role_invalid", err)
		return
	}

	h.AuditService.RecordFor(c.Request.Context(), op, models.AuditActionRoleCreate, authzRoleTargetType, 0, models.JSON{
		"role": role,
	})
	requestLog(c).Infow("admin_authz_role_created", "operator_admin_id", op.AdminID, "role", role)

	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.authz_role_invalid", nil)
		return
	}

	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_role_invalid", err)
		return
	}

	h.AuditService.RecordFor(c.Request.Context(), op, models.AuditActionRoleDelete, authzRoleTargetType, 0, models.JSON{
		"role": role,
	})
	requestLog(c).Infow("admin_authz_role_deleted", "operator_admin_id", op.AdminID, "role", role)

	response.Success(c, nil)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.authz_role_invalid", nil)
		return
	}

	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_role_invalid", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	h.changeAuthzPolicy(c, true)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	h.changeAuthzPolicy(c, false)
}

func (h *Handler) changeAuthzPolicy(c *gin.Context, grant bool) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	action := models.AuditActionPolicyGrant
	event := "admin_authz_policy_granted"
	change := h.AuthzService.GrantRolePolicy
	if !grant {
		action = models.AuditActionPolicyRevoke
		event = "admin_authz_policy_revoked"
		change = h.AuthzService.RevokeRolePolicy
	}
	if err := change(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	method := strings.ToUpper(strings.TrimSpace(req.Action))
	h.AuditService.RecordFor(c.Request.Context(), op, action, authzRoleTargetType, 0, models.JSON{
		"role":   req.Role,
		"object": authz.NormalizeObject(req.Object),
		"method": method,
	})
	requestLog(c).Infow(event,
		"operator_admin_id", op.AdminID,
		"role", req.Role,
		"object", req.Object,
		"action", method,
	)

	response.Success(c, nil)
}

// GetAuthzAdminRoles 获取管理员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := parseIDParam(c, "id", "error.admin_id_invalid")
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	adminID, ok := parseIDParam(c, "id", "error.admin_id_invalid")
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
		return
	}

	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_role_invalid", err)
		return
	}

	h.AuditService.RecordFor(c.Request.Context(), op, models.AuditActionAdminRolesSet, authzAdminTargetType, adminID, models.JSON{
		"target_username": admin.Username,
		"roles":           req.Roles,
	})
	requestLog(c).Infow("admin_authz_admin_roles_updated",
		"operator_admin_id", op.AdminID,
		"target_admin_id", adminID,
		"roles", req.Roles,
	)

	response.Success(c, nil)
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
