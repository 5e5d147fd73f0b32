package models

import "time"

// 审计动作
const (
	AuditActionCardCreate     = "card.create"
	AuditActionCardUpdate     = "card.update"
	AuditActionCardDelete     = "card.delete"
	AuditActionClaimRenotify  = "claim.renotify"
	AuditActionAdminRolesSet  = "authz.admin_roles.set"
	AuditActionRoleCreate     = "authz.role.create"
	AuditActionRoleDelete     = "authz.role.delete"
	AuditActionPolicyGrant    = "authz.policy.grant"
	AuditActionPolicyRevoke   = "authz.policy.revoke"
	AuditActionPasswordChange = "admin.password.change"
)

// AuditLog 后台操作审计日志
// 记录卡片变更、权限调整等管理端写操作，领取流程本身不写审计。
type AuditLog struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	OperatorAdminID  uint      `gorm:"index;not null" json:"operator_admin_id"`
	OperatorUsername string    `gorm:"type:varchar(100);index;not null;default:''" json:"operator_username"`
	Action           string    `gorm:"type:varchar(64);index;not null" json:"action"`
	TargetType       string    `gorm:"type:varchar(32);index;not null;default:''" json:"target_type"`
	TargetID         uint      `gorm:"index;not null;default:0" json:"target_id"`
	RequestID        string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON       JSON      `gorm:"type:json" json:"detail"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
