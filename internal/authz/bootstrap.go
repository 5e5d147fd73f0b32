package authz

import (
	"fmt"

	"github.com/qrewards/qrewards/internal/logger"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
//
//	readonly_auditor  所有管理端 GET
//	card_manager      卡片增删改、二维码下载、上传
//	support           领取记录查询导出、补发通知、测试发送
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:      "readonly_auditor",
			Policies:  []Policy{{Object: "/admin/*", Action: "GET"}},
			Immutable: true,
		},
		{
			Role:     "card_manager",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/cards", Action: "*"},
				{Object: "/admin/cards/:id", Action: "*"},
				{Object: "/admin/cards/:id/qrcode", Action: "GET"},
				{Object: "/admin/upload", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "support",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/claims", Action: "GET"},
				{Object: "/admin/claims/export", Action: "GET"},
				{Object: "/admin/claims/:id/renotify", Action: "POST"},
				{Object: "/admin/notify/test", Action: "POST"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 补齐预置角色，已有规则保持不动，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	added := 0
	track := func(ok bool, err error) error {
		if err != nil {
			return fmt.Errorf("bootstrap builtin role failed: %w", err)
		}
		if ok {
			added++
		}
		return nil
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		if err := track(s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)); err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if err := track(s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)); err != nil {
				return err
			}
		}
		for _, policy := range seed.Policies {
			act := NormalizeAction(policy.Action)
			if act == "" {
				return fmt.Errorf("builtin role %s: %w", role, ErrActionRequired)
			}
			if err := track(s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), act)); err != nil {
				return err
			}
		}
	}

	if added > 0 {
		logger.Infow("authz_builtin_roles_bootstrapped", "rules_added", added)
	}
	return nil
}
