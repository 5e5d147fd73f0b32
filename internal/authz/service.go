package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	adminSubjectFmt = "admin:%d"
	rolePrefix      = "role:"
	// roleAnchor 角色本身没有策略时也要能被列出，用一条 g 规则挂在锚点上
	roleAnchor = "role:__anchor__"
)

// 主体是 admin:<id> 或 role:<name>，对象是去掉 /api/v1 的路由模板
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrUnavailable     = errors.New("authz service unavailable")
	ErrRoleRequired    = errors.New("role is required")
	ErrRoleReserved    = errors.New("reserved role is not allowed")
	ErrRoleBuiltin     = errors.New("builtin role is immutable")
	ErrRoleNotFound    = errors.New("role not found")
	ErrActionRequired  = errors.New("action is required")
	ErrAdminIDRequired = errors.New("admin id is required")
)

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Role 角色及其是否为预置角色
type Role struct {
	Name    string `json:"name"`
	Builtin bool   `json:"builtin"`
}

// Service 管理端 RBAC，策略存放在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
	builtin  map[string]bool
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	// 每次增删策略即时落库，多实例部署依赖启动时 LoadPolicy
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	builtin := make(map[string]bool)
	for _, seed := range BuiltinRoleSeeds() {
		if role, err := NormalizeRole(seed.Role); err == nil && seed.Immutable {
			builtin[role] = true
		}
	}
	return &Service{enforcer: enforcer, builtin: builtin}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceAdmin 判定管理员能否以 act 访问 obj
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForAdmin(adminID), NormalizeObject(obj), NormalizeAction(act))
}

// IsBuiltinRole 是否为预置角色
func (s *Service) IsBuiltinRole(role string) bool {
	normalized, err := NormalizeRole(role)
	if err != nil || s == nil {
		return false
	}
	return s.builtin[normalized]
}

// editableRole 归一化角色名，并拒绝锚点与预置角色
func (s *Service) editableRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if normalized == roleAnchor {
		return "", ErrRoleReserved
	}
	if s.builtin[normalized] {
		return "", ErrRoleBuiltin
	}
	return normalized, nil
}

func (s *Service) roleExists(role string) (bool, error) {
	return s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
}

// EnsureRole 创建角色，已存在时直接返回
func (s *Service) EnsureRole(role string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if normalized == roleAnchor {
		return "", ErrRoleReserved
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, nil
}

// ListRoles 列出全部角色，预置角色带标记
func (s *Service) ListRoles() ([]Role, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, roleAnchor)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	roles := make([]Role, 0, len(rules))
	for _, rule := range rules {
		if len(rule) == 0 || !isRoleSubject(rule[0]) {
			continue
		}
		roles = append(roles, Role{Name: rule[0], Builtin: s.builtin[rule[0]]})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// DeleteRole 删除角色、其策略以及管理员的角色绑定
func (s *Service) DeleteRole(role string) error {
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := s.editableRole(role)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.RemoveFilteredPolicy(0, normalized); err != nil {
		return fmt.Errorf("remove role policy failed: %w", err)
	}
	// 角色自身的继承关系与锚点
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, normalized); err != nil {
		return fmt.Errorf("remove role link failed: %w", err)
	}
	// 管理员或其他角色对它的引用
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 1, normalized); err != nil {
		return fmt.Errorf("remove role incoming link failed: %w", err)
	}
	return nil
}

// GrantRolePolicy 为自定义角色授予策略，角色不存在时一并创建
func (s *Service) GrantRolePolicy(role, object, action string) error {
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := s.editableRole(role)
	if err != nil {
		return err
	}
	act := NormalizeAction(action)
	if act == "" {
		return ErrActionRequired
	}
	if _, err := s.EnsureRole(normalized); err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(normalized, NormalizeObject(object), act); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RevokeRolePolicy 撤销自定义角色的策略
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := s.editableRole(role)
	if err != nil {
		return err
	}
	act := NormalizeAction(action)
	if act == "" {
		return ErrActionRequired
	}
	if _, err := s.enforcer.RemovePolicy(normalized, NormalizeObject(object), act); err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return nil
}

// GetRolePolicies 查询角色直接持有的策略（不含继承）
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalized)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	policies := convertPolicies(rules)
	sortPolicies(policies)
	return policies, nil
}

// SetAdminRoles 覆盖设置管理员角色，角色必须已存在
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return ErrAdminIDRequired
	}
	if err := s.ready(); err != nil {
		return err
	}

	targets := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized, err := NormalizeRole(role)
		if err != nil {
			return err
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		exists, err := s.roleExists(normalized)
		if err != nil {
			return fmt.Errorf("check role failed: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrRoleNotFound, normalized)
		}
		seen[normalized] = struct{}{}
		targets = append(targets, normalized)
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear admin roles failed: %w", err)
	}
	for _, role := range targets {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign admin role failed: %w", err)
		}
	}
	return nil
}

// GetAdminRoles 查询管理员直接绑定的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, ErrAdminIDRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles failed: %w", err)
	}
	filtered := make([]string, 0, len(roles))
	for _, role := range roles {
		if isRoleSubject(role) {
			filtered = append(filtered, role)
		}
	}
	sort.Strings(filtered)
	return filtered, nil
}

// GetAdminPolicies 管理员生效的全部策略，包含角色继承链
func (s *Service) GetAdminPolicies(adminID uint) ([]Policy, error) {
	if adminID == 0 {
		return nil, ErrAdminIDRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	subject := SubjectForAdmin(adminID)
	implicit, err := s.enforcer.GetImplicitRolesForUser(subject)
	if err != nil {
		return nil, fmt.Errorf("get implicit roles failed: %w", err)
	}

	merged := map[Policy]struct{}{}
	for _, sub := range append([]string{subject}, implicit...) {
		if sub == roleAnchor {
			continue
		}
		rules, err := s.enforcer.GetFilteredPolicy(0, sub)
		if err != nil {
			return nil, fmt.Errorf("get policies failed: %w", err)
		}
		for _, policy := range convertPolicies(rules) {
			merged[policy] = struct{}{}
		}
	}

	result := make([]Policy, 0, len(merged))
	for policy := range merged {
		result = append(result, policy)
	}
	sortPolicies(result)
	return result, nil
}

func isRoleSubject(subject string) bool {
	return strings.HasPrefix(subject, rolePrefix) && subject != roleAnchor
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

func sortPolicies(policies []Policy) {
	sort.Slice(policies, func(i, j int) bool {
		a, b := policies[i], policies[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Action < b.Action
	})
}

// SubjectForAdmin 生成管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf(adminSubjectFmt, adminID)
}

// NormalizeRole 统一为 role:<name>，空格替换为下划线
func NormalizeRole(role string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(role), rolePrefix)
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" {
		return "", ErrRoleRequired
	}
	return rolePrefix + name, nil
}

// NormalizeObject 统一授权资源路径，去掉 /api/v1 前缀
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	return strings.TrimPrefix(normalized, apiV1Prefix)
}

// NormalizeAction 统一授权动作为大写 HTTP 方法
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
