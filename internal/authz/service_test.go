package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	svc, err := NewService(db)
	require.NoError(t, err)
	return svc
}

func TestEnforceAdminMatchesRouteTemplate(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.GrantRolePolicy("ops", "/admin/cards/:id", "get"))
	require.NoError(t, svc.SetAdminRoles(1, []string{"ops"}))

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/cards/42", "GET")
	require.NoError(t, err)
	require.True(t, allow)

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/cards/42", "DELETE")
	require.NoError(t, err)
	require.False(t, allow)

	allow, err = svc.EnforceAdmin(2, "/api/v1/admin/cards/42", "GET")
	require.NoError(t, err)
	require.False(t, allow)
}

func TestSetAdminRolesReplacesPreviousRoles(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.GrantRolePolicy("ops", "/admin/claims", "GET"))
	require.NoError(t, svc.GrantRolePolicy("auditor", "/admin/audit-logs", "GET"))

	require.NoError(t, svc.SetAdminRoles(2, []string{"ops", "role:ops"}))
	roles, err := svc.GetAdminRoles(2)
	require.NoError(t, err)
	require.Equal(t, []string{"role:ops"}, roles)

	require.NoError(t, svc.SetAdminRoles(2, []string{"auditor"}))
	roles, err = svc.GetAdminRoles(2)
	require.NoError(t, err)
	require.Equal(t, []string{"role:auditor"}, roles)

	allow, err := svc.EnforceAdmin(2, "/admin/claims", "GET")
	require.NoError(t, err)
	require.False(t, allow)

	policies, err := svc.GetAdminPolicies(2)
	require.NoError(t, err)
	require.Equal(t, []Policy{{Subject: "role:auditor", Object: "/admin/audit-logs", Action: "GET"}}, policies)
}

func TestSetAdminRolesRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t)
	require.ErrorIs(t, svc.SetAdminRoles(5, []string{"ghost"}), ErrRoleNotFound)
	require.ErrorIs(t, svc.SetAdminRoles(0, nil), ErrAdminIDRequired)
	require.ErrorIs(t, svc.SetAdminRoles(5, []string{"  "}), ErrRoleRequired)
}

func TestBuiltinRolesAreImmutable(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.BootstrapBuiltinRoles())
	// 重复执行不应报错
	require.NoError(t, svc.BootstrapBuiltinRoles())

	roles, err := svc.ListRoles()
	require.NoError(t, err)
	require.Equal(t, []Role{
		{Name: "role:card_manager", Builtin: true},
		{Name: "role:readonly_auditor", Builtin: true},
		{Name: "role:support", Builtin: true},
	}, roles)

	require.ErrorIs(t, svc.DeleteRole("support"), ErrRoleBuiltin)
	require.ErrorIs(t, svc.GrantRolePolicy("support", "/admin/cards", "POST"), ErrRoleBuiltin)
	require.ErrorIs(t, svc.RevokeRolePolicy("card_manager", "/admin/cards", "*"), ErrRoleBuiltin)
	require.ErrorIs(t, svc.DeleteRole(roleAnchor), ErrRoleReserved)
	require.True(t, svc.IsBuiltinRole("readonly_auditor"))
	require.False(t, svc.IsBuiltinRole("ops"))
}

func TestBuiltinRoleInheritance(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.BootstrapBuiltinRoles())
	require.NoError(t, svc.SetAdminRoles(3, []string{"card_manager"}))

	cases := []struct {
		path, method string
		want         bool
	}{
		{"/api/v1/admin/claims", "GET", true},
		{"/api/v1/admin/cards", "POST", true},
		{"/api/v1/admin/cards/:id/qrcode", "GET", true},
		{"/api/v1/admin/claims/:id/renotify", "POST", false},
		{"/api/v1/admin/authz/roles", "POST", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceAdmin(3, tc.path, tc.method)
		require.NoError(t, err)
		require.Equal(t, tc.want, allow, "%s %s", tc.method, tc.path)
	}
}

func TestDeleteCustomRoleDropsBindings(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.GrantRolePolicy("night shift", "/admin/claims", "GET"))
	require.NoError(t, svc.SetAdminRoles(4, []string{"night_shift"}))

	require.NoError(t, svc.DeleteRole("role:night_shift"))

	roles, err := svc.GetAdminRoles(4)
	require.NoError(t, err)
	require.Empty(t, roles)
	policies, err := svc.GetRolePolicies("night_shift")
	require.NoError(t, err)
	require.Empty(t, policies)
	listed, err := svc.ListRoles()
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestUnavailableService(t *testing.T) {
	var svc *Service
	_, err := svc.EnforceAdmin(1, "/admin/cards", "GET")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, svc.BootstrapBuiltinRoles(), ErrUnavailable)
}

func TestNormalizeHelpers(t *testing.T) {
	cases := map[string]string{
		"/api/v1/admin/claims/:id": "/admin/claims/:id",
		"/admin/claims/:id":        "/admin/claims/:id",
		"admin/cards":              "/admin/cards",
		"/api/v1":                  "/",
		"":                         "/",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeObject(in), in)
	}

	role, err := NormalizeRole(" role:night shift ")
	require.NoError(t, err)
	require.Equal(t, "role:night_shift", role)
	require.Equal(t, "POST", NormalizeAction(" post "))
	require.Equal(t, "admin:9", SubjectForAdmin(9))
}
