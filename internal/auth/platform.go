package auth

// Platform admin roles.
const (
	PlatformRoleSuperAdmin = "super_admin"
	PlatformRoleSupport    = "support"
	PlatformRoleBilling    = "billing"
)

// Platform permissions gate code paths that read across organizations.
const (
	PlatformPermOrganizationsRead   = "organizations:read"
	PlatformPermOrganizationsManage = "organizations:manage"
	PlatformPermAdminsManage        = "admins:manage"
	PlatformPermBillingRead         = "billing:read"
)

var platformGrants = map[string]map[string]struct{}{
	PlatformRoleSuperAdmin: set(
		PlatformPermOrganizationsRead,
		PlatformPermOrganizationsManage,
		PlatformPermAdminsManage,
		PlatformPermBillingRead,
	),
	PlatformRoleSupport: set(
		PlatformPermOrganizationsRead,
	),
	PlatformRoleBilling: set(
		PlatformPermOrganizationsRead,
		PlatformPermBillingRead,
	),
}

// IsPlatformRole reports whether role is a known platform admin role.
func IsPlatformRole(role string) bool {
	_, ok := platformGrants[role]
	return ok
}

// AdminCan reports whether a platform admin role holds permission.
func AdminCan(role, permission string) bool {
	grants, ok := platformGrants[role]
	if !ok {
		return false
	}
	_, ok = grants[permission]
	return ok
}

func set(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
