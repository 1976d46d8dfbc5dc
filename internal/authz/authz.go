package authz

// 权限常量
const (
	PermissionTeamUpdate = "team:update"
	PermissionTeamRead   = "team:read"
)

// 角色常量
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleMember: {
		PermissionTeamRead,
	},
	RoleAdmin: {
		PermissionTeamRead,
		PermissionTeamUpdate,
	},
}

// HasPermission reports whether a role grants the given permission.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanAccessGlobalUserManagement gates the cross-tenant user admin surface.
func CanAccessGlobalUserManagement(isSuperAdmin bool) bool {
	return isSuperAdmin
}

// CanUpdateUser decides whether the actor may update the target user record.
// Non-super-admins may only touch their own record, and never the privileged
// fields (role, super-admin flag, active flag).
func CanUpdateUser(isSuperAdmin bool, actorID, targetID int, attemptsPrivilegedChange bool) bool {
	if isSuperAdmin {
		return true
	}
	if actorID != targetID {
		return false
	}
	return !attemptsPrivilegedChange
}

// CanResetUser2FA decides whether the actor may reset the target's second
// factor. A super-admin target can only be reset by another super-admin;
// that guard is checked before anything else.
func CanResetUser2FA(isSuperAdmin, hasTeamUpdatePermission, targetInSameTenant, targetIsSuperAdmin bool) bool {
	if targetIsSuperAdmin && !isSuperAdmin {
		return false
	}
	if isSuperAdmin {
		return true
	}
	return hasTeamUpdatePermission && targetInSameTenant
}

// CanManageTeamMembers covers add/update/remove of ordinary team members.
// Same shape as CanResetUser2FA minus the super-admin-target guard.
func CanManageTeamMembers(isSuperAdmin, hasTeamUpdatePermission, targetInSameTenant bool) bool {
	if isSuperAdmin {
		return true
	}
	return hasTeamUpdatePermission && targetInSameTenant
}
