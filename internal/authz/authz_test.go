package authz

import "testing"

func TestCanAccessGlobalUserManagement(t *testing.T) {
	if !CanAccessGlobalUserManagement(true) {
		t.Fatal("super admin should access global user management")
	}
	if CanAccessGlobalUserManagement(false) {
		t.Fatal("non super admin should not access global user management")
	}
}

func TestCanUpdateUser(t *testing.T) {
	cases := []struct {
		name              string
		isSuperAdmin      bool
		actorID, targetID int
		privileged        bool
		want              bool
	}{
		{"super admin any target", true, 1, 2, true, true},
		{"self non-privileged", false, 1, 1, false, true},
		{"self privileged", false, 1, 1, true, false},
		{"cross user non-privileged", false, 1, 2, false, false},
		{"cross user privileged", false, 1, 2, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanUpdateUser(tc.isSuperAdmin, tc.actorID, tc.targetID, tc.privileged)
			if got != tc.want {
				t.Errorf("CanUpdateUser(%v, %d, %d, %v) = %v, want %v",
					tc.isSuperAdmin, tc.actorID, tc.targetID, tc.privileged, got, tc.want)
			}
		})
	}
}

func TestCanResetUser2FA(t *testing.T) {
	cases := []struct {
		name                                                  string
		isSuperAdmin, hasTeamUpdate, sameTenant, targetIsSuper bool
		want                                                  bool
	}{
		{"team permission cannot reset super admin", false, true, true, true, false},
		{"super admin resets super admin", true, false, false, true, true},
		{"super admin resets anyone", true, false, false, false, true},
		{"team permission same tenant", false, true, true, false, true},
		{"team permission other tenant", false, true, false, false, false},
		{"no permission", false, false, true, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanResetUser2FA(tc.isSuperAdmin, tc.hasTeamUpdate, tc.sameTenant, tc.targetIsSuper)
			if got != tc.want {
				t.Errorf("CanResetUser2FA(%v, %v, %v, %v) = %v, want %v",
					tc.isSuperAdmin, tc.hasTeamUpdate, tc.sameTenant, tc.targetIsSuper, got, tc.want)
			}
		})
	}
}

func TestCanManageTeamMembers(t *testing.T) {
	if !CanManageTeamMembers(true, false, false) {
		t.Fatal("super admin should manage team members anywhere")
	}
	if !CanManageTeamMembers(false, true, true) {
		t.Fatal("team update permission in same tenant should suffice")
	}
	if CanManageTeamMembers(false, true, false) {
		t.Fatal("team update permission must not cross tenants")
	}
	if CanManageTeamMembers(false, false, true) {
		t.Fatal("membership alone grants nothing")
	}
}

func TestHasPermission(t *testing.T) {
	if !HasPermission(RoleAdmin, PermissionTeamUpdate) {
		t.Fatal("admin should hold team:update")
	}
	if HasPermission(RoleMember, PermissionTeamUpdate) {
		t.Fatal("member should not hold team:update")
	}
	if HasPermission("unknown", PermissionTeamRead) {
		t.Fatal("unknown role should hold nothing")
	}
}
