package model

// OrgRole is the closed set of roles a user can hold within one
// organization. Roles outside this set are coerced to viewer before
// any permission lookup.
type OrgRole string

const (
	RoleOwner   OrgRole = "owner"
	RoleAdmin   OrgRole = "admin"
	RoleManager OrgRole = "manager"
	RoleMember  OrgRole = "member"
	RoleViewer  OrgRole = "viewer"
)

type Permission string

const (
	PermUsersInvite    Permission = "users:invite"
	PermUsersAssign    Permission = "users:assign"
	PermOrgView        Permission = "org:view"
	PermOrgManage      Permission = "org:manage"
	PermOrgExport      Permission = "org:export"
	PermTrainingAssign Permission = "training:assign"
	PermTrainingView   Permission = "training:view"
)

// rolePermissions is written out per role rather than derived from a
// seniority rank. Viewer is read-only and must never pick up a
// mutation capability through a rank reshuffle.
var rolePermissions = map[OrgRole]map[Permission]bool{
	RoleOwner: {
		PermUsersInvite:    true,
		PermUsersAssign:    true,
		PermOrgView:        true,
		PermOrgManage:      true,
		PermOrgExport:      true,
		PermTrainingAssign: true,
		PermTrainingView:   true,
	},
	RoleAdmin: {
		PermUsersInvite:    true,
		PermUsersAssign:    true,
		PermOrgView:        true,
		PermOrgExport:      true,
		PermTrainingAssign: true,
		PermTrainingView:   true,
	},
	RoleManager: {
		PermUsersInvite:    true,
		PermOrgView:        true,
		PermTrainingAssign: true,
		PermTrainingView:   true,
	},
	RoleMember: {
		PermTrainingView: true,
	},
	RoleViewer: {
		PermOrgView:      true,
		PermTrainingView: true,
	},
}

// NormalizeRole coerces any string outside the closed enumeration to
// the lowest-privilege role.
func NormalizeRole(s string) OrgRole {
	switch OrgRole(s) {
	case RoleOwner, RoleAdmin, RoleManager, RoleMember, RoleViewer:
		return OrgRole(s)
	}
	return RoleViewer
}

// Can reports whether role holds permission. Unknown roles and unknown
// permissions both deny.
func Can(role OrgRole, perm Permission) bool {
	return rolePermissions[NormalizeRole(string(role))][perm]
}
