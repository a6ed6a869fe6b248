package auth

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAlumni, RoleStudent:
		return true
	default:
		return false
	}
}

// DashboardPath returns the dashboard route gated to this role.
func (r Role) DashboardPath() string {
	return "/" + string(r) + "/dashboard"
}

// BranchSegment returns the branch-scoped collection segment this role's
// profiles are written under. Admins are not registrable and carry no
// branch segment.
func (r Role) BranchSegment() string {
	switch r {
	case RoleAlumni:
		return "alumni"
	case RoleStudent:
		return "students"
	default:
		return ""
	}
}

// IsRegistrable reports whether the role can be picked at signup.
func (r Role) IsRegistrable() bool {
	return r == RoleAlumni || r == RoleStudent
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleAlumni,
		RoleStudent,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
