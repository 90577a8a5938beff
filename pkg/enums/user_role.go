package enums

// UserRole mirrors the users.role column.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleStaff   UserRole = "staff"
	UserRoleViewer  UserRole = "viewer"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleManager, UserRoleStaff, UserRoleViewer:
		return true
	default:
		return false
	}
}

// AtLeast reports whether r carries the privileges of other. Roles are
// strictly ordered: viewer < staff < manager < admin.
func (r UserRole) AtLeast(other UserRole) bool {
	return r.rank() >= other.rank()
}

func (r UserRole) rank() int {
	switch r {
	case UserRoleAdmin:
		return 4
	case UserRoleManager:
		return 3
	case UserRoleStaff:
		return 2
	case UserRoleViewer:
		return 1
	default:
		return 0
	}
}

func ParseUserRole(value string) (UserRole, bool) {
	role := UserRole(value)
	if !role.IsValid() {
		return "", false
	}
	return role, true
}
