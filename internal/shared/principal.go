package shared

// Role enumerates portal user roles.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleAdmin      Role = "ADMIN"
	RoleLowerAdmin Role = "LOWER_ADMIN"
	RoleTeacher    Role = "TEACHER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleLowerAdmin, RoleTeacher:
		return true
	}
	return false
}

// Principal is the authenticated actor as loaded from the users table.
// It is never built from client supplied data.
type Principal struct {
	UserID    int64
	Email     string
	Role      Role
	StudentID int64
}

// IsAdmin reports whether the principal administers the portal.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleLowerAdmin
}

// CanViewStudent reports whether the principal may read the given student's records.
func (p Principal) CanViewStudent(studentID int64) bool {
	if p.IsAdmin() {
		return true
	}
	return p.Role == RoleStudent && p.StudentID != 0 && p.StudentID == studentID
}
