package shared

// Portal permissions.
const (
	PermLedgerView     = "ledger.view"
	PermLedgerViewOwn  = "ledger.view_own"
	PermLedgerEdit     = "ledger.edit"
	PermFeesCreate     = "fees.create"
	PermAcademicsView  = "academics.view"
	PermAcademicsEdit  = "academics.edit"
	PermResultsEdit    = "results.edit"
	PermStudentsManage = "students.manage"
	PermJobsView       = "jobs.view"
	PermUsersManage    = "users.manage"
)

// RolePermissions maps each role to the permissions it is granted.
func RolePermissions(role Role) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermLedgerView, PermLedgerEdit, PermFeesCreate,
			PermAcademicsView, PermAcademicsEdit, PermResultsEdit,
			PermStudentsManage, PermJobsView, PermUsersManage,
		}
	case RoleLowerAdmin:
		return []string{
			PermLedgerView, PermLedgerEdit,
			PermAcademicsView, PermResultsEdit,
		}
	case RoleTeacher:
		return []string{PermAcademicsView, PermResultsEdit}
	case RoleStudent:
		return []string{PermLedgerViewOwn, PermAcademicsView}
	}
	return nil
}
