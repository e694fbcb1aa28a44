package rbac

const (
	PermQuizGenerate   = "quiz:generate"
	PermQuizAnswer     = "quiz:answer"
	PermQuizView       = "quiz:view"
	PermPapersView     = "papers:view"
	PermChangePassword = "user:change_password"
	PermQuestionsList  = "questions:list"
	PermPapersUpload   = "papers:upload"
	PermUsersList      = "users:list"
	PermUsersUpdate    = "users:update_role"
	PermUsersExport    = "users:export"
	PermUsersDelete    = "users:delete"
	PermAuditView      = "audit:view"
)

// Default policy. Roles not listed here have no permissions.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizGenerate,
		PermQuizAnswer,
		PermQuizView,
		PermPapersView,
		PermChangePassword,
	},
	"admin": {
		"*", // everything
	},
}
