package constant

// Casbin roles, objects and actions guarding the administration endpoints.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"

	ObjectVerification = "verification"

	ActionRead   = "read"
	ActionDelete = "delete"
)
