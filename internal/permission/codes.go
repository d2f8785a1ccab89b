package permission

// Codes enforced by the HTTP surface. Every one of them must exist in the
// catalog file.
const (
	RolesView   = "ROLLER_GORUNTULEME"
	RolesCreate = "ROLLER_EKLEME"
	RolesUpdate = "ROLLER_DUZENLEME"
	RolesDelete = "ROLLER_SILME"

	UsersView   = "USERS_GORUNTULEME"
	UsersCreate = "USERS_EKLEME"
	UsersUpdate = "USERS_DUZENLEME"

	PermissionsView   = "YETKILER_GORUNTULEME"
	PermissionsUpdate = "YETKILER_DUZENLEME"

	AuditView = "DENETIM_GORUNTULEME"
)

// Enforced lists every code the router guards with.
var Enforced = []string{
	RolesView, RolesCreate, RolesUpdate, RolesDelete,
	UsersView, UsersCreate, UsersUpdate,
	PermissionsView, PermissionsUpdate,
	AuditView,
}
