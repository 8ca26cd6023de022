// README: Caller identity passed explicitly into service commands.
package types

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// Actor is the authenticated principal behind a command.
type Actor struct {
	ID   ID
	Role Role
}

func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

// CanAccess reports whether the actor may read or act on a resource owned by ownerID.
func (a Actor) CanAccess(ownerID ID) bool {
	return a.IsStaff() || a.Role == RoleSystem || (a.ID != "" && a.ID == ownerID)
}
