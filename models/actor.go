package models

type Role string

const (
	RoleConsumer Role = "consumer"
	RoleProvider Role = "provider"
	RoleSystem   Role = "system"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleProvider, RoleSystem, RoleAdmin:
		return true
	}
	return false
}

// Actor is the caller identity every booking operation runs on behalf of.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// SystemActor is used by background jobs and gateway callbacks.
var SystemActor = Actor{ID: "system", Role: RoleSystem}
