package enums

import "fmt"

// ActorRole identifies who is performing an order mutation.
type ActorRole string

const (
	ActorRoleAdmin        ActorRole = "admin"
	ActorRoleStoreManager ActorRole = "store_manager"
	ActorRoleRider        ActorRole = "rider"
	ActorRoleCustomer     ActorRole = "customer"
	ActorRoleSystem       ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleStoreManager,
	ActorRoleRider,
	ActorRoleCustomer,
	ActorRoleSystem,
}

func (r ActorRole) String() string {
	return string(r)
}

func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role is admin or an internal system actor.
func (r ActorRole) IsPrivileged() bool {
	return r == ActorRoleAdmin || r == ActorRoleSystem
}

func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
