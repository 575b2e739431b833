package enums

import "fmt"

// ActorRole is carried in access tokens.
type ActorRole string

const (
	ActorRoleMember       ActorRole = "member"
	ActorRoleBillingAdmin ActorRole = "billing_admin"
)

var validActorRoles = []ActorRole{ActorRoleMember, ActorRoleBillingAdmin}

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

// AdministersBilling reports whether the role holds the billing-management capability.
func (r ActorRole) AdministersBilling() bool {
	return r == ActorRoleBillingAdmin
}

func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
