package enums

import "fmt"

// RoleName maps to the roles table; created lazily on first use.
type RoleName string

const (
	RoleFarmer RoleName = "farmer"
	RoleBuyer  RoleName = "buyer"
)

var validRoleNames = []RoleName{RoleFarmer, RoleBuyer}

// String implements fmt.Stringer.
func (r RoleName) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RoleName.
func (r RoleName) IsValid() bool {
	for _, candidate := range validRoleNames {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRoleName converts raw input into a RoleName.
func ParseRoleName(value string) (RoleName, error) {
	for _, candidate := range validRoleNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
