package models

import "fmt"

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleProjectLead Role = "project_lead"
	RoleDeveloper   Role = "developer"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleProjectLead, RoleDeveloper}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectLead, RoleDeveloper:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID       string
	Username string
	Role     Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
