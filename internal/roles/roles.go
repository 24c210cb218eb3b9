// Package roles defines the closed set of roles a principal can hold.
package roles

import "fmt"

// Role identifies a class of principal with shared capabilities.
type Role string

// The full role set. Access decisions only ever see these values; free-form
// roles are rejected at every mutation boundary.
const (
	Guest   Role = "guest"
	User    Role = "user"
	Manager Role = "manager"
	Admin   Role = "admin"
)

var labels = map[Role]string{
	Guest:   "Guest",
	User:    "Active user",
	Manager: "Manager",
	Admin:   "Administrator",
}

// All returns every defined role in declaration order.
func All() []Role {
	return []Role{Guest, User, Manager, Admin}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := labels[r]
	return ok
}

// Label returns the display label for the role.
func (r Role) Label() string {
	return labels[r]
}

func (r Role) String() string {
	return string(r)
}

// Parse converts raw input into a Role.
func Parse(raw string) (Role, error) {
	r := Role(raw)
	if !r.Valid() {
		return "", fmt.Errorf("roles: unknown role %q", raw)
	}
	return r, nil
}
