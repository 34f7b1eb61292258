package model

import "fmt"

// Role is the closed set of identity roles. Only the authorization guard
// interprets what a role may do.
type Role uint8

const (
	RoleGuest Role = iota + 1
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleGuest: "guest",
	RoleAdmin: "admin",
}

// AllRoles lists every known role in declaration order.
var AllRoles = []Role{RoleGuest, RoleAdmin}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole converts the stored role name back into a Role.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
