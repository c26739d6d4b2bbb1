package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role uint8

const (
	RoleUser Role = iota
	RoleAdmin
	RoleSuperAdmin
)

// Capability is a single permission bit.
type Capability uint32

const (
	CapEditAnyComment Capability = 1 << iota
	CapDeleteAnyComment
	CapListAllComments
	CapReconcileLikes
	CapViewAnyUserLikes
)

var roleCapabilities = map[Role]Capability{
	RoleUser:       0,
	RoleAdmin:      CapEditAnyComment | CapDeleteAnyComment | CapViewAnyUserLikes,
	RoleSuperAdmin: CapEditAnyComment | CapDeleteAnyComment | CapViewAnyUserLikes | CapListAllComments | CapReconcileLikes,
}

// Capabilities returns the capability set granted to the role.
func (r Role) Capabilities() Capability {
	return roleCapabilities[r]
}

// Can reports whether the role holds every bit in c.
func (r Role) Can(c Capability) bool {
	return c != 0 && r.Capabilities()&c == c
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "superadmin"
	default:
		return "user"
	}
}

// ParseRole converts a stored role name into a Role. The legacy value
// "super" is accepted as an alias for superadmin.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	case "superadmin", "super":
		return RoleSuperAdmin, nil
	default:
		return RoleUser, fmt.Errorf("unknown role %q", s)
	}
}

// Scan implements sql.Scanner.
func (r *Role) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case nil:
		*r = RoleUser
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", value)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	return r.String(), nil
}

// MarshalText lets roles serialise as their names.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
