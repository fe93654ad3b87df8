package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Role is the closed set of account roles. The zero value is not a valid
// role so an unset field is never mistaken for a customer.
type Role uint8

const (
	RoleCustomer Role = iota + 1
	RoleEmployee
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleCustomer: "customer",
	RoleEmployee: "employee",
	RoleAdmin:    "admin",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole maps the stored column value back to a Role.
func ParseRole(s string) (Role, error) {
	for r, n := range roleNames {
		if n == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("model: unknown role %q", s)
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role as its name so the column stays readable.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("model: invalid role %d", r)
	}
	return r.String(), nil
}

// Scan accepts the string or byte forms returned by the MySQL driver.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.setFrom(v)
	case []byte:
		return r.setFrom(string(v))
	default:
		return fmt.Errorf("model: cannot scan %T into Role", src)
	}
}

func (r *Role) setFrom(s string) error {
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is an allow-list of roles. Build one with Roles.
type RoleSet uint8

// Roles builds a RoleSet from the given roles.
func Roles(rs ...Role) RoleSet {
	var s RoleSet
	for _, r := range rs {
		s |= 1 << r
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

// Names lists the role names in declaration order.
func (s RoleSet) Names() []string {
	out := make([]string, 0, 3)
	for _, r := range []Role{RoleCustomer, RoleEmployee, RoleAdmin} {
		if s.Has(r) {
			out = append(out, r.String())
		}
	}
	return out
}

// Allow-lists used by route registration and the feedback owner check.
var (
	AnyRole    = Roles(RoleCustomer, RoleEmployee, RoleAdmin)
	StaffRoles = Roles(RoleEmployee, RoleAdmin)
	AdminRoles = Roles(RoleAdmin)
)
