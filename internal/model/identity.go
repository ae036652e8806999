package model

import "strconv"

// Role is the caller's role as resolved by the auth service.
type Role string

// Caller roles.
const (
	RoleBuyer Role = "buyer"
	RoleAdmin Role = "admin"
)

// Identity is the authenticated caller handed to the order engine.
type Identity struct {
	ID   int64
	Role Role
}

// IsAdmin reports whether the caller is an administrator.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Actor returns the identifier recorded in the status journal.
func (i Identity) Actor() string {
	return string(i.Role) + ":" + strconv.FormatInt(i.ID, 10)
}
