package handler

import "strings"

// Role is the closed set of roles a profile can hold. RoleNone means the
// profile exists but carries no usable role.
type Role string

const (
	RoleNone    Role = ""
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleCashier:
		return RoleCashier
	default:
		return RoleNone
	}
}

// HomePath is where a signed-in user lands after login.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleCashier:
		return "/cashier"
	default:
		return "/login"
	}
}
