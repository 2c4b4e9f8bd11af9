package middleware

import (
	userHandler "supplies-pos/internal/services/user/handler"
)

type GuardDecision int

const (
	GuardAllow GuardDecision = iota
	GuardLoading
	GuardLogin
	GuardUnauthorized
)

func (d GuardDecision) String() string {
	switch d {
	case GuardAllow:
		return "allow"
	case GuardLoading:
		return "loading"
	case GuardLogin:
		return "login"
	case GuardUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// SessionState is what the guard knows about the caller. Loading means the
// session could not be resolved yet and no redirect may be issued.
type SessionState struct {
	Loading       bool
	Authenticated bool
	Role          userHandler.Role
}

// Evaluate decides whether a route renders. An authenticated user without a
// role is sent back to login rather than to the unauthorized page.
func Evaluate(state SessionState, allowed ...userHandler.Role) GuardDecision {
	if state.Loading {
		return GuardLoading
	}
	if !state.Authenticated {
		return GuardLogin
	}

	switch state.Role {
	case userHandler.RoleNone:
		return GuardLogin
	case userHandler.RoleAdmin, userHandler.RoleCashier:
		if len(allowed) == 0 {
			return GuardAllow
		}
		for _, r := range allowed {
			if r == state.Role {
				return GuardAllow
			}
		}
		return GuardUnauthorized
	default:
		return GuardLogin
	}
}
