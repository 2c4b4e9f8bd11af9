package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"supplies-pos/internal/logging"
	userHandler "supplies-pos/internal/services/user/handler"
)

const (
	SESSION_COOKIE   = "pos_session"
	sessionCtxKey    = "session"
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*userHandler.Session, error)
}

// TokenFromRequest prefers an Authorization bearer token over the cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(SESSION_COOKIE); err == nil {
		return v
	}
	return ""
}

func SetSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SESSION_COOKIE, token, maxAge, "/", "", c.Request.TLS != nil, true)
}

func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SESSION_COOKIE, "", -1, "/", "", c.Request.TLS != nil, true)
}

// ResolveState loads the caller's session without enforcing anything.
func ResolveState(c *gin.Context, resolver SessionResolver) (SessionState, *userHandler.Session) {
	token := TokenFromRequest(c)
	if token == "" {
		return SessionState{}, nil
	}

	session, err := resolver.ResolveSession(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, userHandler.ErrSessionUnavailable) {
			logging.FromContext(c.Request.Context()).Warn("session resolution unavailable", "error", err)
			return SessionState{Loading: true}, nil
		}
		return SessionState{}, nil
	}

	c.Set(sessionCtxKey, session)
	return SessionState{Authenticated: true, Role: session.Role}, session
}

// SessionFrom returns the session stored by ResolveState, if any.
func SessionFrom(c *gin.Context) *userHandler.Session {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return nil
	}
	s, _ := v.(*userHandler.Session)
	return s
}

func RequireAPIRoles(resolver SessionResolver, roles ...userHandler.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, _ := ResolveState(c, resolver)

		switch Evaluate(state, roles...) {
		case GuardAllow:
			c.Next()
		case GuardLoading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Session is still loading, retry shortly"})
		case GuardLogin:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		case GuardUnauthorized:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "You do not have permission to access this resource"})
		}
	}
}

const loadingPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading...</p></body></html>`

func RequirePageRoles(resolver SessionResolver, roles ...userHandler.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, _ := ResolveState(c, resolver)

		switch Evaluate(state, roles...) {
		case GuardAllow:
			c.Next()
		case GuardLoading:
			c.Header("Retry-After", "1")
			c.Data(http.StatusServiceUnavailable, "text/html; charset=utf-8", []byte(loadingPage))
			c.Abort()
		case GuardLogin:
			if TokenFromRequest(c) != "" {
				ClearSessionCookie(c)
			}
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
		case GuardUnauthorized:
			c.Redirect(http.StatusFound, UnauthorizedPath)
			c.Abort()
		}
	}
}
