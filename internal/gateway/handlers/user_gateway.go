package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"supplies-pos/internal/gateway/middleware"
	userHandler "supplies-pos/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users *userHandler.UserHandler
}

func NewUserHTTPHandler(users *userHandler.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{
		users: users,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdatePasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type sessionPayload struct {
	User interface{}      `json:"user"`
	Role userHandler.Role `json:"role"`
	Home string           `json:"home"`
}

// --- Authentication ---

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	session, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Authentication service error")
		return
	}

	if session.Role == userHandler.RoleNone {
		_ = h.users.SignOut(ctx, session)
		c.JSON(http.StatusForbidden, errorResponse("Your account has no role assigned"))
		return
	}

	middleware.SetSessionCookie(c, session.Token, session.ExpiresAt)
	c.JSON(http.StatusOK, successResponse("Login successful", map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
		"role":       session.Role,
		"home":       session.Role.HomePath(),
	}))
}

func (h *UserHTTPHandler) Logout(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	if err := h.users.SignOut(ctx, middleware.SessionFrom(c)); err != nil {
		respondError(c, err, "Failed to sign out")
		return
	}

	middleware.ClearSessionCookie(c)
	c.JSON(http.StatusOK, successResponse("Signed out", nil))
}

func (h *UserHTTPHandler) Session(c *gin.Context) {
	session := middleware.SessionFrom(c)
	c.JSON(http.StatusOK, successResponse("Session retrieved", sessionPayload{
		User: session.User,
		Role: session.Role,
		Home: session.Role.HomePath(),
	}))
}

func (h *UserHTTPHandler) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	if err := h.users.UpdatePassword(ctx, middleware.SessionFrom(c), req.Password, req.ConfirmPassword); err != nil {
		respondError(c, err, "Failed to update password")
		return
	}

	middleware.ClearSessionCookie(c)
	c.JSON(http.StatusOK, successResponse("Password updated, please sign in again", nil))
}
