package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"supplies-pos/internal/logging"
	posHandler "supplies-pos/internal/services/pos/handler"
	"supplies-pos/internal/services/reports"
	userHandler "supplies-pos/internal/services/user/handler"
)

const (
	shortTimeout = 5 * time.Second
	longTimeout  = 15 * time.Second
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

func requestContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}

// statusFor maps service errors onto HTTP statuses. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, userHandler.ErrValidation),
		errors.Is(err, userHandler.ErrPasswordMismatch),
		errors.Is(err, posHandler.ErrEmptyCart),
		errors.Is(err, posHandler.ErrInvalidPaymentMethod),
		errors.Is(err, posHandler.ErrInsufficientPayment),
		errors.Is(err, posHandler.ErrInvalidProduct),
		errors.Is(err, reports.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, userHandler.ErrInvalidCredentials),
		errors.Is(err, userHandler.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, posHandler.ErrProductNotFound),
		errors.Is(err, posHandler.ErrOrderNotFound),
		errors.Is(err, posHandler.ErrNotInCart):
		return http.StatusNotFound
	case errors.Is(err, userHandler.ErrEmailTaken),
		errors.Is(err, posHandler.ErrStockLimit),
		errors.Is(err, posHandler.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, userHandler.ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. Internal errors are logged and
// their detail withheld from the client.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error(fallback, "error", err)
		_ = c.Error(err)
		c.JSON(status, errorResponse(fallback))
		return
	}
	c.JSON(status, errorResponse(err.Error()))
}
