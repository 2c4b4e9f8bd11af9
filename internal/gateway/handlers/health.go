package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// HealthChecker is satisfied by clients.HealthClient.
type HealthChecker interface {
	Check(ctx context.Context, service string) (*healthpb.HealthCheckResponse, error)
}

type HealthHTTPHandler struct {
	checker HealthChecker
	service string
}

// NewHealthHTTPHandler accepts a nil checker; the detailed report then marks
// the side service unavailable.
func NewHealthHTTPHandler(checker HealthChecker, service string) *HealthHTTPHandler {
	return &HealthHTTPHandler{
		checker: checker,
		service: service,
	}
}

func (h *HealthHTTPHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"message":   "Server is running",
		"timestamp": time.Now(),
	})
}

func (h *HealthHTTPHandler) Detailed(c *gin.Context) {
	overall := "healthy"
	var service interface{}

	if h.checker == nil {
		overall = "degraded"
		service = gin.H{"status": "unavailable", "message": "Health client not initialized"}
	} else {
		ctx, cancel := requestContext(c, shortTimeout)
		defer cancel()

		resp, err := h.checker.Check(ctx, h.service)
		switch {
		case err != nil:
			overall = "degraded"
			service = gin.H{"status": "unavailable", "message": err.Error()}
		default:
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				overall = "degraded"
			}
			raw, err := protojson.Marshal(resp)
			if err != nil {
				respondError(c, err, "Failed to encode health response")
				return
			}
			service = json.RawMessage(raw)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"overall_status": overall,
		"services":       gin.H{h.service: service},
		"timestamp":      time.Now(),
	})
}
