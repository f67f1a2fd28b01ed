package api

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/notifyrelay/relay/internal/service"
)

// Validation errors report json field names, not Go struct names
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Handler handles HTTP requests for the notification relay API
type Handler struct {
	svc        *service.TaskService
	mockTarget *MockTarget
}

// NewHandler creates a new API handler. mockTarget may be nil, in which
// case the mock endpoints are not registered.
func NewHandler(svc *service.TaskService, mockTarget *MockTarget) *Handler {
	return &Handler{
		svc:        svc,
		mockTarget: mockTarget,
	}
}

// RegisterRoutes registers all API routes on the given router
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.POST("/notifications", h.CreateNotification)
		v1.GET("/notifications/:taskId", h.GetNotification)
		v1.GET("/notifications/:taskId/logs", h.GetNotificationLogs)
		v1.POST("/notifications/:taskId/retry", h.RetryNotification)

		v1.GET("/stats", h.GetStats)
		v1.GET("/health", h.Health)
	}

	// Local test targets, enabled only in development
	if h.mockTarget != nil {
		h.mockTarget.RegisterRoutes(r)
	}
}
