package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "notification-relay"

// Health handles GET /v1/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "UP",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
