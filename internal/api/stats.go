package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStats handles GET /v1/stats
// Returns queue depth and per-status task counts
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Failed to get stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve statistics",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
