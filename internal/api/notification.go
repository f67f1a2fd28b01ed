package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/service"
	"github.com/notifyrelay/relay/internal/storage"
)

// CreateNotification handles POST /v1/notifications
// Accepts a notification for asynchronous delivery
func (h *Handler) CreateNotification(c *gin.Context) {
	var req models.CreateNotificationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("Invalid notification request", "error", err)

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Invalid request body",
				"fields": validationFields(verrs),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	// binding:"required" accepts the literal JSON null for a RawMessage
	if len(req.Body) == 0 || bytes.Equal(bytes.TrimSpace(req.Body), []byte("null")) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid request body",
			"fields": gin.H{"body": "is required"},
		})
		return
	}

	resp, err := h.svc.CreateTask(c.Request.Context(), req)
	if err != nil {
		slog.Error("Failed to create notification task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create notification",
		})
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetNotification handles GET /v1/notifications/:taskId
// Returns the delivery status of a notification
func (h *Handler) GetNotification(c *gin.Context) {
	taskID := c.Param("taskId")

	status, err := h.svc.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Notification not found",
			})
			return
		}

		slog.Error("Failed to get notification", "task_id", taskID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve notification",
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetNotificationLogs handles GET /v1/notifications/:taskId/logs
// Returns the per-attempt delivery log, ascending by attempt number.
// 404 when no attempts have been logged for the id.
func (h *Handler) GetNotificationLogs(c *gin.Context) {
	taskID := c.Param("taskId")

	logs, err := h.svc.GetLogs(c.Request.Context(), taskID)
	if err != nil {
		slog.Error("Failed to get notification logs", "task_id", taskID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve logs",
		})
		return
	}

	if len(logs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No delivery attempts found",
		})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// RetryNotification handles POST /v1/notifications/:taskId/retry
// Re-queues a terminally failed notification
func (h *Handler) RetryNotification(c *gin.Context) {
	taskID := c.Param("taskId")

	resp, err := h.svc.Retry(c.Request.Context(), taskID)
	if err != nil {
		// Unknown ids and non-FAILED tasks both reject the same way
		if errors.Is(err, storage.ErrTaskNotFound) || errors.Is(err, service.ErrRetryNotAllowed) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Only FAILED notifications can be retried",
			})
			return
		}

		slog.Error("Failed to retry notification", "task_id", taskID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retry notification",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// validationFields maps binding failures to a field -> message object
func validationFields(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = validationMessage(fe)
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "http_url":
		return "must be a valid http or https URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}
