package models

import (
	"encoding/json"
	"time"
)

// CreateNotificationRequest is the intake payload submitted by business
// systems
type CreateNotificationRequest struct {
	SourceSystem string            `json:"sourceSystem" binding:"required,min=1,max=100"`
	TargetURL    string            `json:"targetUrl" binding:"required,http_url"`
	HTTPMethod   string            `json:"httpMethod" binding:"omitempty,oneof=POST PUT PATCH"`
	Headers      map[string]string `json:"headers"`
	Body         json.RawMessage   `json:"body" binding:"required"`
	MaxRetries   *int              `json:"maxRetries" binding:"omitempty,min=1,max=10"`
}

// NotificationResponse is returned by intake and manual retry
type NotificationResponse struct {
	TaskID  string     `json:"taskId"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message"`
}

// TaskStatusResponse is the status projection of a task returned by the
// status endpoint
type TaskStatusResponse struct {
	TaskID         string     `json:"taskId"`
	SourceSystem   string     `json:"sourceSystem"`
	TargetURL      string     `json:"targetUrl"`
	Status         TaskStatus `json:"status"`
	RetryCount     int        `json:"retryCount"`
	MaxRetries     int        `json:"maxRetries"`
	LastHTTPStatus *int       `json:"lastHttpStatus,omitempty"`
	LastError      *string    `json:"lastError,omitempty"`
	NextRetryAt    *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// ToStatusResponse converts a Task to its status projection
func (t *Task) ToStatusResponse() TaskStatusResponse {
	return TaskStatusResponse{
		TaskID:         t.TaskID,
		SourceSystem:   t.SourceSystem,
		TargetURL:      t.TargetURL,
		Status:         t.Status,
		RetryCount:     t.RetryCount,
		MaxRetries:     t.MaxRetries,
		LastHTTPStatus: t.LastHTTPStatus,
		LastError:      t.LastError,
		NextRetryAt:    t.NextRetryAt,
		CreatedAt:      t.CreatedAt,
		CompletedAt:    t.CompletedAt,
	}
}

// StatsResponse reports queue depth and per-status task counts
type StatsResponse struct {
	QueueSize int64                `json:"queueSize"`
	TaskStats map[TaskStatus]int64 `json:"taskStats"`
	Timestamp time.Time            `json:"timestamp"`
}
