package models

import (
	"encoding/json"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle status of a notification task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusSuccess    TaskStatus = "SUCCESS"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// AllStatuses lists every task status, in lifecycle order
var AllStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusProcessing,
	TaskStatusSuccess,
	TaskStatusFailed,
}

// IsValid checks if the task status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusSuccess, TaskStatusFailed:
		return true
	}
	return false
}

// IsFinal reports whether the status is terminal (SUCCESS or FAILED)
func (s TaskStatus) IsFinal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// String returns the string representation of TaskStatus
func (s TaskStatus) String() string {
	return string(s)
}

// Default task parameters when the request omits them
const (
	DefaultHTTPMethod       = "POST"
	DefaultMaxRetries       = 5
	DefaultBaseDelaySeconds = 2
)

// Task represents a single notification-delivery job: one outbound HTTP
// call, persisted before it is queued and retried until it succeeds or
// the retry budget runs out
type Task struct {
	ID           int64             `json:"-" db:"id"`
	TaskID       string            `json:"taskId" db:"task_id"`
	SourceSystem string            `json:"sourceSystem" db:"source_system"`
	TargetURL    string            `json:"targetUrl" db:"target_url"`
	HTTPMethod   string            `json:"httpMethod" db:"http_method"`
	Headers      map[string]string `json:"headers,omitempty" db:"headers"`
	Body         json.RawMessage   `json:"body" db:"body"`
	Status       TaskStatus        `json:"status" db:"status"`

	// Retry metadata
	RetryCount  int        `json:"retryCount" db:"retry_count"`
	MaxRetries  int        `json:"maxRetries" db:"max_retries"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty" db:"next_retry_at"`

	// Last observed outcome
	LastHTTPStatus *int    `json:"lastHttpStatus,omitempty" db:"last_http_status"`
	LastError      *string `json:"lastError,omitempty" db:"last_error"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// NewTask builds a PENDING task with a fresh UUID and defaults filled
func NewTask(req CreateNotificationRequest, defaultMaxRetries int) *Task {
	method := req.HTTPMethod
	if method == "" {
		method = DefaultHTTPMethod
	}

	maxRetries := defaultMaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	now := time.Now()
	return &Task{
		TaskID:       uuid.New().String(),
		SourceSystem: req.SourceSystem,
		TargetURL:    req.TargetURL,
		HTTPMethod:   method,
		Headers:      req.Headers,
		Body:         req.Body,
		Status:       TaskStatusPending,
		RetryCount:   0,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanRetry reports whether the task still has retry budget left
func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// Backoff computes the delay before the next attempt: base^retryCount
// seconds, where retryCount has already been incremented for the failed
// attempt. With base 2 the schedule is 2s, 4s, 8s, 16s, 32s, ...
// Jitter (uniform ±25%) is opt-in so the deterministic schedule holds by
// default.
func Backoff(baseSeconds int, retryCount int, jitter bool) time.Duration {
	if baseSeconds <= 0 {
		baseSeconds = DefaultBaseDelaySeconds
	}

	// Cap the exponent to prevent overflow
	exponent := retryCount
	if exponent > 20 {
		exponent = 20
	}

	delay := math.Pow(float64(baseSeconds), float64(exponent))

	// Hard cap at 1 hour to prevent runaway delays
	if delay > 3600 {
		delay = 3600
	}

	if jitter {
		jitterPercent := (rand.Float64() * 0.5) - 0.25
		delay += delay * jitterPercent
	}

	if delay < 1 {
		delay = 1
	}

	return time.Duration(delay * float64(time.Second))
}
