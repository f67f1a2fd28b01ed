package models

import "time"

// AttemptLog records a single dispatch attempt for a task. One row is
// appended per executed attempt, success or failure.
type AttemptLog struct {
	ID            int64     `json:"-" db:"id"`
	TaskID        string    `json:"taskId" db:"task_id"`
	AttemptNumber int       `json:"attemptNumber" db:"attempt_number"`
	HTTPStatus    *int      `json:"httpStatus,omitempty" db:"http_status"`
	ResponseBody  *string   `json:"responseBody,omitempty" db:"response_body"`
	ErrorMessage  *string   `json:"errorMessage,omitempty" db:"error_message"`
	LatencyMs     int64     `json:"latencyMs" db:"latency_ms"`
	Success       bool      `json:"success" db:"success"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
