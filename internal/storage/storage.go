package storage

import (
	"context"
	"errors"
	"time"

	"github.com/notifyrelay/relay/internal/models"
)

// Common errors
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateTask = errors.New("duplicate task id")
)

// Truncation limits applied by log stores before persisting
const (
	DefaultResponseBodyLimit = 2000
	DefaultErrorMessageLimit = 1000
)

// Store defines the interface for task storage operations.
// This allows for different implementations (PostgreSQL, in-memory, etc.)
type Store interface {
	// Insert persists a new task. Fails with ErrDuplicateTask if the
	// taskId is already present.
	Insert(ctx context.Context, task *models.Task) error

	// GetByTaskID retrieves a task by its external UUID
	GetByTaskID(ctx context.Context, taskID string) (*models.Task, error)

	// CompareAndSetStatus conditionally transitions a task's status.
	// Returns true iff the row's current status equals expected. This is
	// the only primitive used to claim a task.
	CompareAndSetStatus(ctx context.Context, taskID string, expected, next models.TaskStatus, now time.Time) (bool, error)

	// Save unconditionally updates all mutable fields of a task. Used
	// after a claim is held.
	Save(ctx context.Context, task *models.Task) error

	// ResetForRetry re-arms a FAILED task in one conditional write:
	// status PENDING, retry budget and completion markers cleared.
	// Returns true iff the row was FAILED. A single write keeps the
	// gating and the reset atomic, so a worker claim can never be
	// overwritten in between.
	ResetForRetry(ctx context.Context, taskID string, now time.Time) (bool, error)

	// FindDispatchable returns PENDING tasks whose next_retry_at is null
	// or has passed, ordered by created_at ascending.
	FindDispatchable(ctx context.Context, now time.Time, limit int) ([]*models.Task, error)

	// FindStuck returns PROCESSING tasks whose updated_at is older than
	// the threshold. Their worker likely died mid-attempt.
	FindStuck(ctx context.Context, threshold time.Time) ([]*models.Task, error)

	// CountByStatus returns the number of tasks per status
	CountByStatus(ctx context.Context) (map[models.TaskStatus]int64, error)
}

// LogStore defines the interface for the append-only attempt log.
// Truncation of response bodies and error messages is the store's
// responsibility.
type LogStore interface {
	// Append writes one attempt record
	Append(ctx context.Context, entry *models.AttemptLog) error

	// FindByTaskID returns a task's attempts ordered by attempt_number
	// ascending
	FindByTaskID(ctx context.Context, taskID string) ([]*models.AttemptLog, error)
}

// Truncate caps s at limit characters, appending "..." when it was cut.
// Limits count runes, not bytes, so a multibyte body is never split
// mid-character.
func Truncate(s *string, limit int) *string {
	if s == nil {
		return nil
	}
	runes := []rune(*s)
	if len(runes) <= limit {
		return s
	}
	out := string(runes[:limit]) + "..."
	return &out
}
