package postgres

import (
	"context"
	"time"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/storage"
)

// Save unconditionally updates all mutable fields of a task. Callers
// hold a claim obtained via CompareAndSetStatus (or are the recovery
// sweeper, whose forced reset is idempotent).
func (s *Store) Save(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE notification_tasks
		SET status = $1,
		    retry_count = $2,
		    next_retry_at = $3,
		    last_http_status = $4,
		    last_error = $5,
		    updated_at = $6,
		    completed_at = $7
		WHERE task_id = $8
	`

	task.UpdatedAt = time.Now()

	result, err := s.pool.Exec(ctx, query,
		task.Status,
		task.RetryCount,
		task.NextRetryAt,
		task.LastHTTPStatus,
		task.LastError,
		task.UpdatedAt,
		task.CompletedAt,
		task.TaskID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}

	return nil
}
