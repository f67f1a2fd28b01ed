package postgres

import (
	"context"
	"time"

	"github.com/notifyrelay/relay/internal/models"
)

// ResetForRetry re-arms a FAILED task for a fresh delivery run. The
// status gate and the field reset are one UPDATE so a concurrent claim
// cannot slip in between them.
func (s *Store) ResetForRetry(ctx context.Context, taskID string, now time.Time) (bool, error) {
	query := `
		UPDATE notification_tasks
		SET status = $1,
		    retry_count = 0,
		    next_retry_at = NULL,
		    completed_at = NULL,
		    updated_at = $2
		WHERE task_id = $3 AND status = $4
	`

	tag, err := s.pool.Exec(ctx, query,
		models.TaskStatusPending,
		now,
		taskID,
		models.TaskStatusFailed,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
