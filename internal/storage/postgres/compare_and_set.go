package postgres

import (
	"context"
	"time"

	"github.com/notifyrelay/relay/internal/models"
)

// CompareAndSetStatus conditionally transitions a task's status. The
// WHERE clause on the current status makes the update a single-row CAS:
// exactly one concurrent caller observes RowsAffected == 1.
func (s *Store) CompareAndSetStatus(ctx context.Context, taskID string, expected, next models.TaskStatus, now time.Time) (bool, error) {
	query := `
		UPDATE notification_tasks
		SET status = $1, updated_at = $2
		WHERE task_id = $3 AND status = $4
	`

	result, err := s.pool.Exec(ctx, query, next, now, taskID, expected)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}
