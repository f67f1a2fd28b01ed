package postgres

import (
	"context"
	"time"

	"github.com/notifyrelay/relay/internal/models"
)

// FindDispatchable returns PENDING tasks that are due for dispatch:
// next_retry_at is null or has passed. Served by the composite index on
// (status, next_retry_at).
func (s *Store) FindDispatchable(ctx context.Context, now time.Time, limit int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM notification_tasks
		WHERE status = $1
		  AND (next_retry_at IS NULL OR next_retry_at <= $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, models.TaskStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}
