package postgres

import (
	"context"
	"time"

	"github.com/notifyrelay/relay/internal/models"
)

// FindStuck returns PROCESSING tasks whose updated_at is older than the
// threshold, meaning their worker died without committing an outcome.
func (s *Store) FindStuck(ctx context.Context, threshold time.Time) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM notification_tasks
		WHERE status = $1
		  AND updated_at < $2
	`

	rows, err := s.pool.Query(ctx, query, models.TaskStatusProcessing, threshold)
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
