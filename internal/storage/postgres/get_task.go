package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/storage"
)

// GetByTaskID retrieves a task by its external UUID
func (s *Store) GetByTaskID(ctx context.Context, taskID string) (*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM notification_tasks
		WHERE task_id = $1
	`

	task, err := scanTask(s.pool.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}
