package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/storage"
)

// Insert persists a new task. The unique index on task_id rejects
// duplicate inserts.
func (s *Store) Insert(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO notification_tasks (
			task_id, source_system, target_url, http_method,
			headers, body, status, retry_count, max_retries,
			next_retry_at, last_http_status, last_error,
			created_at, updated_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		task.TaskID,
		task.SourceSystem,
		task.TargetURL,
		task.HTTPMethod,
		task.Headers,
		task.Body,
		task.Status,
		task.RetryCount,
		task.MaxRetries,
		task.NextRetryAt,
		task.LastHTTPStatus,
		task.LastError,
		task.CreatedAt,
		task.UpdatedAt,
		task.CompletedAt,
	).Scan(&task.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrDuplicateTask
		}
		return err
	}

	return nil
}
