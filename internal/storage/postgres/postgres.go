package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/relay/internal/models"
)

// Store implements the storage.Store interface using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// GetPool returns the underlying connection pool (for testing)
func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

const taskColumns = `id, task_id, source_system, target_url, http_method,
       headers, body, status, retry_count, max_retries, next_retry_at,
       last_http_status, last_error, created_at, updated_at, completed_at`

// scanTask reads one task row in taskColumns order
func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.TaskID,
		&task.SourceSystem,
		&task.TargetURL,
		&task.HTTPMethod,
		&task.Headers,
		&task.Body,
		&task.Status,
		&task.RetryCount,
		&task.MaxRetries,
		&task.NextRetryAt,
		&task.LastHTTPStatus,
		&task.LastError,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
