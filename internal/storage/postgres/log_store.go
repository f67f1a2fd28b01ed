package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/storage"
)

// LogStore implements the storage.LogStore interface using PostgreSQL
type LogStore struct {
	pool              *pgxpool.Pool
	responseBodyLimit int
	errorMessageLimit int
}

// NewLogStore creates a new PostgreSQL attempt-log store
func NewLogStore(pool *pgxpool.Pool, responseBodyLimit, errorMessageLimit int) *LogStore {
	if responseBodyLimit <= 0 {
		responseBodyLimit = storage.DefaultResponseBodyLimit
	}
	if errorMessageLimit <= 0 {
		errorMessageLimit = storage.DefaultErrorMessageLimit
	}
	return &LogStore{
		pool:              pool,
		responseBodyLimit: responseBodyLimit,
		errorMessageLimit: errorMessageLimit,
	}
}

// Append writes one attempt record, truncating oversized fields
func (s *LogStore) Append(ctx context.Context, entry *models.AttemptLog) error {
	entry.ResponseBody = storage.Truncate(entry.ResponseBody, s.responseBodyLimit)
	entry.ErrorMessage = storage.Truncate(entry.ErrorMessage, s.errorMessageLimit)

	query := `
		INSERT INTO notification_logs (
			task_id, attempt_number, http_status,
			response_body, error_message, latency_ms, success, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return s.pool.QueryRow(ctx, query,
		entry.TaskID,
		entry.AttemptNumber,
		entry.HTTPStatus,
		entry.ResponseBody,
		entry.ErrorMessage,
		entry.LatencyMs,
		entry.Success,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// FindByTaskID returns a task's attempts ordered by attempt_number
// ascending
func (s *LogStore) FindByTaskID(ctx context.Context, taskID string) ([]*models.AttemptLog, error) {
	query := `
		SELECT id, task_id, attempt_number, http_status,
		       response_body, error_message, latency_ms, success, created_at
		FROM notification_logs
		WHERE task_id = $1
		ORDER BY attempt_number ASC
	`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AttemptLog
	for rows.Next() {
		var e models.AttemptLog
		err := rows.Scan(
			&e.ID,
			&e.TaskID,
			&e.AttemptNumber,
			&e.HTTPStatus,
			&e.ResponseBody,
			&e.ErrorMessage,
			&e.LatencyMs,
			&e.Success,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
