package postgres

import (
	"context"

	"github.com/notifyrelay/relay/internal/models"
)

// CountByStatus returns the number of tasks per status. Statuses with no
// rows are reported as zero.
func (s *Store) CountByStatus(ctx context.Context) (map[models.TaskStatus]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM notification_tasks
		GROUP BY status
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int64, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		counts[status] = 0
	}

	for rows.Next() {
		var status models.TaskStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
