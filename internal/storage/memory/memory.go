// Package memory provides in-process implementations of the storage
// interfaces. They back the test suite and embedded single-process runs;
// production deployments use the postgres package.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/storage"
)

// Store implements storage.Store with a mutex-guarded map
type Store struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

// NewStore creates an empty in-memory task store
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*models.Task),
	}
}

func (s *Store) Insert(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.TaskID]; ok {
		return storage.ErrDuplicateTask
	}

	cp := *task
	s.tasks[task.TaskID] = &cp
	return nil
}

func (s *Store) GetByTaskID(ctx context.Context, taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, storage.ErrTaskNotFound
	}

	cp := *task
	return &cp, nil
}

func (s *Store) CompareAndSetStatus(ctx context.Context, taskID string, expected, next models.TaskStatus, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return false, nil
	}
	if task.Status != expected {
		return false, nil
	}

	task.Status = next
	task.UpdatedAt = now
	return true, nil
}

func (s *Store) Save(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.TaskID]
	if !ok {
		return storage.ErrTaskNotFound
	}

	task.UpdatedAt = time.Now()

	existing.Status = task.Status
	existing.RetryCount = task.RetryCount
	existing.NextRetryAt = task.NextRetryAt
	existing.LastHTTPStatus = task.LastHTTPStatus
	existing.LastError = task.LastError
	existing.UpdatedAt = task.UpdatedAt
	existing.CompletedAt = task.CompletedAt
	return nil
}

func (s *Store) ResetForRetry(ctx context.Context, taskID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return false, nil
	}
	if task.Status != models.TaskStatusFailed {
		return false, nil
	}

	task.Status = models.TaskStatusPending
	task.RetryCount = 0
	task.NextRetryAt = nil
	task.CompletedAt = nil
	task.UpdatedAt = now
	return true, nil
}

func (s *Store) FindDispatchable(ctx context.Context, now time.Time, limit int) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*models.Task
	for _, task := range s.tasks {
		if task.Status != models.TaskStatusPending {
			continue
		}
		if task.NextRetryAt != nil && task.NextRetryAt.After(now) {
			continue
		}
		cp := *task
		tasks = append(tasks, &cp)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *Store) FindStuck(ctx context.Context, threshold time.Time) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*models.Task
	for _, task := range s.tasks {
		if task.Status != models.TaskStatusProcessing {
			continue
		}
		if !task.UpdatedAt.Before(threshold) {
			continue
		}
		cp := *task
		tasks = append(tasks, &cp)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[models.TaskStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.TaskStatus]int64, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		counts[status] = 0
	}
	for _, task := range s.tasks {
		counts[task.Status]++
	}
	return counts, nil
}
