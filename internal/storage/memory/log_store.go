package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/storage"
)

// LogStore implements storage.LogStore with an in-memory slice per task
type LogStore struct {
	mu                sync.Mutex
	entries           map[string][]*models.AttemptLog
	nextID            int64
	responseBodyLimit int
	errorMessageLimit int
}

// NewLogStore creates an empty in-memory attempt-log store with the
// default truncation limits
func NewLogStore() *LogStore {
	return &LogStore{
		entries:           make(map[string][]*models.AttemptLog),
		responseBodyLimit: storage.DefaultResponseBodyLimit,
		errorMessageLimit: storage.DefaultErrorMessageLimit,
	}
}

func (s *LogStore) Append(ctx context.Context, entry *models.AttemptLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ResponseBody = storage.Truncate(entry.ResponseBody, s.responseBodyLimit)
	entry.ErrorMessage = storage.Truncate(entry.ErrorMessage, s.errorMessageLimit)

	s.nextID++
	entry.ID = s.nextID

	cp := *entry
	s.entries[entry.TaskID] = append(s.entries[entry.TaskID], &cp)
	return nil
}

func (s *LogStore) FindByTaskID(ctx context.Context, taskID string) ([]*models.AttemptLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.entries[taskID]
	out := make([]*models.AttemptLog, 0, len(stored))
	for _, e := range stored {
		cp := *e
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].AttemptNumber < out[j].AttemptNumber
	})
	return out, nil
}
