package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/notifyrelay/relay/internal/queue"
	"github.com/notifyrelay/relay/internal/storage"
)

const dispatchBatchSize = 100

// RetryScheduler periodically re-enqueues dispatchable tasks: those
// whose backoff window has elapsed, and those that never made it into
// the queue (intake-side push failure, queue loss). Duplicate pushes are
// harmless because the worker's CAS claim serializes them.
type RetryScheduler struct {
	store    storage.Store
	queue    queue.Queue
	interval time.Duration

	quit chan struct{}
	done chan struct{}
}

// NewRetryScheduler creates a scheduler ticking at interval
func NewRetryScheduler(store storage.Store, q queue.Queue, interval time.Duration) *RetryScheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &RetryScheduler{
		store:    store,
		queue:    q,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduler loop
func (s *RetryScheduler) Start() {
	go func() {
		defer close(s.done)
		slog.Info("Retry scheduler started", "interval", s.interval)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.quit:
				slog.Info("Retry scheduler stopping")
				return
			case <-ticker.C:
				if err := s.Tick(context.Background()); err != nil {
					slog.Error("Retry scheduler tick failed", "error", err)
				}
			}
		}
	}()
}

// Stop terminates the loop and waits for it to exit
func (s *RetryScheduler) Stop() {
	close(s.quit)
	<-s.done
}

// Tick re-enqueues up to one batch of dispatchable tasks
func (s *RetryScheduler) Tick(ctx context.Context) error {
	tasks, err := s.store.FindDispatchable(ctx, time.Now(), dispatchBatchSize)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := s.queue.Push(ctx, task.TaskID); err != nil {
			slog.Warn("Failed to re-enqueue task", "task_id", task.TaskID, "error", err)
		}
	}

	if len(tasks) > 0 {
		slog.Debug("Re-enqueued dispatchable tasks", "count", len(tasks))
	}
	return nil
}
