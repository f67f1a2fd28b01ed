package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/queue"
	"github.com/notifyrelay/relay/internal/storage"
)

// RecoverySweeper periodically returns abandoned in-flight tasks to the
// queue. A task stuck in PROCESSING past the threshold had its worker
// die before committing an outcome; resetting it to PENDING is safe
// because the outcome was never written and the re-attempt increments
// retryCount only if it fails again.
type RecoverySweeper struct {
	store     storage.Store
	queue     queue.Queue
	interval  time.Duration
	threshold time.Duration

	quit chan struct{}
	done chan struct{}
}

// NewRecoverySweeper creates a sweeper ticking at interval and treating
// PROCESSING rows older than threshold as stuck
func NewRecoverySweeper(store storage.Store, q queue.Queue, interval, threshold time.Duration) *RecoverySweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if threshold <= 0 {
		threshold = 5 * time.Minute
	}
	return &RecoverySweeper{
		store:     store,
		queue:     q,
		interval:  interval,
		threshold: threshold,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweeper loop
func (s *RecoverySweeper) Start() {
	go func() {
		defer close(s.done)
		slog.Info("Recovery sweeper started",
			"interval", s.interval,
			"stuck_threshold", s.threshold,
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.quit:
				slog.Info("Recovery sweeper stopping")
				return
			case <-ticker.C:
				if _, err := s.Sweep(context.Background()); err != nil {
					slog.Error("Recovery sweep failed", "error", err)
				}
			}
		}
	}()
}

// Stop terminates the loop and waits for it to exit
func (s *RecoverySweeper) Stop() {
	close(s.quit)
	<-s.done
}

// Sweep resets stuck tasks to PENDING and re-enqueues them. Returns the
// number of tasks recovered.
func (s *RecoverySweeper) Sweep(ctx context.Context) (int, error) {
	threshold := time.Now().Add(-s.threshold)

	tasks, err := s.store.FindStuck(ctx, threshold)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, task := range tasks {
		slog.Warn("Recovering stuck task",
			"task_id", task.TaskID,
			"updated_at", task.UpdatedAt,
		)

		task.Status = models.TaskStatusPending
		if err := s.store.Save(ctx, task); err != nil {
			slog.Error("Failed to reset stuck task", "task_id", task.TaskID, "error", err)
			continue
		}

		if err := s.queue.Push(ctx, task.TaskID); err != nil {
			slog.Warn("Failed to re-enqueue recovered task", "task_id", task.TaskID, "error", err)
		}
		recovered++
	}

	if recovered > 0 {
		slog.Info("Recovered stuck tasks", "count", recovered)
	}
	return recovered, nil
}
