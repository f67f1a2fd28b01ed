package queue

import (
	"context"
	"time"
)

// Queue is a best-effort FIFO of task ids with a blocking pop. It is not
// the source of truth: entries may be lost (recovered by the retry
// scheduler) and duplicates are tolerated (the worker's CAS claim
// serializes them).
type Queue interface {
	// Push enqueues a task id at the head. No dedup.
	Push(ctx context.Context, taskID string) error

	// PopBlocking removes a task id from the tail, waiting up to timeout.
	// Returns ("", nil) when the timeout elapses with nothing to pop.
	PopBlocking(ctx context.Context, timeout time.Duration) (string, error)

	// Size returns the current queue depth
	Size(ctx context.Context) (int64, error)
}
