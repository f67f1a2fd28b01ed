// Package memory implements the task queue on a buffered channel, for
// tests and embedded single-process runs.
package memory

import (
	"context"
	"errors"
	"time"
)

// ErrQueueFull is returned by Push when the buffer is exhausted. Intake
// swallows it; the retry scheduler rediscovers the task from the store.
var ErrQueueFull = errors.New("queue full")

const defaultCapacity = 1024

// Queue implements queue.Queue on a buffered channel
type Queue struct {
	ch chan string
}

// NewQueue creates an in-memory queue with the default capacity
func NewQueue() *Queue {
	return NewQueueWithCapacity(defaultCapacity)
}

// NewQueueWithCapacity creates an in-memory queue holding up to capacity
// task ids
func NewQueueWithCapacity(capacity int) *Queue {
	return &Queue{
		ch: make(chan string, capacity),
	}
}

func (q *Queue) Push(ctx context.Context, taskID string) error {
	select {
	case q.ch <- taskID:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) PopBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case taskID := <-q.ch:
		return taskID, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *Queue) Size(ctx context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}
