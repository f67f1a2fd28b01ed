// Package redis implements the task queue on a Redis list, LPUSH at the
// head and BRPOP from the tail.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueueKey is the Redis list holding pending task ids
const QueueKey = "notification:queue"

// Queue implements queue.Queue on a Redis list
type Queue struct {
	client *redis.Client
	key    string
}

// NewQueue creates a Redis-backed queue on the default key
func NewQueue(client *redis.Client) *Queue {
	return &Queue{
		client: client,
		key:    QueueKey,
	}
}

// Push enqueues a task id at the head of the list
func (q *Queue) Push(ctx context.Context, taskID string) error {
	return q.client.LPush(ctx, q.key, taskID).Err()
}

// PopBlocking removes a task id from the tail, waiting up to timeout.
// Returns ("", nil) when the wait times out.
func (q *Queue) PopBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}

	// BRPop returns [key, value]
	if len(result) != 2 {
		return "", nil
	}
	return result[1], nil
}

// Size returns the current list length
func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
