package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyrelay/relay/internal/models"
	queuememory "github.com/notifyrelay/relay/internal/queue/memory"
	"github.com/notifyrelay/relay/internal/storage"
	storememory "github.com/notifyrelay/relay/internal/storage/memory"
)

func newService(t *testing.T) (*TaskService, *storememory.Store, *queuememory.Queue) {
	t.Helper()
	store := storememory.NewStore()
	q := queuememory.NewQueue()
	svc := NewTaskService(store, storememory.NewLogStore(), q, 5)
	return svc, store, q
}

func validRequest() models.CreateNotificationRequest {
	return models.CreateNotificationRequest{
		SourceSystem: "order-service",
		TargetURL:    "https://example.com/hook",
		Body:         json.RawMessage(`{"orderId":42}`),
	}
}

func TestCreateTaskPersistsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	svc, store, q := newService(t)

	resp, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, resp.Status)
	require.NotEmpty(t, resp.TaskID)

	task, err := store.GetByTaskID(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.RetryCount)
	assert.Nil(t, task.CompletedAt)

	got, err := q.PopBlocking(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, resp.TaskID, got)
}

func TestCreateTaskSwallowsEnqueueFailure(t *testing.T) {
	// Persistence is the commitment point: a full queue must not fail
	// intake. The scheduler rediscovers the task from the store.
	ctx := context.Background()
	store := storememory.NewStore()
	q := queuememory.NewQueueWithCapacity(0)
	svc := NewTaskService(store, storememory.NewLogStore(), q, 5)

	resp, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)

	task, err := store.GetByTaskID(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)

	due, err := store.FindDispatchable(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	resp, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)

	status, err := svc.GetStatus(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, resp.TaskID, status.TaskID)
	assert.Equal(t, "order-service", status.SourceSystem)

	_, err = svc.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)
}

func TestRetryAcceptedOnlyWhenFailed(t *testing.T) {
	ctx := context.Background()
	svc, store, q := newService(t)

	resp, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)

	// Drain the intake push
	_, err = q.PopBlocking(ctx, time.Second)
	require.NoError(t, err)

	// PENDING task: retry rejected
	_, err = svc.Retry(ctx, resp.TaskID)
	assert.ErrorIs(t, err, ErrRetryNotAllowed)

	// Fail the task terminally
	task, err := store.GetByTaskID(ctx, resp.TaskID)
	require.NoError(t, err)
	now := time.Now()
	lastErr := "HTTP 500"
	task.Status = models.TaskStatusFailed
	task.RetryCount = task.MaxRetries
	task.LastError = &lastErr
	task.CompletedAt = &now
	require.NoError(t, store.Save(ctx, task))

	retryResp, err := svc.Retry(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, retryResp.Status)

	reset, err := store.GetByTaskID(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, reset.Status)
	assert.Equal(t, 0, reset.RetryCount)
	assert.Nil(t, reset.NextRetryAt)
	assert.Nil(t, reset.CompletedAt)

	got, err := q.PopBlocking(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, resp.TaskID, got)
}

func TestRetryLosesToHeldClaim(t *testing.T) {
	ctx := context.Background()
	svc, store, q := newService(t)

	resp, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)
	_, err = q.PopBlocking(ctx, time.Second)
	require.NoError(t, err)

	// A worker claims the task between the caller observing FAILED and
	// the retry landing
	ok, err := store.CompareAndSetStatus(ctx, resp.TaskID, models.TaskStatusPending, models.TaskStatusProcessing, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Retry(ctx, resp.TaskID)
	assert.ErrorIs(t, err, ErrRetryNotAllowed)

	// The claim survives untouched
	task, err := store.GetByTaskID(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, task.Status)

	got, err := q.PopBlocking(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetryUnknownTask(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Retry(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrTaskNotFound))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	_, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)
	resp, err := svc.CreateTask(ctx, validRequest())
	require.NoError(t, err)

	task, err := store.GetByTaskID(ctx, resp.TaskID)
	require.NoError(t, err)
	now := time.Now()
	task.Status = models.TaskStatusSuccess
	task.CompletedAt = &now
	require.NoError(t, store.Save(ctx, task))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.QueueSize)
	assert.Equal(t, int64(1), stats.TaskStats[models.TaskStatusPending])
	assert.Equal(t, int64(1), stats.TaskStats[models.TaskStatusSuccess])
	assert.False(t, stats.Timestamp.IsZero())
}
