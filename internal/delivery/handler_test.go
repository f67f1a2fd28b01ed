package delivery

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyrelay/relay/internal/models"
	storememory "github.com/notifyrelay/relay/internal/storage/memory"
)

func newHandlerFixture(t *testing.T) (*Handler, *storememory.Store, *storememory.LogStore) {
	t.Helper()
	store := storememory.NewStore()
	logs := storememory.NewLogStore()
	return NewHandler(store, logs, 2, false), store, logs
}

func claimedTask(t *testing.T, store *storememory.Store, maxRetries, retryCount int) *models.Task {
	t.Helper()
	now := time.Now()
	task := &models.Task{
		TaskID:       "t-1",
		SourceSystem: "test",
		TargetURL:    "https://example.com/hook",
		HTTPMethod:   "POST",
		Body:         json.RawMessage(`{}`),
		Status:       models.TaskStatusProcessing,
		RetryCount:   retryCount,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Insert(context.Background(), task))
	return task
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestApplySuccess(t *testing.T) {
	ctx := context.Background()
	h, store, logs := newHandlerFixture(t)
	task := claimedTask(t, store, 5, 0)

	outcome := Outcome{
		Classification: ClassSuccess,
		HTTPStatus:     intPtr(200),
		ResponseBody:   strPtr(`{"ok":true}`),
		LatencyMs:      12,
	}
	require.NoError(t, h.Apply(ctx, task, outcome))

	saved, err := store.GetByTaskID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSuccess, saved.Status)
	assert.Equal(t, 0, saved.RetryCount)
	require.NotNil(t, saved.LastHTTPStatus)
	assert.Equal(t, 200, *saved.LastHTTPStatus)
	assert.NotNil(t, saved.CompletedAt)

	entries, err := logs.FindByTaskID(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].AttemptNumber)
	assert.True(t, entries[0].Success)
	require.NotNil(t, entries[0].ResponseBody)
	assert.Equal(t, `{"ok":true}`, *entries[0].ResponseBody)
}

func TestApplyTerminalFailure(t *testing.T) {
	ctx := context.Background()
	h, store, logs := newHandlerFixture(t)
	task := claimedTask(t, store, 5, 0)

	outcome := Outcome{
		Classification: ClassTerminal,
		Reason:         ReasonClientError,
		HTTPStatus:     intPtr(400),
		ErrorMessage:   strPtr("HTTP 400: bad payload"),
		LatencyMs:      8,
	}
	require.NoError(t, h.Apply(ctx, task, outcome))

	saved, err := store.GetByTaskID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, saved.Status)
	assert.Equal(t, 1, saved.RetryCount)
	assert.NotNil(t, saved.CompletedAt)
	require.NotNil(t, saved.LastError)
	assert.Contains(t, *saved.LastError, "HTTP 400")

	entries, err := logs.FindByTaskID(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
}

func TestApplyRetryableSchedulesBackoff(t *testing.T) {
	ctx := context.Background()
	h, store, logs := newHandlerFixture(t)
	task := claimedTask(t, store, 5, 0)

	before := time.Now()
	outcome := Outcome{
		Classification: ClassRetryable,
		Reason:         ReasonServerError,
		HTTPStatus:     intPtr(503),
		ErrorMessage:   strPtr("HTTP 503: unavailable"),
	}
	require.NoError(t, h.Apply(ctx, task, outcome))

	saved, err := store.GetByTaskID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, saved.Status)
	assert.Equal(t, 1, saved.RetryCount)
	assert.Nil(t, saved.CompletedAt)

	// First retry waits base^1 = 2s
	require.NotNil(t, saved.NextRetryAt)
	gap := saved.NextRetryAt.Sub(before)
	assert.InDelta(t, (2 * time.Second).Seconds(), gap.Seconds(), 1.0)

	entries, err := logs.FindByTaskID(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].AttemptNumber)
}

func TestApplyRetryableBackoffGrows(t *testing.T) {
	ctx := context.Background()
	h, store, _ := newHandlerFixture(t)
	task := claimedTask(t, store, 5, 1)

	before := time.Now()
	outcome := Outcome{
		Classification: ClassRetryable,
		Reason:         ReasonServerError,
		HTTPStatus:     intPtr(500),
		ErrorMessage:   strPtr("HTTP 500"),
	}
	require.NoError(t, h.Apply(ctx, task, outcome))

	saved, err := store.GetByTaskID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.RetryCount)

	// Second retry waits base^2 = 4s
	require.NotNil(t, saved.NextRetryAt)
	gap := saved.NextRetryAt.Sub(before)
	assert.InDelta(t, (4 * time.Second).Seconds(), gap.Seconds(), 1.0)
}

func TestApplyRetryableExhaustsBudget(t *testing.T) {
	ctx := context.Background()
	h, store, logs := newHandlerFixture(t)
	task := claimedTask(t, store, 2, 1) // one more attempt allowed

	outcome := Outcome{
		Classification: ClassRetryable,
		Reason:         ReasonServerError,
		HTTPStatus:     intPtr(500),
		ErrorMessage:   strPtr("HTTP 500"),
	}
	require.NoError(t, h.Apply(ctx, task, outcome))

	saved, err := store.GetByTaskID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, saved.Status)
	assert.Equal(t, 2, saved.RetryCount)
	assert.NotNil(t, saved.CompletedAt)
	assert.Nil(t, saved.NextRetryAt)

	entries, err := logs.FindByTaskID(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].AttemptNumber)
}

func TestApplyNetworkFailureKeepsStatusNull(t *testing.T) {
	ctx := context.Background()
	h, store, logs := newHandlerFixture(t)
	task := claimedTask(t, store, 5, 0)

	outcome := Outcome{
		Classification: ClassRetryable,
		Reason:         ReasonNetwork,
		ErrorMessage:   strPtr("network error: connection refused"),
	}
	require.NoError(t, h.Apply(ctx, task, outcome))

	saved, err := store.GetByTaskID(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, saved.LastHTTPStatus)

	entries, err := logs.FindByTaskID(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].HTTPStatus)
}

func TestApplyAttemptNumbersAscendWithoutGaps(t *testing.T) {
	ctx := context.Background()
	h, store, logs := newHandlerFixture(t)
	claimedTask(t, store, 3, 0)

	fail := Outcome{
		Classification: ClassRetryable,
		Reason:         ReasonServerError,
		HTTPStatus:     intPtr(500),
		ErrorMessage:   strPtr("HTTP 500"),
	}

	// Three failed attempts exhaust maxRetries=3
	for i := 0; i < 3; i++ {
		fresh, err := store.GetByTaskID(ctx, "t-1")
		require.NoError(t, err)
		fresh.Status = models.TaskStatusProcessing
		require.NoError(t, h.Apply(ctx, fresh, fail))
	}

	saved, err := store.GetByTaskID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, saved.Status)
	assert.Equal(t, 3, saved.RetryCount)

	entries, err := logs.FindByTaskID(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i+1, e.AttemptNumber)
		assert.False(t, e.Success)
	}
}
