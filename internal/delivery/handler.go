package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/storage"
)

// Handler applies a classified outcome to a claimed task: one log row
// per attempt, then the state transition. The log is appended before the
// task is saved so a crash mid-attempt leaves a visible PROCESSING row
// (recovered by the sweeper) rather than a silent loss.
type Handler struct {
	store            storage.Store
	logs             storage.LogStore
	baseDelaySeconds int
	jitter           bool
}

// NewHandler creates an outcome handler. baseDelaySeconds is the base of
// the exponential backoff; jitter adds ±25% when enabled.
func NewHandler(store storage.Store, logs storage.LogStore, baseDelaySeconds int, jitter bool) *Handler {
	if baseDelaySeconds <= 0 {
		baseDelaySeconds = models.DefaultBaseDelaySeconds
	}
	return &Handler{
		store:            store,
		logs:             logs,
		baseDelaySeconds: baseDelaySeconds,
		jitter:           jitter,
	}
}

// Apply records the attempt and commits the resulting state transition.
// The task must be PROCESSING and owned by the caller's claim.
func (h *Handler) Apply(ctx context.Context, task *models.Task, outcome Outcome) error {
	attempt := task.RetryCount + 1
	now := time.Now()

	entry := &models.AttemptLog{
		TaskID:        task.TaskID,
		AttemptNumber: attempt,
		HTTPStatus:    outcome.HTTPStatus,
		LatencyMs:     outcome.LatencyMs,
		Success:       outcome.Classification == ClassSuccess,
		CreatedAt:     now,
	}
	if outcome.Classification == ClassSuccess {
		entry.ResponseBody = outcome.ResponseBody
	} else {
		entry.ErrorMessage = outcome.ErrorMessage
	}

	if err := h.logs.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append attempt log: %w", err)
	}

	switch outcome.Classification {
	case ClassSuccess:
		task.Status = models.TaskStatusSuccess
		task.LastHTTPStatus = outcome.HTTPStatus
		task.CompletedAt = &now

		slog.Info("Delivery succeeded",
			"task_id", task.TaskID,
			"attempt", attempt,
			"http_status", *outcome.HTTPStatus,
			"latency_ms", outcome.LatencyMs,
		)

	case ClassTerminal:
		task.RetryCount = attempt
		task.LastHTTPStatus = outcome.HTTPStatus
		task.LastError = outcome.ErrorMessage
		task.Status = models.TaskStatusFailed
		task.CompletedAt = &now

		slog.Error("Delivery failed terminally",
			"task_id", task.TaskID,
			"attempt", attempt,
			"reason", outcome.Reason,
		)

	case ClassRetryable:
		task.RetryCount = attempt
		task.LastHTTPStatus = outcome.HTTPStatus
		task.LastError = outcome.ErrorMessage

		if task.CanRetry() {
			delay := models.Backoff(h.baseDelaySeconds, task.RetryCount, h.jitter)
			nextRetryAt := now.Add(delay)
			task.NextRetryAt = &nextRetryAt
			task.Status = models.TaskStatusPending

			slog.Warn("Delivery failed, retry scheduled",
				"task_id", task.TaskID,
				"attempt", attempt,
				"max_retries", task.MaxRetries,
				"reason", outcome.Reason,
				"next_retry_at", nextRetryAt,
			)
		} else {
			task.Status = models.TaskStatusFailed
			task.CompletedAt = &now

			slog.Error("Delivery failed, retry budget exhausted",
				"task_id", task.TaskID,
				"attempt", attempt,
				"max_retries", task.MaxRetries,
				"reason", outcome.Reason,
			)
		}
	}

	if err := h.store.Save(ctx, task); err != nil {
		return fmt.Errorf("failed to save task outcome: %w", err)
	}

	return nil
}
