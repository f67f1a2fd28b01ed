package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/queue"
	"github.com/notifyrelay/relay/internal/storage"
)

// ErrRetryNotAllowed is returned when a manual retry targets a task that
// is not in FAILED state
var ErrRetryNotAllowed = errors.New("task is not in FAILED state")

// TaskService handles intake, status queries, manual retry and stats.
// It spans the task store and the queue; persistence always happens
// before enqueue.
type TaskService struct {
	store             storage.Store
	logs              storage.LogStore
	queue             queue.Queue
	defaultMaxRetries int
}

// NewTaskService creates a task service. defaultMaxRetries bounds tasks
// whose request omits maxRetries.
func NewTaskService(store storage.Store, logs storage.LogStore, q queue.Queue, defaultMaxRetries int) *TaskService {
	if defaultMaxRetries <= 0 {
		defaultMaxRetries = models.DefaultMaxRetries
	}
	return &TaskService{
		store:             store,
		logs:              logs,
		queue:             q,
		defaultMaxRetries: defaultMaxRetries,
	}
}

// CreateTask persists a new PENDING task and enqueues its id. The insert
// is the commitment point: an insert failure is surfaced to the caller,
// while an enqueue failure is swallowed because the retry scheduler will
// rediscover the task from the store.
func (s *TaskService) CreateTask(ctx context.Context, req models.CreateNotificationRequest) (*models.NotificationResponse, error) {
	task := models.NewTask(req, s.defaultMaxRetries)

	if err := s.store.Insert(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	slog.Info("Task created",
		"task_id", task.TaskID,
		"source_system", task.SourceSystem,
		"target_url", task.TargetURL,
		"max_retries", task.MaxRetries,
	)

	if err := s.queue.Push(ctx, task.TaskID); err != nil {
		slog.Warn("Failed to enqueue task, scheduler will pick it up",
			"task_id", task.TaskID,
			"error", err,
		)
	}

	return &models.NotificationResponse{
		TaskID:  task.TaskID,
		Status:  models.TaskStatusPending,
		Message: "notification accepted for delivery",
	}, nil
}

// GetStatus returns the status projection of a task
func (s *TaskService) GetStatus(ctx context.Context, taskID string) (*models.TaskStatusResponse, error) {
	task, err := s.store.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	resp := task.ToStatusResponse()
	return &resp, nil
}

// GetLogs returns a task's attempt logs, ascending by attempt number
func (s *TaskService) GetLogs(ctx context.Context, taskID string) ([]*models.AttemptLog, error) {
	return s.logs.FindByTaskID(ctx, taskID)
}

// Retry re-queues a terminally failed task. The FAILED->PENDING
// transition, budget reset and completion-marker clear are one
// conditional store write, so a concurrent sweeper, worker claim or
// second retry call loses cleanly.
func (s *TaskService) Retry(ctx context.Context, taskID string) (*models.NotificationResponse, error) {
	ok, err := s.store.ResetForRetry(ctx, taskID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to reset task: %w", err)
	}
	if !ok {
		if _, err := s.store.GetByTaskID(ctx, taskID); err != nil {
			return nil, err
		}
		return nil, ErrRetryNotAllowed
	}

	if err := s.queue.Push(ctx, taskID); err != nil {
		slog.Warn("Failed to enqueue retried task, scheduler will pick it up",
			"task_id", taskID,
			"error", err,
		)
	}

	slog.Info("Task re-queued", "task_id", taskID)

	return &models.NotificationResponse{
		TaskID:  taskID,
		Status:  models.TaskStatusPending,
		Message: "task re-queued for delivery",
	}, nil
}

// Stats reports the queue depth and per-status task counts
func (s *TaskService) Stats(ctx context.Context) (*models.StatsResponse, error) {
	queueSize, err := s.queue.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue size: %w", err)
	}

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	return &models.StatsResponse{
		QueueSize: queueSize,
		TaskStats: counts,
		Timestamp: time.Now(),
	}, nil
}
