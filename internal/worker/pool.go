package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/notifyrelay/relay/internal/delivery"
	"github.com/notifyrelay/relay/internal/models"
	"github.com/notifyrelay/relay/internal/queue"
	"github.com/notifyrelay/relay/internal/storage"
)

// Config holds worker pool configuration
type Config struct {
	Concurrency int           // Number of concurrent worker loops
	PollTimeout time.Duration // Blocking-pop timeout per iteration
}

// Pool runs N worker loops that pop task ids from the queue, claim the
// task via CAS on the store, and hand it to the delivery executor and
// outcome handler. Exclusive dispatch of a task is enforced solely by
// the CAS claim; the queue holds no leases and may deliver duplicates.
type Pool struct {
	store       storage.Store
	queue       queue.Queue
	executor    *delivery.Executor
	handler     *delivery.Handler
	concurrency int
	pollTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewPool creates a worker pool
func NewPool(store storage.Store, q queue.Queue, executor *delivery.Executor, handler *delivery.Handler, config Config) *Pool {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		store:       store,
		queue:       q,
		executor:    executor,
		handler:     handler,
		concurrency: config.Concurrency,
		pollTimeout: config.PollTimeout,
		ctx:         ctx,
		cancel:      cancel,
		quit:        make(chan struct{}),
	}
}

// Start launches the worker loops
func (p *Pool) Start() {
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.runWorker(i + 1)
	}

	slog.Info("Worker pool started",
		"concurrency", p.concurrency,
		"poll_timeout", p.pollTimeout,
	)
}

// Stop signals the loops to finish their current iteration and waits up
// to 30s for drain before interrupting in-flight work.
func (p *Pool) Stop() {
	slog.Info("Stopping worker pool")
	close(p.quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All workers stopped")
	case <-time.After(30 * time.Second):
		slog.Warn("Timeout waiting for workers to stop, interrupting")
		p.cancel()
		<-done
	}
	p.cancel()
}

// runWorker is one worker loop. An unexpected error is logged and the
// loop sleeps 1s so it does not hot-spin on a broken dependency.
func (p *Pool) runWorker(workerNum int) {
	defer p.wg.Done()
	slog.Info("Worker started", "worker_num", workerNum)

	for {
		select {
		case <-p.quit:
			slog.Info("Worker stopping", "worker_num", workerNum)
			return
		default:
		}

		if err := p.pollOnce(workerNum); err != nil {
			slog.Error("Worker iteration failed",
				"worker_num", workerNum,
				"error", err,
			)
			select {
			case <-p.quit:
			case <-time.After(time.Second):
			}
		}
	}
}

// pollOnce pops one task id and processes it if a claim is won
func (p *Pool) pollOnce(workerNum int) error {
	taskID, err := p.queue.PopBlocking(p.ctx, p.pollTimeout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if taskID == "" {
		return nil
	}

	return p.processTask(workerNum, taskID)
}

func (p *Pool) processTask(workerNum int, taskID string) error {
	task, err := p.store.GetByTaskID(p.ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			// Stale queue entry referencing a pruned row
			slog.Warn("Task not found, dropping queue entry", "task_id", taskID)
			return nil
		}
		return err
	}

	now := time.Now()
	claimed, err := p.store.CompareAndSetStatus(p.ctx, taskID, models.TaskStatusPending, models.TaskStatusProcessing, now)
	if err != nil {
		return err
	}
	if !claimed {
		slog.Debug("Task already claimed by another worker", "task_id", taskID)
		return nil
	}

	// Reload to pick up the claim's updated_at
	task, err = p.store.GetByTaskID(p.ctx, taskID)
	if err != nil {
		return err
	}

	// The queue may hand out a task whose backoff window is still open
	// (an eager push, or a duplicate). Release the claim and let the
	// retry scheduler re-enqueue it when due.
	if task.NextRetryAt != nil && task.NextRetryAt.After(time.Now()) {
		if _, err := p.store.CompareAndSetStatus(p.ctx, taskID, models.TaskStatusProcessing, models.TaskStatusPending, time.Now()); err != nil {
			return err
		}
		slog.Debug("Backoff window still open, released claim",
			"task_id", taskID,
			"next_retry_at", task.NextRetryAt,
		)
		return nil
	}

	slog.Info("Dispatching task",
		"worker_num", workerNum,
		"task_id", taskID,
		"target_url", task.TargetURL,
		"attempt", task.RetryCount+1,
	)

	outcome := p.executor.Execute(p.ctx, task)
	return p.handler.Apply(p.ctx, task, outcome)
}
