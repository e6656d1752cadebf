package task

import (
	"context"
	"log/slog"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// TaskRunner couples a TaskQueue with the WorkerPool that drains it.
type TaskRunner struct {
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger
}

// NewTaskRunner creates a new TaskRunner. Failed tasks are logged by the
// pool; SetErrorHandler adds a callback on top of that.
func NewTaskRunner(config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	return &TaskRunner{
		queue:  queue,
		pool:   pool,
		logger: logger.With(slog.String("component", "task_runner")),
	}
}

// SetErrorHandler sets a callback for failed tasks. Call before Start.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit enqueues task. It never blocks: a full queue returns ErrQueueFull.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.queue.Enqueue(task); err != nil {
		r.logger.WarnContext(ctx, "failed to submit task",
			slog.String("task_id", task.ID().String()),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Start begins processing submitted tasks.
func (r *TaskRunner) Start() {
	r.pool.Start()
}

// Stop closes the queue to new submissions and cancels in-flight work.
func (r *TaskRunner) Stop() {
	r.queue.Close()
	r.pool.Stop()
}

// Drain closes the queue and waits until every buffered task has run.
func (r *TaskRunner) Drain() {
	r.queue.Close()
	r.pool.Wait()
}
