package service

import (
	"context"
	"errors"
	"time"

	"github.com/nemanja-m/mrsched/internal/shared/config"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/internal/worker/core"
	"github.com/nemanja-m/mrsched/pkg/local"
)

type workerService struct {
	client   core.CoordinatorClient
	executor core.TaskExecutor
	cfg      config.WorkerPoolConfig
	logger   logging.Logger
}

func NewWorkerService(
	client core.CoordinatorClient,
	executor core.TaskExecutor,
	cfg config.WorkerPoolConfig,
	logger logging.Logger,
) core.WorkerService {
	return &workerService{
		client:   client,
		executor: executor,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run pulls and executes tasks on cfg.Concurrency slots until ctx is
// cancelled, then waits for running tasks to return.
func (w *workerService) Run(ctx context.Context) error {
	slots := max(w.cfg.Concurrency, 1)
	pool := local.NewPool(slots, local.WithPanicHandler(func(r any) {
		w.logger.Error("Task loop panicked", "panic", r)
	}))
	pool.Start()
	defer pool.Close()

	for slot := range slots {
		if err := pool.Submit(ctx, func() { w.runTaskLoop(ctx, slot) }); err != nil {
			return nil
		}
	}

	<-ctx.Done()
	return nil
}

func (w *workerService) runTaskLoop(ctx context.Context, slot int) {
	backoff := w.cfg.MinBackoff

	for ctx.Err() == nil {
		task, err := w.client.PullTask(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to pull task", "slot", slot, "error", err)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, w.cfg.MaxBackoff)
			continue
		}

		if task == nil {
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, w.cfg.MaxBackoff)
			continue
		}

		backoff = w.cfg.MinBackoff
		w.handleTask(ctx, slot, task)
	}
}

func (w *workerService) handleTask(ctx context.Context, slot int, task *core.Task) {
	logArgs := []any{
		"slot", slot,
		"job_id", task.JobID,
		"task_index", task.Index,
		"reduce", task.Reduce,
		"attempt", task.Attempt,
	}
	w.logger.Info("Received task", logArgs...)

	start := time.Now()
	err := w.executor.Execute(ctx, task)

	// An interrupted task is left to the coordinator's timeout; reporting it
	// as failed would fail the whole job.
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		w.logger.Warn("Task interrupted by shutdown", logArgs...)
		return
	}

	// Finished work is reported even when shutdown began meanwhile; the
	// client still bounds each call with its rpc timeout.
	report := context.WithoutCancel(ctx)
	if err == nil {
		w.logger.Info("Task completed", append(logArgs, "duration", time.Since(start).String())...)
		if reportErr := w.client.CompleteTask(report, task); reportErr != nil {
			w.logger.Error("Failed to report task completion", append(logArgs, "error", reportErr)...)
		}
		return
	}

	w.logger.Error("Task execution failed", append(logArgs, "error", err)...)
	if reportErr := w.client.FailTask(report, task, err.Error()); reportErr != nil {
		w.logger.Error("Failed to report task failure", append(logArgs, "error", reportErr)...)
	}
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
