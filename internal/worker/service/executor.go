package service

import (
	"context"
	"fmt"

	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/internal/worker/core"
	"github.com/nemanja-m/mrsched/pkg/jobs"
	"github.com/nemanja-m/mrsched/pkg/local"
)

type taskExecutor struct {
	registry *jobs.Registry
	logger   logging.Logger
}

// NewTaskExecutor runs tasks with the applications of registry against the
// local filesystem.
func NewTaskExecutor(registry *jobs.Registry, logger logging.Logger) core.TaskExecutor {
	return &taskExecutor{
		registry: registry,
		logger:   logger,
	}
}

func (e *taskExecutor) Execute(ctx context.Context, task *core.Task) (err error) {
	app, err := e.registry.Get(task.App)
	if err != nil {
		return err
	}

	// Application code runs in-process; a panic fails the task, not the worker.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", task, r)
		}
	}()

	engine := local.NewEngine(app.Map, app.Reduce)
	if task.Reduce {
		e.logger.Debug("Running reduce task", "job_id", task.JobID, "task_index", task.Index, "n_map", task.NMap)
		return engine.RunReduce(ctx, local.ReduceTask{
			JobID:     task.JobID,
			Index:     task.Index,
			OutputDir: task.OutputDir,
			NMap:      task.NMap,
			Args:      task.Args,
		})
	}

	e.logger.Debug("Running map task", "job_id", task.JobID, "task_index", task.Index, "input", task.InputFile)
	return engine.RunMap(ctx, local.MapTask{
		JobID:     task.JobID,
		Index:     task.Index,
		InputFile: task.InputFile,
		OutputDir: task.OutputDir,
		NReduce:   task.NReduce,
		Args:      task.Args,
	})
}
