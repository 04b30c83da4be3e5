// Package inproc connects workers directly to a job service running in the
// same process.
package inproc

import (
	"context"

	coordinator "github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/worker/core"
)

type CoordinatorClient struct {
	jobService coordinator.JobService
}

func NewCoordinatorClient(jobService coordinator.JobService) *CoordinatorClient {
	return &CoordinatorClient{jobService: jobService}
}

func (c *CoordinatorClient) PullTask(ctx context.Context) (*core.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assignment, ok := c.jobService.GetTask()
	if !ok {
		return nil, nil
	}
	return &core.Task{
		JobID:     assignment.JobID,
		Index:     assignment.TaskIndex,
		Reduce:    assignment.Reduce,
		InputFile: assignment.InputFile,
		OutputDir: assignment.OutputDir,
		App:       assignment.App,
		NMap:      assignment.NMap,
		NReduce:   assignment.NReduce,
		Args:      assignment.Args,
		Attempt:   assignment.Attempt,
	}, nil
}

func (c *CoordinatorClient) CompleteTask(ctx context.Context, task *core.Task) error {
	c.jobService.FinishTask(report(task, true, ""))
	return nil
}

func (c *CoordinatorClient) FailTask(ctx context.Context, task *core.Task, errMsg string) error {
	c.jobService.FinishTask(report(task, false, errMsg))
	return nil
}

func (c *CoordinatorClient) Close() error {
	return nil
}

func report(task *core.Task, success bool, errMsg string) coordinator.TaskReport {
	return coordinator.TaskReport{
		JobID:     task.JobID,
		TaskIndex: task.Index,
		Reduce:    task.Reduce,
		Success:   success,
		Error:     errMsg,
	}
}
