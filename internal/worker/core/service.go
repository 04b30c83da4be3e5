package core

import (
	"context"
	"fmt"
)

// Task is an assignment received from the coordinator.
type Task struct {
	JobID     int
	Index     int
	Reduce    bool
	InputFile string
	OutputDir string
	App       string
	NMap      int
	NReduce   int
	Args      []byte
	Attempt   int
}

func (t *Task) String() string {
	kind := "map"
	if t.Reduce {
		kind = "reduce"
	}
	return fmt.Sprintf("job %d %s task %d", t.JobID, kind, t.Index)
}

type CoordinatorClient interface {
	// PullTask returns nil without error when there is nothing to do yet.
	PullTask(ctx context.Context) (*Task, error)
	CompleteTask(ctx context.Context, task *Task) error
	FailTask(ctx context.Context, task *Task, errMsg string) error
	Close() error
}

type WorkerService interface {
	Run(ctx context.Context) error
}

type TaskExecutor interface {
	Execute(ctx context.Context, task *Task) error
}
