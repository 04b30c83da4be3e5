package core

import "time"

// JobService defines the coordinator's job and task scheduling operations.
type JobService interface {
	SubmitJob(sub JobSubmission) (int, error)
	PollJob(id int) PollResult
	// GetTask returns the next assignable task, or false when the caller
	// should wait and ask again later.
	GetTask() (*Assignment, bool)
	FinishTask(report TaskReport)

	GetJob(id int) (*Job, error)
	GetJobs(filter JobFilter) ([]*Job, int, error)
	// PruneJobs removes terminal jobs that completed before the given time.
	PruneJobs(before time.Time) int
}

// AppRegistry resolves application names to executable map/reduce logic.
type AppRegistry interface {
	Has(name string) bool
}

// DirProvisioner makes sure a job output directory exists.
type DirProvisioner interface {
	Provision(dir string) error
}
