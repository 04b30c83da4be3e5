package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
)

// Option configures a job service.
type Option func(*jobService)

// WithClock replaces the wall clock used for assignment timestamps and
// timeout checks.
func WithClock(now func() time.Time) Option {
	return func(s *jobService) {
		s.now = now
	}
}

// jobService holds all coordinator state. A single mutex serializes every
// operation because a scheduling scan touches every job.
type jobService struct {
	mu sync.Mutex

	jobStore    core.JobStore
	apps        core.AppRegistry
	dirs        core.DirProvisioner
	taskTimeout time.Duration
	now         func() time.Time

	logger logging.Logger
}

func NewJobService(
	jobStore core.JobStore,
	apps core.AppRegistry,
	dirs core.DirProvisioner,
	taskTimeout time.Duration,
	logger logging.Logger,
	opts ...Option,
) core.JobService {
	s := &jobService{
		jobStore:    jobStore,
		apps:        apps,
		dirs:        dirs,
		taskTimeout: taskTimeout,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *jobService) SubmitJob(sub core.JobSubmission) (int, error) {
	if !s.apps.Has(sub.App) {
		return -1, fmt.Errorf("%w: %q", core.ErrUnknownApplication, sub.App)
	}
	if err := sub.Validate(); err != nil {
		return -1, err
	}

	// The directory exists before the job becomes visible to workers.
	if err := s.dirs.Provision(sub.OutputDir); err != nil {
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := core.NewJob(s.jobStore.NextJobID(), sub, s.now())
	if err := s.jobStore.SaveJob(job); err != nil {
		return -1, fmt.Errorf("failed to save job: %w", err)
	}

	s.logger.Info(
		"Job submitted",
		"job_id", job.ID,
		"app", job.App,
		"num_map_tasks", job.NMap(),
		"num_reduce_tasks", job.NReduce,
		"output_dir", job.OutputDir,
	)

	return job.ID, nil
}

func (s *jobService) PollJob(id int) core.PollResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.jobStore.GetJobByID(id)
	if err != nil || job == nil {
		return core.PollResult{InvalidJobID: true}
	}

	// A failed job is also finished from the submitter's point of view.
	return core.PollResult{
		Done:   job.Status.IsTerminal(),
		Failed: job.Status == core.JobStatusFailed,
	}
}

func (s *jobService) FinishTask(report core.TaskReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	taskType := core.TaskTypeFor(report.Reduce)
	logArgs := []any{"job_id", report.JobID, "task_type", taskType, "task_index", report.TaskIndex}

	job, err := s.jobStore.GetJobByID(report.JobID)
	if err != nil || job == nil {
		s.logger.Debug("Ignoring report for unknown job", logArgs...)
		return
	}
	if job.Status.IsTerminal() {
		s.logger.Debug("Ignoring report for finished job", append(logArgs, "status", job.Status)...)
		return
	}
	if !job.ValidTaskIndex(taskType, report.TaskIndex) {
		s.logger.Debug("Ignoring report for out-of-range task", logArgs...)
		return
	}

	now := s.now()

	if !report.Success {
		job.Status = core.JobStatusFailed
		job.CompletedAt = &now
		job.Failure = &core.JobFailure{
			TaskType:  taskType,
			TaskIndex: report.TaskIndex,
			Error:     report.Error,
			Timestamp: now,
		}
		s.save(job)
		s.logger.Warn("Job failed", append(logArgs, "error", report.Error)...)
		return
	}

	if !job.FinishTask(taskType, report.TaskIndex) {
		s.logger.Debug("Duplicate task completion", logArgs...)
	} else {
		s.logger.Debug("Task finished", logArgs...)
	}

	s.completeIfFinished(job, now)
	s.save(job)
}

func (s *jobService) GetJob(id int) (*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.jobStore.GetJobByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

func (s *jobService) GetJobs(filter core.JobFilter) ([]*core.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, total, err := s.jobStore.GetJobs(filter)
	if err != nil {
		return nil, 0, err
	}
	clones := make([]*core.Job, 0, len(jobs))
	for _, job := range jobs {
		clones = append(clones, job.Clone())
	}
	return clones, total, nil
}

func (s *jobService) PruneJobs(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.jobStore.ListJobs()
	if err != nil {
		s.logger.Error("Failed to list jobs for pruning", "error", err)
		return 0
	}

	pruned := 0
	for _, job := range jobs {
		if !job.Status.IsTerminal() || job.CompletedAt == nil || !job.CompletedAt.Before(before) {
			continue
		}
		if err := s.jobStore.DeleteJob(job.ID); err != nil {
			s.logger.Error("Failed to prune job", "job_id", job.ID, "error", err)
			continue
		}
		pruned++
	}
	return pruned
}

// completeIfFinished moves a job to DONE once every task has finished.
// Failed jobs never complete.
func (s *jobService) completeIfFinished(job *core.Job, now time.Time) bool {
	if job.Status.IsTerminal() || !job.AllTasksFinished() {
		return false
	}
	job.Status = core.JobStatusDone
	job.CompletedAt = &now
	s.logger.Info("Job completed", "job_id", job.ID, "duration", job.Duration().String())
	return true
}

func (s *jobService) save(job *core.Job) {
	if err := s.jobStore.UpdateJob(job); err != nil {
		s.logger.Error("Failed to update job", "job_id", job.ID, "error", err)
	}
}
