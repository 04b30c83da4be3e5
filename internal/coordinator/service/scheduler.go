package service

import (
	"slices"
	"time"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
)

// GetTask scans jobs in submission order and claims the first assignable
// task. Reduce tasks of a job are withheld until all of its map tasks have
// finished. In-progress tasks older than the task timeout are reclaimed
// during the scan, so a worker that stops responding loses its task to the
// next caller.
func (s *jobService) GetTask() (*core.Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.jobStore.ListJobs()
	if err != nil {
		s.logger.Error("Failed to list jobs", "error", err)
		return nil, false
	}

	now := s.now()
	for _, job := range jobs {
		if job.Status.IsTerminal() {
			continue
		}

		if assignment, ok := s.claim(job, core.TaskTypeMap, now); ok {
			return assignment, true
		}
		if !job.PhaseFinished(core.TaskTypeMap) {
			continue
		}

		if assignment, ok := s.claim(job, core.TaskTypeReduce, now); ok {
			return assignment, true
		}

		if s.completeIfFinished(job, now) {
			s.save(job)
		}
	}
	return nil, false
}

func (s *jobService) claim(job *core.Job, taskType core.TaskType, now time.Time) (*core.Assignment, bool) {
	if reclaimed := job.ReclaimExpired(taskType, now, s.taskTimeout); reclaimed > 0 {
		s.logger.Warn(
			"Reclaimed timed out tasks",
			"job_id", job.ID,
			"task_type", taskType,
			"count", reclaimed,
		)
	}

	index, ok := job.ClaimNext(taskType, now)
	if !ok {
		return nil, false
	}

	job.Status = core.JobStatusRunning
	if job.StartedAt == nil {
		started := now
		job.StartedAt = &started
	}
	s.save(job)

	task := job.Tasks(taskType)[index]
	assignment := &core.Assignment{
		JobID:     job.ID,
		TaskIndex: index,
		Reduce:    taskType == core.TaskTypeReduce,
		OutputDir: job.OutputDir,
		App:       job.App,
		NMap:      job.NMap(),
		NReduce:   job.NReduce,
		Args:      slices.Clone(job.Args),
		Attempt:   task.Attempts,
	}
	if taskType == core.TaskTypeMap {
		assignment.InputFile = job.InputFiles[index]
	}

	s.logger.Debug(
		"Task assigned",
		"job_id", job.ID,
		"task_type", taskType,
		"task_index", index,
		"attempt", task.Attempts,
	)
	return assignment, true
}
