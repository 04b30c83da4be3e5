package core

import (
	"fmt"
	"slices"
	"time"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

type TaskType string

const (
	TaskTypeMap    TaskType = "MAP"
	TaskTypeReduce TaskType = "REDUCE"
)

// TaskTypeFor maps the wire-level reduce flag to a task type.
func TaskTypeFor(reduce bool) TaskType {
	if reduce {
		return TaskTypeReduce
	}
	return TaskTypeMap
}

type TaskState string

const (
	TaskStateIdle       TaskState = "IDLE"
	TaskStateInProgress TaskState = "IN_PROGRESS"
	TaskStateFinished   TaskState = "FINISHED"
)

// Task is one map or reduce unit of a job. Its identity is positional:
// (job id, type, index).
type Task struct {
	Index      int
	Type       TaskType
	State      TaskState
	AssignedAt time.Time
	Attempts   int
}

// JobSubmission carries the caller-supplied fields of a new job.
type JobSubmission struct {
	App        string
	InputFiles []string
	NReduce    int
	OutputDir  string
	Args       []byte
}

type Job struct {
	ID         int
	App        string
	InputFiles []string
	NReduce    int
	OutputDir  string
	Args       []byte
	Status     JobStatus

	MapTasks    []Task
	ReduceTasks []Task

	SubmittedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	Failure *JobFailure

	mapReady    *ReadyQueue
	reduceReady *ReadyQueue
}

// JobFailure records the task report that moved a job to FAILED.
type JobFailure struct {
	TaskType  TaskType
	TaskIndex int
	Error     string
	Timestamp time.Time
}

type JobProgress struct {
	Map    TaskProgress
	Reduce TaskProgress
}

type TaskProgress struct {
	Total      int
	Idle       int
	InProgress int
	Finished   int
}

// Assignment describes a task handed out to a worker.
type Assignment struct {
	JobID     int
	TaskIndex int
	Reduce    bool
	InputFile string
	OutputDir string
	App       string
	NMap      int
	NReduce   int
	Args      []byte
	Attempt   int
}

// TaskReport is a worker's completion report for a single task.
type TaskReport struct {
	JobID     int
	TaskIndex int
	Reduce    bool
	Success   bool
	Error     string
}

type PollResult struct {
	Done         bool
	Failed       bool
	InvalidJobID bool
}

type JobFilter struct {
	Status *JobStatus
	Limit  int
	Offset int
}

// Validate checks the submission shape. It does not resolve the application.
func (s JobSubmission) Validate() error {
	if s.App == "" {
		return fmt.Errorf("%w: application name is required", ErrInvalidSubmission)
	}
	if len(s.InputFiles) == 0 {
		return fmt.Errorf("%w: at least one input file is required", ErrInvalidSubmission)
	}
	if s.NReduce < 1 {
		return fmt.Errorf("%w: n_reduce must be at least 1, got %d", ErrInvalidSubmission, s.NReduce)
	}
	if s.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidSubmission)
	}
	return nil
}

// NewJob builds a job with every task idle. Input files and args are copied.
func NewJob(id int, sub JobSubmission, now time.Time) *Job {
	job := &Job{
		ID:          id,
		App:         sub.App,
		InputFiles:  slices.Clone(sub.InputFiles),
		NReduce:     sub.NReduce,
		OutputDir:   sub.OutputDir,
		Args:        slices.Clone(sub.Args),
		Status:      JobStatusPending,
		MapTasks:    newTasks(TaskTypeMap, len(sub.InputFiles)),
		ReduceTasks: newTasks(TaskTypeReduce, sub.NReduce),
		SubmittedAt: now,
		mapReady:    NewReadyQueue(len(sub.InputFiles)),
		reduceReady: NewReadyQueue(sub.NReduce),
	}
	return job
}

func newTasks(taskType TaskType, n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Index: i, Type: taskType, State: TaskStateIdle}
	}
	return tasks
}

func (j *Job) NMap() int {
	return len(j.MapTasks)
}

func (j *Job) Tasks(taskType TaskType) []Task {
	if taskType == TaskTypeReduce {
		return j.ReduceTasks
	}
	return j.MapTasks
}

func (j *Job) ready(taskType TaskType) *ReadyQueue {
	if taskType == TaskTypeReduce {
		return j.reduceReady
	}
	return j.mapReady
}

// ValidTaskIndex reports whether index addresses a task of the given phase.
func (j *Job) ValidTaskIndex(taskType TaskType, index int) bool {
	return index >= 0 && index < len(j.Tasks(taskType))
}

// ReclaimExpired reverts in-progress tasks assigned more than timeout ago to
// idle and returns how many were reverted.
func (j *Job) ReclaimExpired(taskType TaskType, now time.Time, timeout time.Duration) int {
	tasks := j.Tasks(taskType)
	reclaimed := 0
	for i := range tasks {
		if tasks[i].State == TaskStateInProgress && now.Sub(tasks[i].AssignedAt) > timeout {
			tasks[i].State = TaskStateIdle
			j.ready(taskType).Push(i)
			reclaimed++
		}
	}
	return reclaimed
}

// ClaimNext marks the lowest-indexed idle task in progress and returns its
// index. Queue entries for tasks that are no longer idle are discarded.
func (j *Job) ClaimNext(taskType TaskType, now time.Time) (int, bool) {
	tasks := j.Tasks(taskType)
	queue := j.ready(taskType)
	for queue.Len() > 0 {
		index, err := queue.Pop()
		if err != nil {
			return -1, false
		}
		if tasks[index].State != TaskStateIdle {
			continue
		}
		tasks[index].State = TaskStateInProgress
		tasks[index].AssignedAt = now
		tasks[index].Attempts++
		return index, true
	}
	return -1, false
}

// FinishTask marks a task finished and reports whether its state changed.
func (j *Job) FinishTask(taskType TaskType, index int) bool {
	tasks := j.Tasks(taskType)
	if tasks[index].State == TaskStateFinished {
		return false
	}
	tasks[index].State = TaskStateFinished
	return true
}

func (j *Job) PhaseFinished(taskType TaskType) bool {
	for _, task := range j.Tasks(taskType) {
		if task.State != TaskStateFinished {
			return false
		}
	}
	return true
}

func (j *Job) AllTasksFinished() bool {
	return j.PhaseFinished(TaskTypeMap) && j.PhaseFinished(TaskTypeReduce)
}

func (j *Job) Progress() JobProgress {
	return JobProgress{
		Map:    countProgress(j.MapTasks),
		Reduce: countProgress(j.ReduceTasks),
	}
}

func countProgress(tasks []Task) TaskProgress {
	progress := TaskProgress{Total: len(tasks)}
	for _, task := range tasks {
		switch task.State {
		case TaskStateIdle:
			progress.Idle++
		case TaskStateInProgress:
			progress.InProgress++
		case TaskStateFinished:
			progress.Finished++
		}
	}
	return progress
}

// Duration returns the time between the first assignment and completion,
// or zero if the job has not both started and completed.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// Clone returns a deep copy without scheduling state, safe to hand to
// readers outside the coordinator lock.
func (j *Job) Clone() *Job {
	clone := *j
	clone.InputFiles = slices.Clone(j.InputFiles)
	clone.Args = slices.Clone(j.Args)
	clone.MapTasks = slices.Clone(j.MapTasks)
	clone.ReduceTasks = slices.Clone(j.ReduceTasks)
	clone.StartedAt = cloneTime(j.StartedAt)
	clone.CompletedAt = cloneTime(j.CompletedAt)
	if j.Failure != nil {
		failure := *j.Failure
		clone.Failure = &failure
	}
	clone.mapReady = nil
	clone.reduceReady = nil
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
