package rest

import (
	"fmt"
	"strings"
	"time"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
)

// ToSubmission builds a core submission from the request and the input
// files its patterns expanded to.
func (req *SubmitJobRequest) ToSubmission(inputFiles []string) core.JobSubmission {
	var args []byte
	if req.Args != "" {
		args = []byte(req.Args)
	}
	return core.JobSubmission{
		App:        strings.TrimSpace(req.App),
		InputFiles: inputFiles,
		NReduce:    req.Config.NumReducers,
		OutputDir:  req.Output.Dir,
		Args:       args,
	}
}

func ToSubmitJobResponse(job *core.Job) SubmitJobResponse {
	self := fmt.Sprintf("/api/jobs/%d", job.ID)
	return SubmitJobResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		SubmittedAt:    job.SubmittedAt.UTC(),
		NumMapTasks:    job.NMap(),
		NumReduceTasks: job.NReduce,
		Links: Links{
			Self:   self,
			Status: self + "/status",
			Tasks:  self + "/tasks",
		},
	}
}

func ToGetJobResponse(job *core.Job) GetJobResponse {
	progress := job.Progress()

	var failure *FailureInfo
	if job.Failure != nil {
		failure = &FailureInfo{
			TaskType:  string(job.Failure.TaskType),
			TaskIndex: job.Failure.TaskIndex,
			Error:     job.Failure.Error,
			Timestamp: job.Failure.Timestamp.UTC(),
		}
	}

	return GetJobResponse{
		JobID:  job.ID,
		App:    job.App,
		Status: string(job.Status),
		Input:  job.InputFiles,
		Args:   string(job.Args),
		Progress: ProgressInfo{
			Map:    toTaskProgress(progress.Map),
			Reduce: toTaskProgress(progress.Reduce),
		},
		Timestamps: TimestampsInfo{
			Submitted: job.SubmittedAt.UTC(),
			Started:   utcPtr(job.StartedAt),
			Completed: utcPtr(job.CompletedAt),
		},
		Output: OutputInfo{
			Dir:       job.OutputDir,
			Available: job.Status == core.JobStatusDone,
		},
		Failure: failure,
	}
}

func toTaskProgress(p core.TaskProgress) TaskProgress {
	return TaskProgress{
		Total:     p.Total,
		Pending:   p.Idle,
		Running:   p.InProgress,
		Completed: p.Finished,
	}
}

func ToJobSummary(job *core.Job) JobSummary {
	return JobSummary{
		JobID:       job.ID,
		App:         job.App,
		Status:      string(job.Status),
		SubmittedAt: job.SubmittedAt.UTC(),
		CompletedAt: utcPtr(job.CompletedAt),
	}
}

func ToTaskInfo(task core.Task) TaskInfo {
	var assignedAt *time.Time
	if !task.AssignedAt.IsZero() {
		t := task.AssignedAt.UTC()
		assignedAt = &t
	}
	return TaskInfo{
		TaskID:     fmt.Sprintf("%s-%d", strings.ToLower(string(task.Type)), task.Index),
		Type:       string(task.Type),
		Index:      task.Index,
		Status:     string(task.State),
		Attempts:   task.Attempts,
		AssignedAt: assignedAt,
	}
}

func ToGetTasksResponse(job *core.Job) GetTasksResponse {
	tasks := make([]TaskInfo, 0, len(job.MapTasks)+len(job.ReduceTasks))
	for _, task := range job.MapTasks {
		tasks = append(tasks, ToTaskInfo(task))
	}
	for _, task := range job.ReduceTasks {
		tasks = append(tasks, ToTaskInfo(task))
	}
	return GetTasksResponse{JobID: job.ID, Tasks: tasks}
}

// utcPtr renders scheduler timestamps, which keep a monotonic reading, in UTC.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
