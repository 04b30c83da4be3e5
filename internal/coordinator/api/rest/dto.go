package rest

import (
	"time"
)

type SubmitJobRequest struct {
	App    string       `json:"app"`
	Input  InputConfig  `json:"input"`
	Output OutputConfig `json:"output"`
	Config JobConfig    `json:"config"`
	Args   string       `json:"args,omitempty"`
}

type InputConfig struct {
	Paths []string `json:"paths"` // Glob patterns or specific paths
}

type OutputConfig struct {
	Dir string `json:"dir"`
}

type JobConfig struct {
	NumReducers int `json:"numReducers"`
}

type SubmitJobResponse struct {
	JobID          int       `json:"job_id"`
	Status         string    `json:"status"`
	SubmittedAt    time.Time `json:"submitted_at"`
	NumMapTasks    int       `json:"num_map_tasks"`
	NumReduceTasks int       `json:"num_reduce_tasks"`
	Links          Links     `json:"links"`
}

type Links struct {
	Self   string `json:"self"`
	Status string `json:"status"`
	Tasks  string `json:"tasks"`
}

type GetJobResponse struct {
	JobID      int            `json:"job_id"`
	App        string         `json:"app"`
	Status     string         `json:"status"`
	Input      []string       `json:"input"`
	Args       string         `json:"args,omitempty"`
	Progress   ProgressInfo   `json:"progress"`
	Timestamps TimestampsInfo `json:"timestamps"`
	Output     OutputInfo     `json:"output"`
	Failure    *FailureInfo   `json:"failure,omitempty"`
}

type ProgressInfo struct {
	Map    TaskProgress `json:"map"`
	Reduce TaskProgress `json:"reduce"`
}

type TaskProgress struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
}

type TimestampsInfo struct {
	Submitted time.Time  `json:"submitted"`
	Started   *time.Time `json:"started"`
	Completed *time.Time `json:"completed"`
}

type OutputInfo struct {
	Dir       string `json:"dir"`
	Available bool   `json:"available"`
}

type FailureInfo struct {
	TaskType  string    `json:"task_type"`
	TaskIndex int       `json:"task_index"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type JobStatusResponse struct {
	JobID  int  `json:"job_id"`
	Done   bool `json:"done"`
	Failed bool `json:"failed"`
}

type ListJobsResponse struct {
	Jobs       []JobSummary `json:"jobs"`
	Total      int          `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	NextOffset *int         `json:"next_offset,omitempty"`
}

type JobSummary struct {
	JobID       int        `json:"job_id"`
	App         string     `json:"app"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type GetTasksResponse struct {
	JobID int        `json:"job_id"`
	Tasks []TaskInfo `json:"tasks"`
}

type TaskInfo struct {
	TaskID     string     `json:"task_id"`
	Type       string     `json:"type"` // "MAP" or "REDUCE"
	Index      int        `json:"index"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
