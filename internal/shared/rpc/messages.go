package rpc

type SubmitJobRequest struct {
	App       string   `json:"app"`
	Files     []string `json:"files"`
	NReduce   int      `json:"n_reduce"`
	OutputDir string   `json:"output_dir"`
	Args      []byte   `json:"args,omitempty"`
}

type SubmitJobResponse struct {
	JobID int `json:"job_id"`
}

type PollJobRequest struct {
	JobID int `json:"job_id"`
}

type PollJobResponse struct {
	Done         bool `json:"done"`
	Failed       bool `json:"failed"`
	InvalidJobID bool `json:"invalid_job_id"`
}

type GetTaskRequest struct {
	WorkerID string `json:"worker_id"`
}

// GetTaskResponse either asks the worker to wait or describes one task. A
// wait reply carries -1 for job_id and task.
type GetTaskResponse struct {
	Wait      bool   `json:"wait"`
	JobID     int    `json:"job_id"`
	Task      int    `json:"task"`
	Reduce    bool   `json:"reduce"`
	File      string `json:"file,omitempty"`
	OutputDir string `json:"output_dir"`
	App       string `json:"app"`
	NMap      int    `json:"n_map"`
	NReduce   int    `json:"n_reduce"`
	Args      []byte `json:"args,omitempty"`
	Attempt   int    `json:"attempt"`
}

type FinishTaskRequest struct {
	JobID   int    `json:"job_id"`
	Task    int    `json:"task"`
	Reduce  bool   `json:"reduce"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type FinishTaskResponse struct{}
