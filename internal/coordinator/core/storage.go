package core

// JobStore owns every job. Implementations need not serialize compound
// read-modify-write sequences; the job service holds its own lock around them.
type JobStore interface {
	// NextJobID allocates a new job id. Ids are never reused.
	NextJobID() int
	SaveJob(job *Job) error
	UpdateJob(job *Job) error
	// GetJobByID returns nil and no error when the job does not exist.
	GetJobByID(id int) (*Job, error)
	// ListJobs returns all jobs in submission order.
	ListJobs() ([]*Job, error)
	GetJobs(filter JobFilter) ([]*Job, int, error)
	DeleteJob(id int) error
}
