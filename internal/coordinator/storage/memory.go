package storage

import (
	"slices"
	"sync"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
)

// InMemoryJobStore keeps jobs keyed by id plus their submission order.
// Jobs are stored by pointer; callers mutate them under their own lock.
type InMemoryJobStore struct {
	mu     sync.RWMutex
	jobs   map[int]*core.Job
	order  []int
	nextID int
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[int]*core.Job),
	}
}

func (s *InMemoryJobStore) NextJobID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

func (s *InMemoryJobStore) SaveJob(job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *InMemoryJobStore) UpdateJob(job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		return core.ErrJobNotFound
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *InMemoryJobStore) GetJobByID(id int) (*core.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return nil, nil
	}
	return job, nil
}

func (s *InMemoryJobStore) ListJobs() ([]*core.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*core.Job, 0, len(s.order))
	for _, id := range s.order {
		jobs = append(jobs, s.jobs[id])
	}
	return jobs, nil
}

func (s *InMemoryJobStore) GetJobs(filter core.JobFilter) ([]*core.Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*core.Job
	for _, id := range s.order {
		job := s.jobs[id]
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		filtered = append(filtered, job)
	}

	total := len(filtered)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	return filtered[start:end], total, nil
}

func (s *InMemoryJobStore) DeleteJob(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; !exists {
		return core.ErrJobNotFound
	}
	delete(s.jobs, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return nil
}
