// Package jobs holds the named map/reduce applications known to workers and
// to the coordinator. Applications register themselves from init.
package jobs

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nemanja-m/mrsched/pkg/core"
)

var ErrUnknownApp = errors.New("application not registered")

type Job struct {
	Map    core.MapFunc
	Reduce core.ReduceFunc
}

type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]Job)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry that Register writes to.
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) Register(name string, job Job) error {
	if name == "" {
		return errors.New("application name is required")
	}
	if job.Map == nil || job.Reduce == nil {
		return fmt.Errorf("application %s: map and reduce functions are required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("job already registered: %s", name)
	}
	r.jobs[name] = job
	return nil
}

func (r *Registry) Get(name string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, exists := r.jobs[name]
	if !exists {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownApp, name)
	}
	return job, nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.jobs[name]
	return exists
}

// List returns registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func Register(name string, job Job) error {
	return defaultRegistry.Register(name, job)
}

func Get(name string) (Job, error) {
	return defaultRegistry.Get(name)
}

func List() []string {
	return defaultRegistry.List()
}
