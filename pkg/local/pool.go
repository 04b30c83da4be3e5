package local

import (
	"context"
	"sync"
)

type Task func()

// Pool runs submitted tasks on a fixed number of goroutines. A panicking
// task is handed to the panic handler and does not take its goroutine down.
type Pool struct {
	numWorkers int
	tasks      chan Task
	wg         sync.WaitGroup
	onPanic    func(recovered any)
}

type PoolOption func(*Pool)

func WithPanicHandler(fn func(recovered any)) PoolOption {
	return func(p *Pool) {
		p.onPanic = fn
	}
}

func NewPool(numWorkers int, opts ...PoolOption) *Pool {
	p := &Pool{
		numWorkers: max(numWorkers, 1),
		tasks:      make(chan Task),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) Start() {
	for range p.numWorkers {
		p.wg.Go(func() {
			for task := range p.tasks {
				p.run(task)
			}
		})
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			if p.onPanic == nil {
				panic(r)
			}
			p.onPanic(r)
		}
	}()
	task()
}

// Submit blocks until a pool goroutine accepts the task or ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for running ones.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
