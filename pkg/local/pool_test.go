package local

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_TaskExecution(t *testing.T) {
	p := NewPool(2)
	p.Start()

	var called int32
	ctx := context.Background()
	require.NoError(t, p.Submit(ctx, func() { atomic.AddInt32(&called, 1) }))
	require.NoError(t, p.Submit(ctx, func() { atomic.AddInt32(&called, 1) }))

	p.Close()
	require.Equal(t, int32(2), atomic.LoadInt32(&called))
}

func TestPool_CloseWaitsForLongTask(t *testing.T) {
	p := NewPool(1)
	p.Start()

	var done int32
	require.NoError(t, p.Submit(context.Background(), func() {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
	}))

	// Close should wait for the running task to finish
	p.Close()
	require.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestPool_SubmitRespectsContext(t *testing.T) {
	p := NewPool(1)
	p.Start()
	defer p.Close()

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))

	// The only goroutine is busy, so the next submit blocks until ctx expires.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestPool_PanicHandler(t *testing.T) {
	var (
		mu        sync.Mutex
		recovered []any
	)
	p := NewPool(1, WithPanicHandler(func(r any) {
		mu.Lock()
		defer mu.Unlock()
		recovered = append(recovered, r)
	}))
	p.Start()

	var ran int32
	ctx := context.Background()
	require.NoError(t, p.Submit(ctx, func() { panic("boom") }))
	require.NoError(t, p.Submit(ctx, func() { atomic.StoreInt32(&ran, 1) }))
	p.Close()

	require.Equal(t, []any{"boom"}, recovered)
	require.Equal(t, int32(1), atomic.LoadInt32(&ran), "goroutine survives a panicking task")
}

func TestPool_AtLeastOneWorker(t *testing.T) {
	p := NewPool(0)
	p.Start()

	var called int32
	require.NoError(t, p.Submit(context.Background(), func() { atomic.AddInt32(&called, 1) }))
	p.Close()
	require.Equal(t, int32(1), called)
}
