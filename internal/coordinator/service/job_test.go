package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/coordinator/storage"
)

// mockLogger is a no-op logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Info(msg string, args ...any)  {}
func (m *mockLogger) Warn(msg string, args ...any)  {}
func (m *mockLogger) Error(msg string, args ...any) {}
func (m *mockLogger) Fatal(msg string, args ...any) {}

type mockApps map[string]bool

func (m mockApps) Has(name string) bool {
	return m[name]
}

type mockDirs struct {
	mu          sync.Mutex
	provisioned []string
	err         error
}

func (m *mockDirs) Provision(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.provisioned = append(m.provisioned, dir)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testTimeout = 10 * time.Second

type testHarness struct {
	svc   core.JobService
	dirs  *mockDirs
	clock *fakeClock
}

func newTestHarness() *testHarness {
	dirs := &mockDirs{}
	clock := newFakeClock()
	svc := NewJobService(
		storage.NewInMemoryJobStore(),
		mockApps{"wordcount": true, "grep": true},
		dirs,
		testTimeout,
		&mockLogger{},
		WithClock(clock.Now),
	)
	return &testHarness{svc: svc, dirs: dirs, clock: clock}
}

func submission(nMap, nReduce int) core.JobSubmission {
	files := make([]string, nMap)
	for i := range files {
		files[i] = "input-" + string(rune('a'+i)) + ".txt"
	}
	return core.JobSubmission{
		App:        "wordcount",
		InputFiles: files,
		NReduce:    nReduce,
		OutputDir:  "/tmp/out",
		Args:       []byte("args"),
	}
}

func (h *testHarness) mustSubmit(t *testing.T, nMap, nReduce int) int {
	t.Helper()
	id, err := h.svc.SubmitJob(submission(nMap, nReduce))
	require.NoError(t, err)
	return id
}

func (h *testHarness) mustGetTask(t *testing.T) *core.Assignment {
	t.Helper()
	a, ok := h.svc.GetTask()
	require.True(t, ok, "expected an assignment, got wait")
	require.NotNil(t, a)
	return a
}

func (h *testHarness) requireWait(t *testing.T) {
	t.Helper()
	a, ok := h.svc.GetTask()
	require.False(t, ok, "expected wait, got %+v", a)
	require.Nil(t, a)
}

func finish(jobID, index int, reduce, success bool) core.TaskReport {
	return core.TaskReport{JobID: jobID, TaskIndex: index, Reduce: reduce, Success: success}
}

func TestSubmitJob_AssignsSequentialIDs(t *testing.T) {
	h := newTestHarness()

	for want := range 3 {
		id := h.mustSubmit(t, 2, 1)
		require.Equal(t, want, id)
	}

	require.Equal(t, []string{"/tmp/out", "/tmp/out", "/tmp/out"}, h.dirs.provisioned)
}

func TestSubmitJob_TaskCountsAreFixed(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 3, 2)

	job, err := h.svc.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, 3, job.NMap())
	require.Equal(t, 2, job.NReduce)
	require.Len(t, job.ReduceTasks, 2)
	require.Equal(t, core.JobStatusPending, job.Status)

	// Drive the job to completion; the counts never change.
	for range 3 {
		a := h.mustGetTask(t)
		h.svc.FinishTask(finish(id, a.TaskIndex, false, true))
	}
	for range 2 {
		a := h.mustGetTask(t)
		h.svc.FinishTask(finish(id, a.TaskIndex, true, true))
	}

	job, err = h.svc.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, 3, job.NMap())
	require.Equal(t, 2, job.NReduce)
	require.Equal(t, core.JobStatusDone, job.Status)
}

func TestSubmitJob_UnknownApplication(t *testing.T) {
	h := newTestHarness()

	sub := submission(2, 1)
	sub.App = "nope"
	id, err := h.svc.SubmitJob(sub)

	require.Equal(t, -1, id)
	require.ErrorIs(t, err, core.ErrUnknownApplication)
	require.Empty(t, h.dirs.provisioned)

	_, total, err := h.svc.GetJobs(core.JobFilter{})
	require.NoError(t, err)
	require.Equal(t, 0, total)

	// Rejected submissions do not consume ids.
	require.Equal(t, 0, h.mustSubmit(t, 1, 1))
}

func TestSubmitJob_UnknownApplicationBeforeValidation(t *testing.T) {
	h := newTestHarness()

	for _, app := range []string{"nope", ""} {
		_, err := h.svc.SubmitJob(core.JobSubmission{App: app})
		require.ErrorIs(t, err, core.ErrUnknownApplication)
		require.NotErrorIs(t, err, core.ErrInvalidSubmission)
	}
	require.Empty(t, h.dirs.provisioned)
}

func TestSubmitJob_InvalidSubmission(t *testing.T) {
	h := newTestHarness()

	tests := []struct {
		name string
		sub  core.JobSubmission
	}{
		{name: "no inputs", sub: submission(0, 1)},
		{name: "no reducers", sub: submission(2, 0)},
		{name: "no output dir", sub: core.JobSubmission{App: "grep", InputFiles: []string{"a"}, NReduce: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := h.svc.SubmitJob(tt.sub)
			require.Equal(t, -1, id)
			require.ErrorIs(t, err, core.ErrInvalidSubmission)
		})
	}
}

func TestSubmitJob_ProvisionFailure(t *testing.T) {
	h := newTestHarness()
	h.dirs.err = errors.New("read-only filesystem")

	id, err := h.svc.SubmitJob(submission(1, 1))
	require.Equal(t, -1, id)
	require.Error(t, err)

	require.True(t, h.svc.PollJob(0).InvalidJobID)
	h.requireWait(t)
}

func TestPollJob_InvalidJobID(t *testing.T) {
	h := newTestHarness()

	require.Equal(t, core.PollResult{InvalidJobID: true}, h.svc.PollJob(0))
	require.Equal(t, core.PollResult{InvalidJobID: true}, h.svc.PollJob(-5))

	id := h.mustSubmit(t, 1, 1)
	require.Equal(t, core.PollResult{}, h.svc.PollJob(id))
}

// Submit 3 inputs with 2 reducers, then walk the whole job.
func TestScenario_FullJobLifecycle(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 3, 2)
	require.Equal(t, 0, id)

	for want := range 3 {
		a := h.mustGetTask(t)
		require.Equal(t, id, a.JobID)
		require.Equal(t, want, a.TaskIndex)
		require.False(t, a.Reduce)
	}
	// All maps claimed, none finished: reduce is withheld.
	h.requireWait(t)

	for i := range 3 {
		h.svc.FinishTask(finish(id, i, false, true))
	}

	for want := range 2 {
		a := h.mustGetTask(t)
		require.Equal(t, id, a.JobID)
		require.Equal(t, want, a.TaskIndex)
		require.True(t, a.Reduce)
		require.Empty(t, a.InputFile)
	}
	h.requireWait(t)

	h.svc.FinishTask(finish(id, 0, true, true))
	require.Equal(t, core.PollResult{}, h.svc.PollJob(id))
	h.svc.FinishTask(finish(id, 1, true, true))

	require.Equal(t, core.PollResult{Done: true, Failed: false}, h.svc.PollJob(id))
	h.requireWait(t)
}

// A claimed task that is not finished within the timeout is handed out
// again, and the late report of the original worker is still accepted.
func TestScenario_TimeoutReclamation(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 3, 1)

	first := h.mustGetTask(t)
	require.Equal(t, 0, first.TaskIndex)
	require.Equal(t, 1, first.Attempt)

	// Within the timeout the task stays claimed.
	h.clock.Advance(testTimeout)
	second := h.mustGetTask(t)
	require.Equal(t, 1, second.TaskIndex)

	h.clock.Advance(time.Millisecond)
	again := h.mustGetTask(t)
	require.Equal(t, id, again.JobID)
	require.Equal(t, 0, again.TaskIndex)
	require.False(t, again.Reduce)
	require.Equal(t, 2, again.Attempt)

	// Late report from the original worker, then the duplicate.
	h.svc.FinishTask(finish(id, 0, false, true))
	h.svc.FinishTask(finish(id, 0, false, true))

	job, err := h.svc.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, core.TaskStateFinished, job.MapTasks[0].State)
	require.Equal(t, core.JobStatusRunning, job.Status)
	require.Equal(t, core.PollResult{}, h.svc.PollJob(id))
}

func TestScenario_TaskFailureFailsJob(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 3, 2)

	a := h.mustGetTask(t)
	require.Equal(t, 0, a.TaskIndex)

	h.svc.FinishTask(core.TaskReport{JobID: id, TaskIndex: 0, Reduce: false, Success: false, Error: "map panicked"})

	require.Equal(t, core.PollResult{Done: true, Failed: true}, h.svc.PollJob(id))

	// No further task of the failed job is handed out, even after timeouts.
	h.requireWait(t)
	h.clock.Advance(2 * testTimeout)
	h.requireWait(t)

	job, err := h.svc.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, core.JobStatusFailed, job.Status)
	require.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.Failure)
	require.Equal(t, core.TaskTypeMap, job.Failure.TaskType)
	require.Equal(t, "map panicked", job.Failure.Error)
}

func TestFinishTask_FailureIsSticky(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 1, 1)

	h.svc.FinishTask(finish(id, 0, false, false))

	// Reports that would otherwise complete the job are absorbed.
	h.svc.FinishTask(finish(id, 0, false, true))
	h.svc.FinishTask(finish(id, 0, true, true))

	require.Equal(t, core.PollResult{Done: true, Failed: true}, h.svc.PollJob(id))

	job, err := h.svc.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, core.TaskStateIdle, job.MapTasks[0].State)
	require.Equal(t, core.TaskStateIdle, job.ReduceTasks[0].State)
}

func TestFinishTask_DoneIsSticky(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 1, 1)

	h.svc.FinishTask(finish(id, 0, false, true))
	h.svc.FinishTask(finish(id, 0, true, true))
	require.Equal(t, core.PollResult{Done: true}, h.svc.PollJob(id))

	// A late failure report cannot flip a done job.
	h.svc.FinishTask(finish(id, 0, true, false))
	require.Equal(t, core.PollResult{Done: true}, h.svc.PollJob(id))
}

func TestFinishTask_IgnoredReports(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 2, 1)
	h.mustGetTask(t)

	before, err := h.svc.GetJob(id)
	require.NoError(t, err)

	tests := []struct {
		name   string
		report core.TaskReport
	}{
		{name: "unknown job", report: finish(99, 0, false, true)},
		{name: "unknown job failure", report: finish(99, 0, false, false)},
		{name: "map index too large", report: finish(id, 2, false, true)},
		{name: "negative map index", report: finish(id, -1, false, true)},
		{name: "reduce index too large", report: finish(id, 1, true, true)},
		{name: "out of range failure", report: finish(id, 5, true, false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.svc.FinishTask(tt.report)

			after, err := h.svc.GetJob(id)
			require.NoError(t, err)
			require.Equal(t, before, after)
		})
	}
}

func TestFinishTask_CompletesUnclaimedTask(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 2, 1)

	// A report for an idle task is accepted and the task is not handed out.
	h.svc.FinishTask(finish(id, 0, false, true))

	a := h.mustGetTask(t)
	require.Equal(t, 1, a.TaskIndex)
	require.False(t, a.Reduce)
}

func TestGetTask_PhaseBarrier(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 2, 3)

	h.mustGetTask(t)
	h.mustGetTask(t)
	h.svc.FinishTask(finish(id, 0, false, true))

	// Map 1 is still in progress, so no reduce task may be handed out.
	for range 3 {
		h.requireWait(t)
	}

	h.svc.FinishTask(finish(id, 1, false, true))
	a := h.mustGetTask(t)
	require.True(t, a.Reduce)
	require.Equal(t, 0, a.TaskIndex)
}

func TestGetTask_BarrierMovesToNextJob(t *testing.T) {
	h := newTestHarness()
	first := h.mustSubmit(t, 1, 1)
	second := h.mustSubmit(t, 2, 1)

	a := h.mustGetTask(t)
	require.Equal(t, first, a.JobID)

	// The first job is blocked on its map phase; the scan moves on.
	a = h.mustGetTask(t)
	require.Equal(t, second, a.JobID)
	require.Equal(t, 0, a.TaskIndex)

	// Once the first job's map finishes its reduce comes before the second job's map.
	h.svc.FinishTask(finish(first, 0, false, true))
	a = h.mustGetTask(t)
	require.Equal(t, first, a.JobID)
	require.True(t, a.Reduce)
}

func TestGetTask_SkipsFailedJobs(t *testing.T) {
	h := newTestHarness()
	failed := h.mustSubmit(t, 3, 1)
	healthy := h.mustSubmit(t, 1, 1)

	h.svc.FinishTask(finish(failed, 2, false, false))

	a := h.mustGetTask(t)
	require.Equal(t, healthy, a.JobID)
}

func TestGetTask_AssignmentDescriptor(t *testing.T) {
	h := newTestHarness()
	sub := core.JobSubmission{
		App:        "grep",
		InputFiles: []string{"one.txt", "two.txt"},
		NReduce:    4,
		OutputDir:  "/data/out",
		Args:       []byte("needle"),
	}
	id, err := h.svc.SubmitJob(sub)
	require.NoError(t, err)

	a := h.mustGetTask(t)
	require.Equal(t, core.Assignment{
		JobID:     id,
		TaskIndex: 0,
		Reduce:    false,
		InputFile: "one.txt",
		OutputDir: "/data/out",
		App:       "grep",
		NMap:      2,
		NReduce:   4,
		Args:      []byte("needle"),
		Attempt:   1,
	}, *a)

	// The assignment owns its args.
	a.Args[0] = 'N'
	b := h.mustGetTask(t)
	require.Equal(t, []byte("needle"), b.Args)
	require.Equal(t, "two.txt", b.InputFile)
}

func TestGetTask_MarksJobRunning(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 1, 1)

	h.mustGetTask(t)
	claimedAt := h.clock.Now()

	job, err := h.svc.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, core.JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	require.Equal(t, claimedAt, *job.StartedAt)
	require.Equal(t, core.TaskStateInProgress, job.MapTasks[0].State)
	require.Equal(t, claimedAt, job.MapTasks[0].AssignedAt)
}

func TestGetTask_ReclaimsReduceTasks(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 1, 2)

	h.mustGetTask(t)
	h.svc.FinishTask(finish(id, 0, false, true))

	r0 := h.mustGetTask(t)
	require.True(t, r0.Reduce)
	require.Equal(t, 0, r0.TaskIndex)

	h.clock.Advance(testTimeout / 2)
	r1 := h.mustGetTask(t)
	require.Equal(t, 1, r1.TaskIndex)

	// Only reduce 0 has exceeded the timeout.
	h.clock.Advance(testTimeout/2 + time.Second)
	again := h.mustGetTask(t)
	require.True(t, again.Reduce)
	require.Equal(t, 0, again.TaskIndex)
	h.requireWait(t)
}

func TestGetTask_ConcurrentClaimsAreUnique(t *testing.T) {
	h := newTestHarness()
	const numMaps = 200
	id := h.mustSubmit(t, 1, 1)
	sub := submission(1, 1)
	sub.InputFiles = make([]string, numMaps)
	for i := range sub.InputFiles {
		sub.InputFiles[i] = "f"
	}
	big, err := h.svc.SubmitJob(sub)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		claimed = make(map[[2]int]int)
		wg      sync.WaitGroup
	)
	for range 16 {
		wg.Go(func() {
			for {
				a, ok := h.svc.GetTask()
				if !ok {
					return
				}
				mu.Lock()
				claimed[[2]int{a.JobID, a.TaskIndex}]++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	require.Len(t, claimed, numMaps+1)
	for key, count := range claimed {
		require.Equal(t, 1, count, "task %v claimed more than once", key)
	}
	require.Equal(t, 1, claimed[[2]int{id, 0}])
	require.Equal(t, 1, claimed[[2]int{big, numMaps - 1}])
}

func TestFinishTask_ConcurrentCompletionsReachDone(t *testing.T) {
	h := newTestHarness()
	const numTasks = 64
	id := h.mustSubmit(t, numTasks, numTasks)

	finishPhase := func(reduce bool) {
		var wg sync.WaitGroup
		for i := range numTasks {
			wg.Go(func() {
				h.svc.FinishTask(finish(id, i, reduce, true))
			})
		}
		wg.Wait()
	}

	for range numTasks {
		h.mustGetTask(t)
	}
	finishPhase(false)

	for range numTasks {
		a := h.mustGetTask(t)
		require.True(t, a.Reduce)
	}
	finishPhase(true)

	require.Equal(t, core.PollResult{Done: true}, h.svc.PollJob(id))
}

func TestGetJob_NotFound(t *testing.T) {
	h := newTestHarness()

	_, err := h.svc.GetJob(3)
	require.ErrorIs(t, err, core.ErrJobNotFound)
}

func TestGetJob_ReturnsSnapshot(t *testing.T) {
	h := newTestHarness()
	id := h.mustSubmit(t, 1, 1)

	snapshot, err := h.svc.GetJob(id)
	require.NoError(t, err)
	snapshot.MapTasks[0].State = core.TaskStateFinished
	snapshot.Status = core.JobStatusDone

	a := h.mustGetTask(t)
	require.Equal(t, 0, a.TaskIndex)
	require.Equal(t, core.PollResult{}, h.svc.PollJob(id))
}

func TestGetJobs_FilterAndOrder(t *testing.T) {
	h := newTestHarness()
	for range 4 {
		h.mustSubmit(t, 1, 1)
	}
	h.svc.FinishTask(finish(1, 0, false, false))
	h.svc.FinishTask(finish(3, 0, false, false))

	failed := core.JobStatusFailed
	jobs, total, err := h.svc.GetJobs(core.JobFilter{Status: &failed, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, 1, jobs[0].ID)
	require.Equal(t, 3, jobs[1].ID)

	jobs, total, err = h.svc.GetJobs(core.JobFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Len(t, jobs, 2)
	require.Equal(t, 1, jobs[0].ID)
	require.Equal(t, 2, jobs[1].ID)
}

func TestPruneJobs(t *testing.T) {
	h := newTestHarness()
	done := h.mustSubmit(t, 1, 1)
	failed := h.mustSubmit(t, 1, 1)
	running := h.mustSubmit(t, 1, 1)

	h.svc.FinishTask(finish(done, 0, false, true))
	h.svc.FinishTask(finish(done, 0, true, true))
	h.svc.FinishTask(finish(failed, 0, false, false))
	h.mustGetTask(t)

	completedAt := h.clock.Now()

	// Nothing completed strictly before the threshold yet.
	require.Equal(t, 0, h.svc.PruneJobs(completedAt))

	h.clock.Advance(time.Hour)
	require.Equal(t, 2, h.svc.PruneJobs(h.clock.Now()))

	require.True(t, h.svc.PollJob(done).InvalidJobID)
	require.True(t, h.svc.PollJob(failed).InvalidJobID)
	require.False(t, h.svc.PollJob(running).InvalidJobID)

	// Reports for pruned jobs are ignored and ids are not reused.
	h.svc.FinishTask(finish(done, 0, true, true))
	require.Equal(t, 3, h.mustSubmit(t, 1, 1))
}

// Timeouts compare against AssignedAt, so the default clock must keep the
// monotonic reading that wall clock steps cannot disturb.
func TestNewJobService_DefaultClockIsMonotonic(t *testing.T) {
	svc := NewJobService(
		storage.NewInMemoryJobStore(),
		mockApps{},
		&mockDirs{},
		testTimeout,
		&mockLogger{},
	).(*jobService)

	require.Contains(t, svc.now().String(), " m=")
}
