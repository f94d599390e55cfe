package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan1090/market-risk-os/pkg/config"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error"})
}

// stubJob is a controllable job: errs holds the error returned per call
// (nil beyond the slice), block makes Run wait until the channel closes.
type stubJob struct {
	name     string
	schedule string
	errs     []error
	block    chan struct{}

	mu    sync.Mutex
	calls int
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	j.mu.Lock()
	call := j.calls
	j.calls++
	j.mu.Unlock()

	if j.block != nil {
		<-j.block
	}

	if call < len(j.errs) {
		return j.errs[call]
	}
	return nil
}

func (j *stubJob) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func newTestScheduler() *Scheduler {
	return New(testLogger()).WithRetryPolicy(2, 5*time.Millisecond)
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "sweep", schedule: "0 */5 * * * *"}

	require.NoError(t, s.AddJob(job))
	assert.Equal(t, []string{"sweep"}, s.GetAllJobs())

	err := s.AddJob(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "bad", schedule: "not a cron expression"}

	err := s.AddJob(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule")
	assert.Empty(t, s.GetAllJobs())
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "temp", schedule: "@hourly"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RemoveJob("temp"))
	require.Error(t, s.RemoveJob("temp"))
	assert.Empty(t, s.GetAllJobs())

	// History outlives the job, stats no longer list it
	_, err := s.GetJobHistory("temp")
	require.NoError(t, err)
	assert.Empty(t, s.GetJobStats())
}

func TestScheduler_RunJobByName(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "manual", schedule: "@hourly"}
	require.NoError(t, s.AddJob(job))

	require.Error(t, s.RunJob("missing"))
	require.NoError(t, s.RunJob("manual"))

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.history["manual"].Results) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.mu.RLock()
	result := s.history["manual"].Results[0]
	s.mu.RUnlock()

	assert.Equal(t, "manual", result.JobName)
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
}

func TestScheduler_RetriesUntilSuccess(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("transient failure")
	job := &stubJob{name: "flaky", schedule: "@hourly", errs: []error{boom, boom}}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	assert.Equal(t, 3, job.callCount())

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Empty(t, history.Results[0].Error)
}

func TestScheduler_RecordsFailureWhenRetriesExhausted(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("permanent failure")
	job := &stubJob{name: "broken", schedule: "@hourly", errs: []error{boom, boom, boom}}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	// maxRetries 2 means three attempts in total
	assert.Equal(t, 3, job.callCount())

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.Equal(t, "permanent failure", history.Results[0].Error)
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	s := newTestScheduler()
	block := make(chan struct{})
	job := &stubJob{name: "blocked", schedule: "@hourly", block: block}
	require.NoError(t, s.AddJob(job))

	done := make(chan struct{})
	go func() {
		s.runJob(job)
		close(done)
	}()

	// Once Run has been entered the running flag is already set and cannot
	// clear while the job blocks, so the second tick is guaranteed to skip.
	require.Eventually(t, func() bool {
		return job.callCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The overlapping tick returns without touching the job
	s.runJob(job)
	assert.Equal(t, 1, job.callCount())

	close(block)
	<-done

	history, err := s.GetJobHistory("blocked")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 1, job.callCount())
}

func TestScheduler_StartRunsScheduledJobs(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "ticker", schedule: "@every 20ms"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return job.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_GetJobStats(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("fails once")
	job := &stubJob{name: "tracked", schedule: "0 */5 * * * *", errs: []error{boom}}
	require.NoError(t, s.AddJob(job))

	// Fails on the first attempt, succeeds on the retry
	s.runJob(job)

	stats := s.GetJobStats()
	require.Contains(t, stats, "tracked")

	st := stats["tracked"]
	assert.Equal(t, "tracked", st.JobName)
	assert.Equal(t, "0 */5 * * * *", st.Schedule)
	assert.Equal(t, 1, st.TotalRuns)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Equal(t, 0, st.FailureCount)
	assert.Equal(t, 1.0, st.SuccessRate)
	require.NotNil(t, st.LastRun)
	require.NotNil(t, st.LastSuccess)
	assert.Nil(t, st.LastFailure)
}

func TestJobHistory_TrimsToLastHundred(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "bulk", Success: true})
	}
	assert.Len(t, h.Results, 100)
}

func TestJobHistory_GetLatestResults(t *testing.T) {
	h := &JobHistory{}
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < 10; i++ {
		h.AddResult(JobResult{JobName: "seq", StartTime: time.Date(2026, 5, 1, 14, i, 0, 0, time.UTC)})
	}

	latest := h.GetLatestResults(3)
	require.Len(t, latest, 3)
	assert.Equal(t, 7, latest[0].StartTime.Minute())
	assert.Equal(t, 9, latest[2].StartTime.Minute())

	assert.Len(t, h.GetLatestResults(50), 10)
}

func TestJobHistory_SuccessRateAndFailures(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())

	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false, Error: "boom"})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})

	assert.InDelta(t, 0.75, h.GetSuccessRate(), 1e-9)

	failed := h.GetFailedResults()
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)
}
