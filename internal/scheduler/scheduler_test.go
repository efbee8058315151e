package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	failures int32 // fail this many times before succeeding
	calls    int32
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= atomic.LoadInt32(&j.failures) {
		return errors.New("transient")
	}
	return nil
}

func testOptions() Options {
	return Options{MaxRetries: 2, RetryDelay: time.Millisecond, Location: time.UTC}
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(testOptions(), logger.Nop())

	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "30 16 * * 5"}))
	assert.Error(t, s.AddJob(&stubJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&stubJob{name: "b", schedule: "not a cron"}))
	assert.Equal(t, []string{"a"}, s.Jobs())
}

func TestScheduler_RunRetries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		wantSuccess  bool
		wantAttempts int
	}{
		{"first try", 0, true, 1},
		{"after retry", 2, true, 3},
		{"exhausted", 5, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testOptions(), logger.Nop())
			job := &stubJob{name: "refresh", schedule: "@daily", failures: tt.failures}
			require.NoError(t, s.AddJob(job))

			result := s.Run(job)
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantAttempts, result.Attempts)

			h, err := s.History("refresh")
			require.NoError(t, err)
			require.Len(t, h.Results, 1)

			stats := s.Stats()["refresh"]
			assert.Equal(t, 1, stats.TotalRuns)
			assert.NotNil(t, stats.LastRun)
		})
	}
}

func TestScheduler_StopCancelsRetries(t *testing.T) {
	opts := testOptions()
	opts.RetryDelay = time.Hour
	s := New(opts, logger.Nop())
	job := &stubJob{name: "slow", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	done := make(chan JobResult)
	go func() { done <- s.Run(job) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&job.calls) >= 1 }, time.Second, time.Millisecond)
	s.Stop()

	select {
	case r := <-done:
		assert.False(t, r.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestJobHistory_Limit(t *testing.T) {
	var h JobHistory
	for i := 0; i < historyLimit+10; i++ {
		h.add(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}
