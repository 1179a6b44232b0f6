package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/foliosim/pkg/logger"
)

type tickJob struct {
	runs atomic.Int64
	err  error
}

func (j *tickJob) Run() error   { j.runs.Add(1); return j.err }
func (j *tickJob) Name() string { return "tick" }

func TestRunNow(t *testing.T) {
	s := New(logger.New(logger.Config{Level: "error"}))
	job := &tickJob{}

	assert.NoError(t, s.RunNow(job))
	assert.EqualValues(t, 1, job.runs.Load())
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.New(logger.Config{Level: "error"}))
	assert.Error(t, s.AddJob("not a schedule", &tickJob{}))
	assert.NoError(t, s.AddJob("@every 1h", &tickJob{}))
}

func TestSchedulerRunsJob(t *testing.T) {
	s := New(logger.New(logger.Config{Level: "error"}))
	job := &tickJob{}
	assert.NoError(t, s.AddJob("@every 100ms", job))

	s.Start()
	time.Sleep(350 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, job.runs.Load(), int64(2))
}

type closedClock struct{}

func (closedClock) IsActionTime(string, time.Time) bool { return false }

func TestRebalanceJobSkipsWhenClockGates(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	// nil runner is safe: the clock gate returns before RunOnce.
	job := NewRebalanceJob(nil, closedClock{}, "NYSE", log)

	assert.NoError(t, job.Run())
}
