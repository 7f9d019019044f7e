package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"augur/pkg/errors"
)

type stubWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newStubWorker(name string, interval time.Duration, enabled bool) *stubWorker {
	return &stubWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
	}
}

func (w *stubWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&w.runCount, 1)
	if w.runFunc != nil {
		return w.runFunc(ctx)
	}
	return nil
}

func (w *stubWorker) runs() int {
	return int(atomic.LoadInt32(&w.runCount))
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler := NewScheduler()
	worker := newStubWorker("evaluation-stub", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(250 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// Immediate first run plus at least one tick.
	assert.GreaterOrEqual(t, worker.runs(), 2)
}

func TestSchedulerContextCancellation(t *testing.T) {
	scheduler := NewScheduler()
	worker := newStubWorker("evaluation-stub", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))

	cancel()
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
}

func TestSchedulerSkipsDisabledWorkers(t *testing.T) {
	scheduler := NewScheduler()
	enabled := newStubWorker("verification-stub", 100*time.Millisecond, true)
	disabled := newStubWorker("retraining-stub", 100*time.Millisecond, false)
	scheduler.RegisterWorker(enabled)
	scheduler.RegisterWorker(disabled)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Greater(t, enabled.runs(), 0)
	assert.Zero(t, disabled.runs())
}

func TestSchedulerCannotStartTwice(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newStubWorker("evaluation-stub", 100*time.Millisecond, true))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Error(t, scheduler.Start(context.Background()))
	scheduler.Stop()
}

func TestSchedulerSurvivesWorkerErrorsAndPanics(t *testing.T) {
	scheduler := NewScheduler()

	failing := newStubWorker("failing-stub", 80*time.Millisecond, true)
	failing.runFunc = func(context.Context) error {
		return errors.New("evaluation backend down")
	}
	panicking := newStubWorker("panicking-stub", 80*time.Millisecond, true)
	panicking.runFunc = func(context.Context) error {
		panic("boom")
	}

	scheduler.RegisterWorker(failing)
	scheduler.RegisterWorker(panicking)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	// Both keep getting rescheduled despite every run failing.
	assert.GreaterOrEqual(t, failing.runs(), 2)
	assert.GreaterOrEqual(t, panicking.runs(), 2)
}

func TestSchedulerGetWorkers(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newStubWorker("evaluation-stub", 100*time.Millisecond, true))
	scheduler.RegisterWorker(newStubWorker("verification-stub", 200*time.Millisecond, false))

	registered := scheduler.GetWorkers()
	require.Len(t, registered, 2)
	assert.Equal(t, "evaluation-stub", registered[0].Name())
	assert.Equal(t, "verification-stub", registered[1].Name())
}

func TestBaseWorkerHealthTracking(t *testing.T) {
	w := NewBaseWorker("health-stub", time.Minute, true)

	w.RecordRun(50 * time.Millisecond)
	health := w.Health()
	assert.EqualValues(t, 1, health.RunCount)
	assert.Zero(t, health.ErrorCount)
	assert.NoError(t, health.LastError)

	w.RecordError(errors.New("transient"), 10*time.Millisecond)
	health = w.Health()
	assert.EqualValues(t, 2, health.RunCount)
	assert.EqualValues(t, 1, health.ErrorCount)
	require.EqualError(t, health.LastError, "transient")

	// A clean run clears the sticky error.
	w.RecordRun(20 * time.Millisecond)
	assert.NoError(t, w.Health().LastError)
}
