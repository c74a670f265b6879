package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	mu      sync.Mutex
	job     func(time.Time)
	started int
	stopped int
	err     error
}

func (f *fakeTicker) Start(_ context.Context, job func(time.Time)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.job = job
	f.started++
	return nil
}

func (f *fakeTicker) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job = nil
	f.stopped++
	return nil
}

func (f *fakeTicker) fire() {
	f.mu.Lock()
	job := f.job
	f.mu.Unlock()
	if job != nil {
		job(testNow)
	}
}

func TestRefreshSchedulerCountdown(t *testing.T) {
	t.Parallel()

	var (
		published []int
		passes    int
	)
	s := NewRefreshScheduler(nil, 3, func(context.Context) { passes++ }, func(n int) { published = append(published, n) })
	s.spawn = func(f func()) { f() }

	for range 7 {
		s.Tick(context.Background())
	}

	assert.Equal(t, []int{2, 1, 0, 2, 1, 0, 2}, published)
	assert.Equal(t, 2, passes)
	assert.Equal(t, 2, s.Countdown())
}

func TestRefreshSchedulerDefaultPeriod(t *testing.T) {
	t.Parallel()

	s := NewRefreshScheduler(nil, 0, func(context.Context) {}, nil)
	assert.Equal(t, DefaultRefreshPeriod, s.Countdown())
}

func TestRefreshSchedulerTickDoesNotWaitForPass(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	done := make(chan struct{}, 2)
	s := NewRefreshScheduler(nil, 1, func(context.Context) {
		<-release
		done <- struct{}{}
	}, nil)

	s.Tick(context.Background())
	s.Tick(context.Background())
	assert.Equal(t, 1, s.Countdown())

	close(release)
	for range 2 {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("refresh pass never ran")
		}
	}
}

func TestRefreshSchedulerDriver(t *testing.T) {
	t.Parallel()

	driver := &fakeTicker{}
	var passes int
	s := NewRefreshScheduler(driver, 2, func(context.Context) { passes++ }, nil)
	s.spawn = func(f func()) { f() }

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, driver.started, "second start is a no-op")

	driver.fire()
	driver.fire()
	assert.Equal(t, 1, passes)

	require.NoError(t, s.Stop(context.Background()))
	driver.fire()
	assert.Equal(t, 1, passes, "no pass after stop")
	assert.Equal(t, 1, driver.stopped)
}

func TestRefreshSchedulerStartError(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad spec")
	driver := &fakeTicker{err: boom}
	s := NewRefreshScheduler(driver, 2, func(context.Context) {}, nil)

	require.ErrorIs(t, s.Start(context.Background()), boom)

	driver.err = nil
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, driver.started)
}

func TestRefreshSchedulerStopWaitsForRunningPass(t *testing.T) {
	t.Parallel()

	driver := &fakeTicker{}
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	s := NewRefreshScheduler(driver, 1, func(context.Context) {
		close(entered)
		<-release
		finished.Store(true)
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	driver.fire()
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("stop returned while a pass was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stop never returned")
	}
	assert.True(t, finished.Load())

	s.Tick(context.Background())
	assert.Equal(t, 1, s.Countdown(), "ticks after stop are ignored")
}
