package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineDash/internal/domain"
)

const (
	timeoutShort = time.Second
	tickShort    = 5 * time.Millisecond
)

type recordingSink struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
	countdown []int
	logs      []domain.ActivityLogEntry
	states    []string
}

func (r *recordingSink) PublishSnapshot(s domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingSink) PublishCountdown(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countdown = append(r.countdown, n)
}

func (r *recordingSink) PublishLog(e domain.ActivityLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, e)
}

func (r *recordingSink) PublishCommandState(name string, state domain.CommandState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, name+":"+string(state))
}

func (r *recordingSink) snapshotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestDashboardLifecycle(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	driver := &fakeTicker{}
	timers := &manualTimers{}
	invoker := &fakeInvoker{result: domain.InvokeResult{Result: domain.FunctionResult{Message: "ok"}}}

	d := NewDashboard(DashboardDeps{
		Store:         seededStore(),
		Invoker:       invoker,
		Ticker:        driver,
		Sink:          MultiSink{sink, NopSink{}},
		Now:           fixedNow,
		RefreshPeriod: 2,
		AfterFunc:     timers.after,
	})

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, 1, sink.snapshotCount(), "first pass runs before the countdown")
	assert.Equal(t, 3, d.Snapshot().Overview.TotalCards)
	assert.Len(t, d.Commands(), 6)

	driver.fire()
	driver.fire()
	require.Eventually(t, func() bool { return sink.snapshotCount() == 2 }, timeoutShort, tickShort)

	_, err := d.Trigger(context.Background(), "discovery-feed")
	require.NoError(t, err)
	assert.Equal(t, domain.CommandSuccess, d.CommandStates()["discovery-feed"])

	timers.fireAll()
	assert.Equal(t, 3, sink.snapshotCount(), "success refreshes once")
	assert.Equal(t, domain.CommandIdle, d.CommandStates()["discovery-feed"])

	sink.mu.Lock()
	assert.Equal(t, []int{1, 0}, sink.countdown)
	assert.Equal(t, len(d.Logs()), len(sink.logs), "every console line is published")
	assert.Equal(t, []string{"discovery-feed:running", "discovery-feed:success", "discovery-feed:idle"}, sink.states)
	sink.mu.Unlock()

	summary := d.ExportSummary()
	assert.Equal(t, 3, summary.Overview.TotalCards)
	full := d.ExportFull(context.Background())
	assert.Len(t, full.FullData.Sources, 4)

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 1, driver.stopped)

	_, err = d.Trigger(context.Background(), "discovery-feed")
	require.ErrorIs(t, err, ErrMonitorClosed)
	invoker.mu.Lock()
	assert.Len(t, invoker.calls, 1, "no invocation after stop")
	invoker.mu.Unlock()
}
