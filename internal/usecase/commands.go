package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"PipelineDash/internal/activitylog"
	"PipelineDash/internal/commands"
	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

var (
	// ErrAlreadyRunning rejects a trigger while the same command is in flight.
	ErrAlreadyRunning = errors.New("command already running")
	// ErrMonitorClosed rejects triggers after the session stopped.
	ErrMonitorClosed = errors.New("command monitor closed")
)

const (
	// DefaultSuccessDelay is how long a command shows success before the
	// dashboard refreshes and the command returns to idle.
	DefaultSuccessDelay = 2 * time.Second
	// DefaultFailureDelay is how long a command shows failure.
	DefaultFailureDelay = 3 * time.Second

	maxDetailLines = 20
	maxResultLogs  = 50
	watchRowLimit  = 10
)

// MonitorDeps wires the command monitor.
type MonitorDeps struct {
	Invoker      ports.FunctionInvoker
	Store        ports.Store
	Registry     *commands.Registry
	Log          *activitylog.Ring
	Refresh      func(context.Context)
	Publish      func(name string, state domain.CommandState)
	Logger       *slog.Logger
	Now          func() time.Time
	AfterFunc    func(time.Duration, func())
	SuccessDelay time.Duration
	FailureDelay time.Duration
}

type commandSlot struct {
	state      domain.CommandState
	generation uint64
}

// CommandMonitor triggers remote functions and reports their effects.
//
// Each command moves idle -> running -> success|failed -> idle. The revert
// to idle is timed; a newer invocation of the same command supersedes a
// pending revert.
type CommandMonitor struct {
	invoker      ports.FunctionInvoker
	store        ports.Store
	registry     *commands.Registry
	log          *activitylog.Ring
	refresh      func(context.Context)
	publish      func(string, domain.CommandState)
	logger       *slog.Logger
	now          func() time.Time
	afterFunc    func(time.Duration, func())
	successDelay time.Duration
	failureDelay time.Duration

	mu      sync.Mutex
	slots   map[string]*commandSlot
	closed  bool
	pending sync.WaitGroup
}

// NewCommandMonitor constructs the monitor.
func NewCommandMonitor(deps MonitorDeps) *CommandMonitor {
	m := &CommandMonitor{
		invoker:      deps.Invoker,
		store:        deps.Store,
		registry:     deps.Registry,
		log:          deps.Log,
		refresh:      deps.Refresh,
		publish:      deps.Publish,
		logger:       deps.Logger,
		now:          deps.Now,
		afterFunc:    deps.AfterFunc,
		successDelay: deps.SuccessDelay,
		failureDelay: deps.FailureDelay,
		slots:        map[string]*commandSlot{},
	}
	if m.registry == nil {
		m.registry = commands.NewRegistry()
	}
	if m.log == nil {
		m.log = activitylog.New(activitylog.DefaultCapacity)
	}
	if m.refresh == nil {
		m.refresh = func(context.Context) {}
	}
	if m.publish == nil {
		m.publish = func(string, domain.CommandState) {}
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.afterFunc == nil {
		m.afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if m.successDelay <= 0 {
		m.successDelay = DefaultSuccessDelay
	}
	if m.failureDelay <= 0 {
		m.failureDelay = DefaultFailureDelay
	}
	return m
}

// State reports the current state of a command.
func (m *CommandMonitor) State(name string) domain.CommandState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot, ok := m.slots[name]; ok {
		return slot.state
	}
	return domain.CommandIdle
}

// States reports every registered command's state.
func (m *CommandMonitor) States() map[string]domain.CommandState {
	out := map[string]domain.CommandState{}
	for _, name := range m.registry.Names() {
		out[name] = m.State(name)
	}
	return out
}

// Wait blocks until every in-flight trigger has returned and every
// scheduled revert has fired.
func (m *CommandMonitor) Wait() {
	m.pending.Wait()
}

// Close refuses new triggers and waits for the pending ones.
func (m *CommandMonitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.pending.Wait()
}

// Trigger invokes the named command and streams what happened into the
// activity log. The returned error reports an invocation failure; change
// monitoring problems never fail a trigger.
func (m *CommandMonitor) Trigger(ctx context.Context, name string) (domain.InvokeResult, error) {
	def, err := m.registry.Resolve(name)
	if err != nil {
		return domain.InvokeResult{}, err
	}
	if m.invoker == nil {
		return domain.InvokeResult{}, fmt.Errorf("trigger %s: no function invoker configured", name)
	}

	gen, err := m.begin(name)
	if err != nil {
		return domain.InvokeResult{}, fmt.Errorf("trigger %s: %w", name, err)
	}
	defer m.pending.Done()

	logger := m.logger.With("command", name, "invocation_id", uuid.NewString())
	started := m.now()
	m.log.Info(fmt.Sprintf("→ Triggering %s...", name))
	logger.Info("invoking function")

	res, err := m.invoker.Invoke(ctx, name)
	if err != nil {
		m.log.Error(fmt.Sprintf("✗ %s failed", name))
		m.log.Error("  " + err.Error())
		logger.Warn("function invocation failed", "error", err)

		m.transition(name, gen, domain.CommandFailed)
		m.schedule(m.failureDelay, func() {
			m.transition(name, gen, domain.CommandIdle)
		})
		return domain.InvokeResult{}, fmt.Errorf("trigger %s: %w", name, err)
	}

	m.log.Success(fmt.Sprintf("✓ %s completed in %dms", name, res.Duration.Milliseconds()))
	logger.Info("function completed", "duration_ms", res.Duration.Milliseconds())
	m.summarize(res.Result)
	m.watch(ctx, def, started, logger)

	m.transition(name, gen, domain.CommandSuccess)
	refreshCtx := context.WithoutCancel(ctx)
	m.schedule(m.successDelay, func() {
		m.log.Info("→ Refreshing dashboard data...")
		m.refresh(refreshCtx)
		m.log.Success("✓ Dashboard refreshed")
		m.transition(name, gen, domain.CommandIdle)
	})

	return res, nil
}

// begin claims the slot and counts the trigger as pending. The count is
// taken under mu so it never races a Close.
func (m *CommandMonitor) begin(name string) (uint64, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrMonitorClosed
	}
	slot, ok := m.slots[name]
	if !ok {
		slot = &commandSlot{state: domain.CommandIdle}
		m.slots[name] = slot
	}
	if slot.state == domain.CommandRunning {
		m.mu.Unlock()
		return 0, ErrAlreadyRunning
	}
	slot.state = domain.CommandRunning
	slot.generation++
	gen := slot.generation
	m.pending.Add(1)
	m.mu.Unlock()

	m.publish(name, domain.CommandRunning)
	return gen, nil
}

// transition applies state unless a newer invocation owns the slot.
func (m *CommandMonitor) transition(name string, gen uint64, state domain.CommandState) {
	m.mu.Lock()
	slot := m.slots[name]
	if slot == nil || slot.generation != gen {
		m.mu.Unlock()
		return
	}
	slot.state = state
	m.mu.Unlock()

	m.publish(name, state)
}

// schedule runs while the calling trigger is still pending, so the counter
// is never zero here.
func (m *CommandMonitor) schedule(delay time.Duration, fn func()) {
	m.pending.Add(1)
	m.afterFunc(delay, func() {
		defer m.pending.Done()
		fn()
	})
}

// summarize logs every recognized field of a function result.
func (m *CommandMonitor) summarize(r domain.FunctionResult) {
	if r.Message != "" {
		m.log.Info("  " + r.Message)
	}
	if r.Scraped != nil {
		m.log.Info(fmt.Sprintf("  Scraped %d items", *r.Scraped))
	}
	if r.Processed != nil {
		m.log.Info(fmt.Sprintf("  Processed %d items", *r.Processed))
	}
	if r.Created != nil {
		m.log.Success(fmt.Sprintf("  Created %d cards", *r.Created))
	}
	if r.Rejected != nil {
		m.log.Warning(fmt.Sprintf("  Rejected %d items", *r.Rejected))
	}
	if r.Errors != nil {
		m.log.Error(fmt.Sprintf("  Errors: %d", *r.Errors))
	}

	for i, detail := range r.Details {
		if i == maxDetailLines {
			m.log.Info(fmt.Sprintf("  … %d more", len(r.Details)-maxDetailLines))
			break
		}
		m.log.Info("  • " + detail)
	}

	for i, line := range r.Logs {
		if i == maxResultLogs {
			m.log.Info(fmt.Sprintf("  … %d more log lines", len(r.Logs)-maxResultLogs))
			break
		}
		m.log.Add("  "+line.Message, domain.SeverityFromLevel(line.Level))
	}
}

// watch reports rows the command created since it started.
func (m *CommandMonitor) watch(ctx context.Context, def commands.Definition, since time.Time, logger *slog.Logger) {
	if def.Watch == nil || m.store == nil {
		return
	}

	rows, err := m.store.Select(ctx, domain.Query{
		Table:   def.Watch.Table,
		Filters: []domain.Filter{domain.Gte(def.Watch.Field, since)},
		Order:   []domain.Order{{Column: def.Watch.Field, Descending: true}},
		Limit:   watchRowLimit,
	})
	if err != nil {
		logger.Debug("change monitoring failed", "table", def.Watch.Table, "error", err)
		return
	}

	describe := def.Watch.Describe
	if describe == nil {
		describe = commands.DescribeTitle("Changed", "Row", domain.SeverityInfo)
	}
	for _, r := range rows {
		msg, severity := describe(r)
		m.log.Add(msg, severity)
	}
}
