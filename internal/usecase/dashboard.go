package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"PipelineDash/internal/activitylog"
	"PipelineDash/internal/commands"
	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

// DashboardDeps wires one dashboard session.
type DashboardDeps struct {
	Store    ports.Store
	Invoker  ports.FunctionInvoker
	Ticker   ports.Ticker
	Registry *commands.Registry
	Sink     ports.Sink
	Logger   *slog.Logger
	Now      func() time.Time

	RefreshPeriod int
	LogCapacity   int
	SuccessDelay  time.Duration
	FailureDelay  time.Duration
	AfterFunc     func(time.Duration, func())
}

// Dashboard owns the refresh loop, the command monitor and the activity log
// of a single operator session.
type Dashboard struct {
	aggregator *Aggregator
	scheduler  *RefreshScheduler
	monitor    *CommandMonitor
	exporter   *Exporter
	log        *activitylog.Ring
	registry   *commands.Registry
	sink       ports.Sink
	logger     *slog.Logger

	refreshMu sync.Mutex
}

// NewDashboard assembles the session components.
func NewDashboard(deps DashboardDeps) *Dashboard {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sink := deps.Sink
	if sink == nil {
		sink = NopSink{}
	}
	registry := deps.Registry
	if registry == nil {
		registry = commands.Defaults()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	d := &Dashboard{
		registry: registry,
		sink:     sink,
		logger:   logger,
	}

	d.log = activitylog.New(deps.LogCapacity,
		activitylog.WithClock(now),
		activitylog.WithNotify(sink.PublishLog),
	)
	d.aggregator = NewAggregator(AggregatorDeps{
		Store:    deps.Store,
		Registry: registry,
		Logger:   logger.With("component", "aggregator"),
		Now:      now,
	})
	pass := func(ctx context.Context) { d.refresh(ctx) }
	d.scheduler = NewRefreshScheduler(deps.Ticker, deps.RefreshPeriod, pass, sink.PublishCountdown)
	d.monitor = NewCommandMonitor(MonitorDeps{
		Invoker:      deps.Invoker,
		Store:        deps.Store,
		Registry:     registry,
		Log:          d.log,
		Refresh:      pass,
		Publish:      sink.PublishCommandState,
		Logger:       logger.With("component", "commands"),
		Now:          now,
		AfterFunc:    deps.AfterFunc,
		SuccessDelay: deps.SuccessDelay,
		FailureDelay: deps.FailureDelay,
	})
	d.exporter = NewExporter(deps.Store, d.aggregator.Latest, logger.With("component", "exporter"), now)

	return d
}

// Start loads the first snapshot and then begins the countdown.
func (d *Dashboard) Start(ctx context.Context) error {
	d.refresh(ctx)
	if err := d.scheduler.Start(ctx); err != nil {
		return err
	}
	d.logger.Info("dashboard started", "refresh_period", d.scheduler.period)
	return nil
}

// Stop halts the countdown, waits for the passes it launched, then refuses
// new triggers and waits for the pending ones and their reverts.
func (d *Dashboard) Stop(ctx context.Context) error {
	err := d.scheduler.Stop(ctx)
	d.monitor.Close()
	return err
}

// Refresh runs one aggregation pass immediately.
func (d *Dashboard) Refresh(ctx context.Context) domain.Snapshot {
	return d.refresh(ctx)
}

// refresh serializes passes so a slow pass cannot overwrite a newer one.
func (d *Dashboard) refresh(ctx context.Context) domain.Snapshot {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	started := time.Now()
	snap := d.aggregator.Refresh(ctx)
	d.logger.Debug("refresh pass complete", "duration", time.Since(started))
	d.sink.PublishSnapshot(snap)
	return snap
}

// Snapshot returns the latest computed state.
func (d *Dashboard) Snapshot() domain.Snapshot {
	return d.aggregator.Latest()
}

// Trigger invokes a remote function by name.
func (d *Dashboard) Trigger(ctx context.Context, name string) (domain.InvokeResult, error) {
	return d.monitor.Trigger(ctx, name)
}

// Logs returns the activity console, oldest first.
func (d *Dashboard) Logs() []domain.ActivityLogEntry {
	return d.log.Entries()
}

// CommandStates reports the state of every registered command.
func (d *Dashboard) CommandStates() map[string]domain.CommandState {
	return d.monitor.States()
}

// Commands lists the registered command names.
func (d *Dashboard) Commands() []string {
	return d.registry.Names()
}

// Countdown reports ticks left until the next refresh.
func (d *Dashboard) Countdown() int {
	return d.scheduler.Countdown()
}

// ExportSummary returns the latest numbers without querying.
func (d *Dashboard) ExportSummary() Summary {
	return d.exporter.Summary()
}

// ExportFull returns the summary plus a bounded raw sample.
func (d *Dashboard) ExportFull(ctx context.Context) FullExport {
	return d.exporter.Full(ctx)
}

// Wait blocks until every scheduled command revert has fired.
func (d *Dashboard) Wait() {
	d.monitor.Wait()
}
