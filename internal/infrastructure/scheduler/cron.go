package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PipelineDash/internal/ports"
)

// CronTicker fires a job on a cron schedule, "@every 1s" for the dashboard countdown.
type CronTicker struct {
	spec string

	mu   sync.Mutex
	cron *cron.Cron
	stop chan struct{}
}

var _ ports.Ticker = (*CronTicker)(nil)

// NewCronTicker builds a ticker for the given cron expression.
func NewCronTicker(spec string) *CronTicker {
	return &CronTicker{spec: spec}
}

// Every builds a ticker firing at a fixed interval.
func Every(interval time.Duration) *CronTicker {
	return NewCronTicker("@every " + interval.String())
}

// Start registers job and begins ticking. Starting twice is a no-op.
func (c *CronTicker) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := runner.AddFunc(c.spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", c.spec, err)
	}
	runner.Start()
	c.cron = runner
	c.stop = make(chan struct{})

	go func(stop <-chan struct{}) {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-stop:
		}
	}(c.stop)

	return nil
}

// Stop halts the schedule and waits for a running job to return.
func (c *CronTicker) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner, stop := c.cron, c.stop
	c.cron, c.stop = nil, nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}
	close(stop)

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
