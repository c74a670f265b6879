package usecase

import (
	"context"
	"sync"
	"time"

	"PipelineDash/internal/ports"
)

// DefaultRefreshPeriod is the countdown length in ticks.
const DefaultRefreshPeriod = 30

// RefreshScheduler counts down once per tick and launches a refresh pass
// each time the countdown reaches zero. Ticks never wait for the pass.
type RefreshScheduler struct {
	driver  ports.Ticker
	refresh func(context.Context)
	publish func(int)
	spawn   func(func())
	period  int

	mu        sync.Mutex
	countdown int
	running   bool
	stopped   bool
	passes    sync.WaitGroup
}

// NewRefreshScheduler wires a tick driver with the refresh job.
func NewRefreshScheduler(driver ports.Ticker, period int, refresh func(context.Context), publish func(int)) *RefreshScheduler {
	if period <= 0 {
		period = DefaultRefreshPeriod
	}
	if publish == nil {
		publish = func(int) {}
	}
	return &RefreshScheduler{
		driver:    driver,
		refresh:   refresh,
		publish:   publish,
		spawn:     func(f func()) { go f() },
		period:    period,
		countdown: period,
	}
}

// Start registers the tick with the driver.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.refresh == nil {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopped = false
	s.countdown = s.period
	s.mu.Unlock()

	job := func(time.Time) {
		s.Tick(ctx)
	}

	if err := s.driver.Start(ctx, job); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}
	return nil
}

// Stop tears down the tick and waits for passes already launched. Ticks
// after Stop are ignored until the next Start.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	var err error
	if s.driver != nil {
		err = s.driver.Stop(ctx)
	}
	s.passes.Wait()
	return err
}

// Tick advances the countdown by one.
func (s *RefreshScheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.countdown--
	remaining := s.countdown
	fire := remaining <= 0 && s.refresh != nil
	if remaining <= 0 {
		s.countdown = s.period
	}
	if fire {
		s.passes.Add(1)
	}
	s.mu.Unlock()

	s.publish(remaining)
	if fire {
		s.spawn(func() {
			defer s.passes.Done()
			s.refresh(ctx)
		})
	}
}

// Countdown reports the ticks left before the next pass.
func (s *RefreshScheduler) Countdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown
}
