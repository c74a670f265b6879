package usecase

import (
	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

// MultiSink fans every event out to each sink in order.
type MultiSink []ports.Sink

var _ ports.Sink = MultiSink(nil)

func (m MultiSink) PublishSnapshot(s domain.Snapshot) {
	for _, sink := range m {
		sink.PublishSnapshot(s)
	}
}

func (m MultiSink) PublishCountdown(remaining int) {
	for _, sink := range m {
		sink.PublishCountdown(remaining)
	}
}

func (m MultiSink) PublishLog(e domain.ActivityLogEntry) {
	for _, sink := range m {
		sink.PublishLog(e)
	}
}

func (m MultiSink) PublishCommandState(name string, state domain.CommandState) {
	for _, sink := range m {
		sink.PublishCommandState(name, state)
	}
}

// NopSink drops every event.
type NopSink struct{}

var _ ports.Sink = NopSink{}

func (NopSink) PublishSnapshot(domain.Snapshot) {}
func (NopSink) PublishCountdown(int) {}
func (NopSink) PublishLog(domain.ActivityLogEntry) {}
func (NopSink) PublishCommandState(string, domain.CommandState) {}
