// Package activitylog keeps the operator console: a bounded, append-only
// feed where the oldest line is evicted first.
package activitylog

import (
	"sync"
	"time"

	"PipelineDash/internal/domain"
)

// DefaultCapacity is the number of lines the console retains.
const DefaultCapacity = 50

// Ring is a fixed-capacity log buffer safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	entries []domain.ActivityLogEntry
	start   int
	size    int
	now     func() time.Time
	notify  func(domain.ActivityLogEntry)
}

// Option customizes a Ring.
type Option func(*Ring)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Ring) { r.now = now }
}

// WithNotify registers a callback invoked for every appended entry.
func WithNotify(fn func(domain.ActivityLogEntry)) Option {
	return func(r *Ring) { r.notify = fn }
}

// New creates a ring retaining at most capacity entries.
func New(capacity int, opts ...Option) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Ring{
		entries: make([]domain.ActivityLogEntry, capacity),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends a message stamped with the current time.
func (r *Ring) Add(message string, severity domain.Severity) domain.ActivityLogEntry {
	entry := domain.ActivityLogEntry{
		Timestamp: r.now(),
		Message:   message,
		Severity:  severity,
	}

	r.mu.Lock()
	capacity := len(r.entries)
	if r.size < capacity {
		r.entries[(r.start+r.size)%capacity] = entry
		r.size++
	} else {
		r.entries[r.start] = entry
		r.start = (r.start + 1) % capacity
	}
	notify := r.notify
	r.mu.Unlock()

	if notify != nil {
		notify(entry)
	}
	return entry
}

// Info appends an info line.
func (r *Ring) Info(message string) { r.Add(message, domain.SeverityInfo) }

// Success appends a success line.
func (r *Ring) Success(message string) { r.Add(message, domain.SeveritySuccess) }

// Warning appends a warning line.
func (r *Ring) Warning(message string) { r.Add(message, domain.SeverityWarning) }

// Error appends an error line.
func (r *Ring) Error(message string) { r.Add(message, domain.SeverityError) }

// Entries returns the retained lines, oldest first.
func (r *Ring) Entries() []domain.ActivityLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ActivityLogEntry, r.size)
	for i := range r.size {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Len reports how many lines are retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Clear drops every retained line.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start, r.size = 0, 0
}
