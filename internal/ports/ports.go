package ports

import (
	"context"
	"time"

	"PipelineDash/internal/domain"
)

// Store runs read-only queries against the remote pipeline store.
type Store interface {
	Count(ctx context.Context, q domain.Query) (int, error)
	Select(ctx context.Context, q domain.Query) ([]domain.Row, error)
}

// FunctionInvoker triggers a named remote pipeline function.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string) (domain.InvokeResult, error)
}

// Sink receives push updates for a presentation layer.
type Sink interface {
	PublishSnapshot(snap domain.Snapshot)
	PublishCountdown(seconds int)
	PublishLog(entry domain.ActivityLogEntry)
	PublishCommandState(name string, state domain.CommandState)
}

// Ticker drives a periodic job until stopped.
type Ticker interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
