package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

const (
	exportCardLimit = 50
	exportRawLimit  = 50
	exportLinkLimit = 100
)

// ExportPipeline is the pipeline block of an export, with the progress label
// rendered the way the dashboard shows it.
type ExportPipeline struct {
	domain.PipelineStats
	ProgressText string `json:"progressText"`
}

// Summary is the compact export of the latest computed numbers.
type Summary struct {
	ExportedAt time.Time            `json:"exportedAt"`
	Overview   domain.OverviewStats `json:"overview"`
	Pipeline   ExportPipeline       `json:"pipeline"`
	Activity   domain.ActivityStats `json:"activity"`
}

// FullData is a bounded sample of raw store rows.
type FullData struct {
	Sources          []domain.Row `json:"sources"`
	RecentCards      []domain.Row `json:"recentCards"`
	RecentRawContent []domain.Row `json:"recentRawContent"`
	CardSourceLinks  []domain.Row `json:"cardSourceLinks"`
}

// FullExport pairs the summary with raw rows.
type FullExport struct {
	Summary  Summary  `json:"summary"`
	FullData FullData `json:"fullData"`
}

// Exporter builds export artifacts from the latest snapshot. It never runs
// an aggregation pass.
type Exporter struct {
	store  ports.Store
	latest func() domain.Snapshot
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter builds an exporter reading snapshots from latest.
func NewExporter(store ports.Store, latest func() domain.Snapshot, logger *slog.Logger, now func() time.Time) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &Exporter{store: store, latest: latest, logger: logger, now: now}
}

// Summary returns the last computed numbers, stamped with the export time.
func (e *Exporter) Summary() Summary {
	snap := e.latest()
	return Summary{
		ExportedAt: e.now().UTC(),
		Overview:   snap.Overview,
		Pipeline: ExportPipeline{
			PipelineStats: snap.Pipeline,
			ProgressText:  snap.Pipeline.ProgressText(),
		},
		Activity: snap.Activity,
	}
}

// Full runs the bounded sample queries concurrently. A failed query leaves
// its collection empty.
func (e *Exporter) Full(ctx context.Context) FullExport {
	out := FullExport{Summary: e.Summary()}

	steps := []struct {
		name  string
		query domain.Query
		dst   *[]domain.Row
	}{
		{
			name: "recent_cards",
			query: domain.Query{
				Table: domain.TableCards,
				Order: []domain.Order{{Column: "created_at", Descending: true}},
				Limit: exportCardLimit,
			},
			dst: &out.FullData.RecentCards,
		},
		{
			name:  "sources",
			query: domain.Query{Table: domain.TableSources},
			dst:   &out.FullData.Sources,
		},
		{
			name: "recent_raw_content",
			query: domain.Query{
				Table: domain.TableRawItems,
				Order: []domain.Order{{Column: "scraped_at", Descending: true}},
				Limit: exportRawLimit,
			},
			dst: &out.FullData.RecentRawContent,
		},
		{
			name:  "card_source_links",
			query: domain.Query{Table: domain.TableCardSources, Limit: exportLinkLimit},
			dst:   &out.FullData.CardSourceLinks,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		g.Go(func() error {
			*step.dst = []domain.Row{}
			if e.store == nil {
				return nil
			}
			rows, err := e.store.Select(gctx, step.query)
			if err != nil {
				e.logger.Warn("export query failed", "query", step.name, "error", err)
				return nil
			}
			if rows != nil {
				*step.dst = rows
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}
