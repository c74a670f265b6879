package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"PipelineDash/internal/commands"
	"PipelineDash/internal/domain"
	"PipelineDash/internal/health"
	"PipelineDash/internal/ports"
	"PipelineDash/internal/timefmt"
)

// AggregatorDeps wires the store and command table into the aggregator.
type AggregatorDeps struct {
	Store    ports.Store
	Registry *commands.Registry
	Logger   *slog.Logger
	Now      func() time.Time
}

// Aggregator turns raw store rows into the derived dashboard snapshot.
// Every pass re-reads everything; a metric whose query fails keeps the
// value from the previous pass.
type Aggregator struct {
	store    ports.Store
	registry *commands.Registry
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	last       domain.Snapshot
	cardCounts map[string]int
}

// NewAggregator constructs the aggregation component.
func NewAggregator(deps AggregatorDeps) *Aggregator {
	a := &Aggregator{
		store:      deps.Store,
		registry:   deps.Registry,
		logger:     deps.Logger,
		now:        deps.Now,
		last:       domain.EmptySnapshot(),
		cardCounts: map[string]int{},
	}
	if a.registry == nil {
		a.registry = commands.NewRegistry()
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Latest returns the most recently computed snapshot without querying.
func (a *Aggregator) Latest() domain.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Refresh runs one full aggregation pass and returns the new snapshot.
func (a *Aggregator) Refresh(ctx context.Context) domain.Snapshot {
	a.mu.RLock()
	prev := a.last
	prevCounts := a.cardCounts
	a.mu.RUnlock()

	next := prev
	now := a.now()

	var (
		sources    []domain.Source
		sourcesOK  bool
		counts     map[string]int
		defs       = a.registry.All()
		functions  = make([]domain.FunctionStatus, len(defs))
		functionOK = make([]bool, len(defs))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := a.store.Count(gctx, domain.Query{Table: domain.TableCards})
		if a.failed("total_cards", err) {
			return nil
		}
		next.Overview.TotalCards = n
		return nil
	})

	g.Go(func() error {
		n, err := a.store.Count(gctx, domain.Query{
			Table:   domain.TableSources,
			Filters: []domain.Filter{domain.Eq("enabled", true)},
		})
		if a.failed("active_sources", err) {
			return nil
		}
		next.Overview.ActiveSources = n
		return nil
	})

	g.Go(func() error {
		n, err := a.store.Count(gctx, domain.Query{
			Table:   domain.TableRawItems,
			Filters: []domain.Filter{domain.Eq("processed", false)},
		})
		if a.failed("pending_processing", err) {
			return nil
		}
		next.Overview.PendingProcessing = n
		return nil
	})

	g.Go(func() error {
		n, err := a.store.Count(gctx, domain.Query{
			Table:   domain.TableCards,
			Filters: []domain.Filter{domain.IsNull("image_url")},
		})
		if a.failed("missing_images", err) {
			return nil
		}
		next.Overview.MissingImages = n
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.Select(gctx, domain.Query{
			Table:   domain.TableCards,
			Columns: []string{"global_like_count", "global_dislike_count", "global_quality_score"},
		})
		if a.failed("card_quality", err) {
			return nil
		}
		cards := make([]domain.Card, 0, len(rows))
		for _, r := range rows {
			cards = append(cards, domain.CardFromRow(r))
		}
		next.Overview.TotalLikes, next.Overview.TotalDislikes = totalVotes(cards)
		next.Overview.AvgQuality = averageQuality(cards)
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.Select(gctx, domain.Query{
			Table:   domain.TableCardSources,
			Columns: []string{"discovery_card_id"},
		})
		if a.failed("cards_with_links", err) {
			return nil
		}
		links := make([]domain.CardSourceLink, 0, len(rows))
		for _, r := range rows {
			links = append(links, domain.LinkFromRow(r))
		}
		next.Overview.CardsWithLinks = distinctLinkedCards(links)
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.Select(gctx, domain.Query{
			Table:   domain.TableRawItems,
			Columns: []string{"processed", "processing_result"},
		})
		if a.failed("pipeline", err) {
			return nil
		}
		items := make([]domain.RawItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, domain.RawItemFromRow(r))
		}
		next.Pipeline = pipelineBreakdown(items)
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.Select(gctx, domain.Query{
			Table: domain.TableSources,
			Order: []domain.Order{{Column: "last_scraped_at", Descending: true}},
		})
		if a.failed("sources", err) {
			return nil
		}
		sources = make([]domain.Source, 0, len(rows))
		for _, r := range rows {
			sources = append(sources, domain.SourceFromRow(r))
		}
		sourcesOK = true
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.Select(gctx, domain.Query{
			Table:   domain.TableCards,
			Columns: []string{"source_name"},
		})
		if a.failed("cards_by_source", err) {
			return nil
		}
		counts = health.CountBySource(rows)
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.Select(gctx, domain.Query{
			Table:   domain.TableCards,
			Columns: []string{"created_at"},
			Order:   []domain.Order{{Column: "created_at", Descending: true}},
		})
		if a.failed("recent_activity", err) {
			return nil
		}
		created := make([]time.Time, 0, len(rows))
		for _, r := range rows {
			if t, ok := r.Time("created_at"); ok {
				created = append(created, t)
			}
		}
		next.Activity = activityWindow(created, now)
		return nil
	})

	timeline := []struct {
		metric string
		query  domain.Query
		field  string
		out    *string
	}{
		{"timeline_scraping", latestQuery(domain.TableSources, "last_scraped_at"), "last_scraped_at", &next.Timeline.LastScrape},
		{"timeline_raw_content", latestQuery(domain.TableRawItems, "scraped_at"), "scraped_at", &next.Timeline.LastRawContent},
		{"timeline_processing", latestQuery(domain.TableRawItems, "processed_at", domain.Eq("processed", true)), "processed_at", &next.Timeline.LastProcessed},
		{"timeline_card_created", latestQuery(domain.TableCards, "created_at"), "created_at", &next.Timeline.LastCardCreated},
	}
	for _, step := range timeline {
		g.Go(func() error {
			rows, err := a.store.Select(gctx, step.query)
			if a.failed(step.metric, err) {
				return nil
			}
			*step.out = latestOrNever(rows, step.field, now)
			return nil
		})
	}

	for i, def := range defs {
		if def.LastRun == nil {
			continue
		}
		g.Go(func() error {
			rows, err := a.store.Select(gctx, latestQuery(def.LastRun.Table, def.LastRun.Field, def.LastRun.Filters...))
			if a.failed("lastrun_"+def.Name, err) {
				return nil
			}
			functions[i] = domain.FunctionStatus{Name: def.Name, LastRun: latestOrNever(rows, def.LastRun.Field, now)}
			functionOK[i] = true
			return nil
		})
	}

	_ = g.Wait()

	if counts == nil {
		counts = prevCounts
	}
	if sourcesOK {
		next.Sources = health.Rows(sources, counts, now)
	}
	next.Functions = mergeFunctions(defs, functions, functionOK, prev.Functions)
	next.UpdatedAt = a.now()

	a.mu.Lock()
	a.last = next
	a.cardCounts = counts
	a.mu.Unlock()

	return next
}

func (a *Aggregator) failed(metric string, err error) bool {
	if err == nil {
		return false
	}
	a.logger.Warn("metric query failed", "metric", metric, "error", err)
	return true
}

func latestQuery(table domain.Table, field string, filters ...domain.Filter) domain.Query {
	return domain.Query{
		Table:   table,
		Columns: []string{field},
		Filters: filters,
		Order:   []domain.Order{{Column: field, Descending: true}},
		Limit:   1,
	}
}

func latestOrNever(rows []domain.Row, field string, now time.Time) string {
	if len(rows) == 0 {
		return timefmt.Never
	}
	t, ok := rows[0].Time(field)
	if !ok {
		return timefmt.Never
	}
	return timefmt.Relative(t, now)
}

func mergeFunctions(defs []commands.Definition, fresh []domain.FunctionStatus, ok []bool, prev []domain.FunctionStatus) []domain.FunctionStatus {
	previous := make(map[string]string, len(prev))
	for _, f := range prev {
		previous[f.Name] = f.LastRun
	}

	out := make([]domain.FunctionStatus, 0, len(defs))
	for i, def := range defs {
		switch {
		case ok[i]:
			out = append(out, fresh[i])
		case def.LastRun == nil:
			out = append(out, domain.FunctionStatus{Name: def.Name, LastRun: timefmt.Dash})
		default:
			last, seen := previous[def.Name]
			if !seen {
				last = timefmt.Never
			}
			out = append(out, domain.FunctionStatus{Name: def.Name, LastRun: last})
		}
	}
	return out
}
