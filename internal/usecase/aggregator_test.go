package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineDash/internal/commands"
	"PipelineDash/internal/domain"
	"PipelineDash/internal/infrastructure/storage"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func hoursAgo(h float64) time.Time {
	return testNow.Add(-time.Duration(h * float64(time.Hour)))
}

func seededStore() *storage.MemoryStore {
	return storage.NewMemoryStore(map[domain.Table][]domain.Row{
		domain.TableSources: {
			{"name": "hn", "display_name": "Hacker News", "enabled": true, "scrape_interval_hours": 6.0, "source_quality_tier": 8, "last_scraped_at": hoursAgo(0.5)},
			{"name": "rss", "display_name": "RSS", "enabled": true, "scrape_interval_hours": 2.0, "last_scraped_at": hoursAgo(5)},
			{"name": "old", "display_name": "Old", "enabled": false, "scrape_interval_hours": 24.0},
			{"name": "broken", "display_name": "Broken", "enabled": true, "scrape_interval_hours": 1.0, "last_error": "HTTP 500", "last_scraped_at": hoursAgo(3)},
		},
		domain.TableRawItems: {
			{"processed": false, "scraped_at": hoursAgo(1)},
			{"processed": true, "processing_result": "created_card", "scraped_at": hoursAgo(2), "processed_at": hoursAgo(1.5), "updated_at": hoursAgo(1.5)},
			{"processed": true, "processing_result": "rejected", "scraped_at": hoursAgo(3), "processed_at": hoursAgo(2.5), "updated_at": hoursAgo(2.5)},
			{"processed": true, "processing_result": "error", "scraped_at": hoursAgo(4), "processed_at": hoursAgo(3.5), "updated_at": hoursAgo(3.5)},
		},
		domain.TableCards: {
			{"id": "c1", "source_name": "hn", "global_like_count": 3, "global_dislike_count": 1, "global_quality_score": 80.0, "image_url": "https://img/1", "created_at": hoursAgo(2), "updated_at": hoursAgo(1)},
			{"id": "c2", "source_name": "hn", "global_like_count": 1, "global_dislike_count": 0, "global_quality_score": nil, "created_at": hoursAgo(48), "updated_at": hoursAgo(48)},
			{"id": "c3", "source_name": "rss", "global_like_count": 0, "global_dislike_count": 2, "global_quality_score": 20.0, "image_url": "https://img/3", "created_at": hoursAgo(24 * 10), "updated_at": hoursAgo(24 * 10)},
		},
		domain.TableCardSources: {
			{"discovery_card_id": "c1"},
			{"discovery_card_id": "c1"},
			{"discovery_card_id": "c2"},
		},
	})
}

func TestAggregatorRefresh(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(AggregatorDeps{Store: seededStore(), Registry: commands.Defaults(), Now: fixedNow})
	snap := agg.Refresh(context.Background())

	assert.Equal(t, domain.OverviewStats{
		TotalCards:        3,
		ActiveSources:     3,
		PendingProcessing: 1,
		MissingImages:     1,
		TotalLikes:        4,
		TotalDislikes:     3,
		AvgQuality:        "50.0",
		CardsWithLinks:    2,
	}, snap.Overview)

	assert.Equal(t, domain.PipelineStats{
		Unprocessed:     1,
		Created:         1,
		Rejected:        1,
		Errors:          1,
		ProgressPercent: "75.0",
	}, snap.Pipeline)

	assert.Equal(t, domain.ActivityStats{Last24Hours: 1, Last7Days: 2, MostRecent: "2 hours ago"}, snap.Activity)

	assert.Equal(t, domain.Timeline{
		LastScrape:      "30 min ago",
		LastRawContent:  "1 hour ago",
		LastProcessed:   "1 hour ago",
		LastCardCreated: "2 hours ago",
	}, snap.Timeline)

	require.Len(t, snap.Sources, 4)
	byName := map[string]domain.SourceHealth{}
	for _, s := range snap.Sources {
		byName[s.Name] = s
	}
	assert.Equal(t, domain.HealthHealthy, byName["hn"].State)
	assert.Equal(t, 2, byName["hn"].CardCount)
	assert.Equal(t, 8, byName["hn"].QualityTier)
	assert.Equal(t, domain.HealthOverdue, byName["rss"].State)
	assert.Equal(t, domain.DefaultQualityTier, byName["rss"].QualityTier)
	assert.Equal(t, domain.HealthDisabled, byName["old"].State)
	assert.Equal(t, "—", byName["old"].NextDue)
	assert.Equal(t, domain.HealthError, byName["broken"].State)
	assert.Equal(t, "HTTP 500", byName["broken"].LastError)

	// Never-scraped sources sort last.
	assert.Equal(t, "old", snap.Sources[3].Name)

	require.Len(t, snap.Functions, 6)
	assert.Equal(t, domain.FunctionStatus{Name: "scraper-job", LastRun: "30 min ago"}, snap.Functions[0])
	assert.Equal(t, domain.FunctionStatus{Name: "ai-processor", LastRun: "1 hour ago"}, snap.Functions[1])

	assert.Equal(t, testNow, snap.UpdatedAt)
	assert.Equal(t, snap, agg.Latest())
}

func TestAggregatorKeepsStaleMetricOnFailure(t *testing.T) {
	t.Parallel()

	store := seededStore()
	agg := NewAggregator(AggregatorDeps{Store: store, Now: fixedNow})
	first := agg.Refresh(context.Background())

	store.Insert(domain.TableCardSources, domain.Row{"discovery_card_id": "c3"})
	store.Insert(domain.TableRawItems, domain.Row{"processed": false, "scraped_at": hoursAgo(0.1)})
	store.FailTable(domain.TableCardSources, errors.New("connection reset"))

	second := agg.Refresh(context.Background())

	assert.Equal(t, first.Overview.CardsWithLinks, second.Overview.CardsWithLinks)
	assert.Equal(t, 2, second.Overview.PendingProcessing, "sibling queries still run")
	assert.Equal(t, 2, second.Pipeline.Unprocessed)

	store.FailTable(domain.TableCardSources, nil)
	third := agg.Refresh(context.Background())
	assert.Equal(t, 3, third.Overview.CardsWithLinks)
}

func TestAggregatorCardCountsSurviveFailure(t *testing.T) {
	t.Parallel()

	store := seededStore()
	agg := NewAggregator(AggregatorDeps{Store: store, Now: fixedNow})
	agg.Refresh(context.Background())

	store.FailTable(domain.TableCards, errors.New("timeout"))
	snap := agg.Refresh(context.Background())

	assert.Equal(t, 3, snap.Overview.TotalCards)
	for _, s := range snap.Sources {
		if s.Name == "hn" {
			assert.Equal(t, 2, s.CardCount)
		}
	}
}

func TestAggregatorEmptyStore(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(AggregatorDeps{Store: storage.NewMemoryStore(nil), Now: fixedNow})
	snap := agg.Refresh(context.Background())

	assert.Equal(t, "50.0", snap.Overview.AvgQuality)
	assert.Equal(t, "0.0", snap.Pipeline.ProgressPercent)
	assert.Equal(t, "Never", snap.Activity.MostRecent)
	assert.Equal(t, "Never", snap.Timeline.LastScrape)
	assert.Empty(t, snap.Sources)
	assert.Empty(t, snap.Functions)
}

func TestAggregatorFunctionWithoutTrace(t *testing.T) {
	t.Parallel()

	reg := commands.NewRegistry()
	reg.Register(commands.Definition{Name: "manual"})

	agg := NewAggregator(AggregatorDeps{Store: seededStore(), Registry: reg, Now: fixedNow})
	snap := agg.Refresh(context.Background())

	assert.Equal(t, []domain.FunctionStatus{{Name: "manual", LastRun: "—"}}, snap.Functions)
}
