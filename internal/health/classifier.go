// Package health classifies ingestion sources by how recently and how
// successfully they ran.
//
// Decision order, first match wins:
//
//	disabled            -> Disabled
//	last error recorded -> Error
//	never scraped       -> Never
//	scraped < 1h ago    -> Healthy
//	older than interval -> Overdue
//	otherwise           -> Healthy
package health

import (
	"time"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/timefmt"
)

// Classify returns the health state of src at now.
func Classify(src domain.Source, now time.Time) domain.HealthState {
	if !src.Enabled {
		return domain.HealthDisabled
	}
	if src.LastError != nil {
		return domain.HealthError
	}
	if src.LastScrapedAt == nil {
		return domain.HealthNever
	}

	hoursSince := now.Sub(*src.LastScrapedAt).Hours()
	if hoursSince < 1 {
		return domain.HealthHealthy
	}
	if hoursSince > src.ScrapeIntervalHours {
		return domain.HealthOverdue
	}
	return domain.HealthHealthy
}

// NextDue is the instant the source should run again. ok is false when the
// source is disabled or has never run.
func NextDue(src domain.Source) (time.Time, bool) {
	if !src.Enabled || src.LastScrapedAt == nil {
		return time.Time{}, false
	}
	interval := time.Duration(src.ScrapeIntervalHours * float64(time.Hour))
	return src.LastScrapedAt.Add(interval), true
}

// Row builds the rendered health row for src.
func Row(src domain.Source, cardCount int, now time.Time) domain.SourceHealth {
	row := domain.SourceHealth{
		Name:        src.Name,
		DisplayName: src.DisplayName,
		State:       Classify(src, now),
		LastRun:     timefmt.RelativeOrNever(src.LastScrapedAt, now),
		NextDue:     timefmt.Dash,
		CardCount:   cardCount,
		QualityTier: src.QualityTier,
	}
	if row.QualityTier == 0 {
		row.QualityTier = domain.DefaultQualityTier
	}
	if due, ok := NextDue(src); ok {
		row.NextDue = timefmt.Relative(due, now)
	}
	if src.LastError != nil {
		row.LastError = *src.LastError
	}
	return row
}

// CountBySource reduces a source_name projection over cards into per-source totals.
func CountBySource(rows []domain.Row) map[string]int {
	counts := make(map[string]int)
	for _, r := range rows {
		name, ok := r.String("source_name")
		if !ok {
			continue
		}
		counts[name]++
	}
	return counts
}

// Rows classifies every source, pairing each with its card count.
func Rows(sources []domain.Source, counts map[string]int, now time.Time) []domain.SourceHealth {
	out := make([]domain.SourceHealth, 0, len(sources))
	for _, src := range sources {
		out = append(out, Row(src, counts[src.Name], now))
	}
	return out
}
