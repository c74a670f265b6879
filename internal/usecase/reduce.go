package usecase

import (
	"time"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/timefmt"
)

// averageQuality is the mean quality score with missing scores counted as 50.
// No cards yields "50.0".
func averageQuality(cards []domain.Card) string {
	if len(cards) == 0 {
		return timefmt.OneDecimal(domain.DefaultQualityScore)
	}
	var sum float64
	for _, c := range cards {
		sum += c.Quality()
	}
	return timefmt.OneDecimal(sum / float64(len(cards)))
}

func totalVotes(cards []domain.Card) (likes, dislikes int) {
	for _, c := range cards {
		likes += c.LikeCount
		dislikes += c.DislikeCount
	}
	return likes, dislikes
}

// distinctLinkedCards counts cards referenced by at least one link.
func distinctLinkedCards(links []domain.CardSourceLink) int {
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		seen[l.CardID] = struct{}{}
	}
	return len(seen)
}

// pipelineBreakdown partitions raw items by outcome. The percentage divides by
// max(total, 1) so an empty pipeline reads "0.0".
func pipelineBreakdown(items []domain.RawItem) domain.PipelineStats {
	var stats domain.PipelineStats
	for _, item := range items {
		if !item.Processed {
			stats.Unprocessed++
			continue
		}
		switch item.ProcessingResult {
		case domain.ResultCreatedCard:
			stats.Created++
		case domain.ResultRejected:
			stats.Rejected++
		case domain.ResultError:
			stats.Errors++
		}
	}

	total := max(len(items), 1)
	processed := stats.Created + stats.Rejected + stats.Errors
	stats.ProgressPercent = timefmt.OneDecimal(100 * float64(processed) / float64(total))
	return stats
}

// activityWindow counts cards created strictly within the last day and week.
// created must be sorted newest first.
func activityWindow(created []time.Time, now time.Time) domain.ActivityStats {
	if len(created) == 0 {
		return domain.ActivityStats{MostRecent: timefmt.Never}
	}

	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var stats domain.ActivityStats
	for _, t := range created {
		if t.After(dayAgo) {
			stats.Last24Hours++
		}
		if t.After(weekAgo) {
			stats.Last7Days++
		}
	}
	stats.MostRecent = timefmt.Relative(created[0], now)
	return stats
}
