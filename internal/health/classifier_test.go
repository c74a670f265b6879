package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"PipelineDash/internal/domain"
)

var now = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func strPtr(s string) *string { return &s }

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		src  domain.Source
		want domain.HealthState
	}{
		{
			name: "disabled wins over error",
			src:  domain.Source{Enabled: false, LastError: strPtr("boom"), LastScrapedAt: ago(time.Minute)},
			want: domain.HealthDisabled,
		},
		{
			name: "error wins over staleness",
			src:  domain.Source{Enabled: true, LastError: strPtr("timeout"), LastScrapedAt: ago(100 * time.Hour), ScrapeIntervalHours: 6},
			want: domain.HealthError,
		},
		{
			name: "error wins over never",
			src:  domain.Source{Enabled: true, LastError: strPtr("dns")},
			want: domain.HealthError,
		},
		{
			name: "never scraped",
			src:  domain.Source{Enabled: true, ScrapeIntervalHours: 6},
			want: domain.HealthNever,
		},
		{
			name: "recent run is healthy even with zero interval",
			src:  domain.Source{Enabled: true, LastScrapedAt: ago(30 * time.Minute), ScrapeIntervalHours: 0},
			want: domain.HealthHealthy,
		},
		{
			name: "within interval",
			src:  domain.Source{Enabled: true, LastScrapedAt: ago(3 * time.Hour), ScrapeIntervalHours: 6},
			want: domain.HealthHealthy,
		},
		{
			name: "exactly at interval is not overdue",
			src:  domain.Source{Enabled: true, LastScrapedAt: ago(6 * time.Hour), ScrapeIntervalHours: 6},
			want: domain.HealthHealthy,
		},
		{
			name: "past interval",
			src:  domain.Source{Enabled: true, LastScrapedAt: ago(7 * time.Hour), ScrapeIntervalHours: 6},
			want: domain.HealthOverdue,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.src, now))
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	t.Parallel()

	valid := map[domain.HealthState]bool{
		domain.HealthDisabled: true,
		domain.HealthError:    true,
		domain.HealthNever:    true,
		domain.HealthHealthy:  true,
		domain.HealthOverdue:  true,
	}

	errs := []*string{nil, strPtr("x")}
	scraped := []*time.Time{nil, ago(0), ago(30 * time.Minute), ago(2 * time.Hour), ago(48 * time.Hour), ago(-time.Hour)}
	intervals := []float64{0, 0.5, 1, 24}

	for _, enabled := range []bool{true, false} {
		for _, e := range errs {
			for _, s := range scraped {
				for _, iv := range intervals {
					src := domain.Source{Enabled: enabled, LastError: e, LastScrapedAt: s, ScrapeIntervalHours: iv}
					first := Classify(src, now)
					assert.True(t, valid[first], "unexpected state %q", first)
					assert.Equal(t, first, Classify(src, now))
				}
			}
		}
	}
}

func TestRow(t *testing.T) {
	t.Parallel()

	src := domain.Source{
		Name:                "hn",
		DisplayName:         "Hacker News",
		Enabled:             true,
		ScrapeIntervalHours: 6,
		LastScrapedAt:       ago(2 * time.Hour),
	}

	row := Row(src, 12, now)
	assert.Equal(t, domain.HealthHealthy, row.State)
	assert.Equal(t, "2 hours ago", row.LastRun)
	assert.Equal(t, "in 4 hours", row.NextDue)
	assert.Equal(t, 12, row.CardCount)
	assert.Equal(t, domain.DefaultQualityTier, row.QualityTier)
	assert.Empty(t, row.LastError)
}

func TestRowWithoutNextDue(t *testing.T) {
	t.Parallel()

	disabled := Row(domain.Source{Name: "a", LastScrapedAt: ago(time.Hour), QualityTier: 8}, 0, now)
	assert.Equal(t, "—", disabled.NextDue)
	assert.Equal(t, 8, disabled.QualityTier)

	never := Row(domain.Source{Name: "b", Enabled: true, LastError: strPtr("403")}, 0, now)
	assert.Equal(t, "Never", never.LastRun)
	assert.Equal(t, "—", never.NextDue)
	assert.Equal(t, "403", never.LastError)
}

func TestCountBySource(t *testing.T) {
	t.Parallel()

	rows := []domain.Row{
		{"source_name": "hn"},
		{"source_name": "hn"},
		{"source_name": "lobsters"},
		{"source_name": nil},
	}
	counts := CountBySource(rows)
	assert.Equal(t, map[string]int{"hn": 2, "lobsters": 1}, counts)

	out := Rows([]domain.Source{{Name: "hn"}, {Name: "rss"}}, counts, now)
	assert.Equal(t, 2, out[0].CardCount)
	assert.Equal(t, 0, out[1].CardCount)
}

func TestClassifyDecodedRows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		row  domain.Row
		want domain.HealthState
	}{
		{
			name: "empty last_error is not an error",
			row:  domain.Row{"enabled": true, "last_error": "", "scrape_interval_hours": 6.0, "last_scraped_at": now.Add(-2 * time.Hour).Format(time.RFC3339)},
			want: domain.HealthHealthy,
		},
		{
			name: "offset-less postgrest timestamp",
			row:  domain.Row{"enabled": true, "scrape_interval_hours": 6.0, "last_scraped_at": now.Add(-10 * time.Minute).Format("2006-01-02T15:04:05.999999")},
			want: domain.HealthHealthy,
		},
		{
			name: "non-empty last_error",
			row:  domain.Row{"enabled": true, "last_error": "503", "last_scraped_at": "2026-06-01 11:00:00+00"},
			want: domain.HealthError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Classify(domain.SourceFromRow(tc.row), now))
		})
	}
}
