package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineDash/internal/domain"
)

func TestMemoryStoreFiltersOrderAndLimit(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(map[domain.Table][]domain.Row{
		domain.TableSources: {
			{"name": "a", "enabled": true, "last_scraped_at": base.Add(time.Hour)},
			{"name": "b", "enabled": false, "last_scraped_at": nil},
			{"name": "c", "enabled": true, "last_scraped_at": base.Add(3 * time.Hour)},
			{"name": "d", "enabled": true},
		},
	})
	ctx := context.Background()

	n, err := store.Count(ctx, domain.Query{Table: domain.TableSources, Filters: []domain.Filter{domain.Eq("enabled", true)}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.Count(ctx, domain.Query{Table: domain.TableSources, Filters: []domain.Filter{domain.IsNull("last_scraped_at")}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := store.Select(ctx, domain.Query{
		Table:   domain.TableSources,
		Columns: []string{"name"},
		Order:   []domain.Order{{Column: "last_scraped_at", Descending: true}},
	})
	require.NoError(t, err)
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		name, _ := r.String("name")
		names = append(names, name)
		assert.NotContains(t, r, "enabled")
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, names)

	rows, err = store.Select(ctx, domain.Query{
		Table:   domain.TableSources,
		Filters: []domain.Filter{domain.Gte("last_scraped_at", base.Add(2*time.Hour))},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0]["name"])

	rows, err = store.Select(ctx, domain.Query{
		Table: domain.TableSources,
		Order: []domain.Order{{Column: "last_scraped_at", NullsFirst: true}},
		Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0]["last_scraped_at"])
}

func TestMemoryStoreFailTable(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	boom := errors.New("boom")
	store.FailTable(domain.TableCards, boom)

	_, err := store.Count(context.Background(), domain.Query{Table: domain.TableCards})
	assert.ErrorIs(t, err, boom)

	store.FailTable(domain.TableCards, nil)
	_, err = store.Count(context.Background(), domain.Query{Table: domain.TableCards})
	assert.NoError(t, err)
}

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fixture.yaml")
	doc := `
discovery_cards:
  - title: First
    created_at: 2026-07-01T10:00:00Z
    global_quality_score: 80
  - title: Second
    created_at: 2026-07-02T10:00:00Z
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	store, err := LoadFixture(path)
	require.NoError(t, err)

	rows, err := store.Select(context.Background(), domain.Query{
		Table: domain.TableCards,
		Order: []domain.Order{{Column: "created_at", Descending: true}},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	title, _ := rows[0].String("title")
	assert.Equal(t, "Second", title)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
