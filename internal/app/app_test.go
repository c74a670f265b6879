package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineDash/internal/config"
	"PipelineDash/internal/domain"
	"PipelineDash/internal/usecase"
)

const fixtureDoc = `
discovery_sources:
  - name: hn
    display_name: Hacker News
    enabled: true
    scrape_interval_hours: 6
    last_scraped_at: 2026-10-14T08:00:00Z
raw_scraped_content:
  - id: r1
    processed: false
    scraped_at: 2026-10-14T07:55:00Z
discovery_cards:
  - id: c1
    source_name: hn
    title: First card
    created_at: 2026-10-14T08:10:00Z
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureDoc), 0o600))

	return config.Config{
		Logging:   config.LoggingConfig{Level: "error", Format: "text"},
		Store:     config.StoreConfig{Driver: config.DriverMemory, Fixture: path},
		Dashboard: config.DashboardConfig{RefreshSeconds: 30, SuccessResetSeconds: 1, FailureResetSeconds: 1, LogCapacity: 50},
		HTTP:      config.HTTPConfig{Addr: "127.0.0.1:0"},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *Application {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestExportSummaryToWriter(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t))

	var out bytes.Buffer
	require.NoError(t, a.Export(context.Background(), false, "-", &out))

	var summary usecase.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 1, summary.Overview.TotalCards)
	assert.Equal(t, 1, summary.Overview.ActiveSources)
	assert.Equal(t, 1, summary.Overview.PendingProcessing)
}

func TestExportFullToFile(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t))
	path := filepath.Join(t.TempDir(), "export.json")

	require.NoError(t, a.Export(context.Background(), true, path, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var full usecase.FullExport
	require.NoError(t, json.Unmarshal(raw, &full))
	assert.Len(t, full.FullData.Sources, 1)
	assert.Len(t, full.FullData.RecentCards, 1)
	assert.Empty(t, full.FullData.CardSourceLinks)
}

func TestSourcesRendersTables(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t))

	var out bytes.Buffer
	require.NoError(t, a.Sources(context.Background(), &out, false))
	assert.Contains(t, out.String(), "Hacker News")
	assert.Contains(t, out.String(), "Last updated")
}

func TestTriggerRequiresFunctionsURL(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t))
	assert.Error(t, a.Trigger(context.Background(), "scraper-job", &bytes.Buffer{}, false))
}

func TestTriggerStreamsConsole(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"done","processed":3}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Functions.URL = srv.URL
	cfg.Commands = []config.CommandConfig{{Name: "broken"}}
	a := newTestApp(t, cfg)

	var out bytes.Buffer
	require.NoError(t, a.Trigger(context.Background(), "ai-processor", &out, false))
	assert.Contains(t, out.String(), "→ Triggering ai-processor...")
	assert.Contains(t, out.String(), "✓ Dashboard refreshed")
	assert.NotContains(t, out.String(), "Last updated")

	out.Reset()
	require.Error(t, a.Trigger(context.Background(), "broken", &out, false))
	assert.Contains(t, out.String(), "✗ broken failed")
}

func TestUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Store.Driver = "sqlite"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestBuildRegistryMergesConfiguredCommands(t *testing.T) {
	t.Parallel()

	reg := buildRegistry([]config.CommandConfig{
		{Name: "digest-mailer", LastRunTable: "discovery_cards", LastRunField: "updated_at"},
		{Name: "scraper-job", LastRunTable: "raw_scraped_content", LastRunField: "scraped_at"},
		{Name: ""},
	})

	names := reg.Names()
	require.Len(t, names, 7)
	assert.Equal(t, "digest-mailer", names[6])

	scraper, err := reg.Resolve("scraper-job")
	require.NoError(t, err)
	assert.Equal(t, domain.TableRawItems, scraper.LastRun.Table)
	require.NotNil(t, scraper.Watch, "override keeps the built-in watch")

	mailer, err := reg.Resolve("digest-mailer")
	require.NoError(t, err)
	assert.Nil(t, mailer.Watch)
	assert.Equal(t, "updated_at", mailer.LastRun.Field)
}
