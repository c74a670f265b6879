package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"PipelineDash/internal/commands"
	"PipelineDash/internal/config"
	"PipelineDash/internal/domain"
	"PipelineDash/internal/infrastructure/exportfile"
	"PipelineDash/internal/infrastructure/functions"
	"PipelineDash/internal/infrastructure/httpapi"
	"PipelineDash/internal/infrastructure/scheduler"
	"PipelineDash/internal/infrastructure/sink"
	"PipelineDash/internal/infrastructure/storage"
	"PipelineDash/internal/logging"
	"PipelineDash/internal/ports"
	"PipelineDash/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    ports.Store
	invoker  ports.FunctionInvoker
	registry *commands.Registry
	metrics  *prometheus.Registry
	pool     *pgxpool.Pool
	redis    *redis.Client
}

// New connects the configured store and remote function client.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		registry: buildRegistry(cfg.Commands),
		metrics:  prometheus.NewRegistry(),
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	if cfg.Functions.URL != "" {
		a.invoker = functions.NewClient(cfg.Functions.URL, cfg.Functions.APIKey, cfg.Functions.Timeout)
	}

	if cfg.Redis.URL != "" {
		client, err := sink.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			baseLogger.Warn("redis unavailable, events will not be published", "error", err)
		} else {
			a.redis = client
		}
	}

	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	logger := a.logger.With("component", "store", "driver", a.cfg.Store.Driver)

	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := storage.Connect(ctx, a.cfg.Store.DSN)
		if err != nil {
			return err
		}
		a.pool = pool
		a.store = storage.NewPostgresStore(pool)
	case config.DriverPostgREST:
		if a.cfg.Store.URL == "" {
			return fmt.Errorf("store driver %s requires store.url", a.cfg.Store.Driver)
		}
		a.store = storage.NewPostgRESTStore(a.cfg.Store.URL, a.cfg.Store.ServiceKey, &http.Client{Timeout: 30 * time.Second})
	case config.DriverMemory:
		if a.cfg.Store.Fixture == "" {
			a.store = storage.NewMemoryStore(nil)
			break
		}
		mem, err := storage.LoadFixture(a.cfg.Store.Fixture)
		if err != nil {
			return err
		}
		a.store = mem
	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}

	logger.Info("store ready")
	return nil
}

// buildRegistry layers configured commands over the built-in set.
func buildRegistry(extra []config.CommandConfig) *commands.Registry {
	reg := commands.Defaults()
	for _, c := range extra {
		if c.Name == "" {
			continue
		}
		def := commands.Definition{Name: c.Name}
		if existing, err := reg.Resolve(c.Name); err == nil {
			def = existing
		}
		if c.LastRunTable != "" && c.LastRunField != "" {
			def.LastRun = &commands.LastRun{Table: domain.Table(c.LastRunTable), Field: c.LastRunField}
		}
		if c.WatchTable != "" && c.WatchField != "" {
			label := c.WatchLabel
			if label == "" {
				label = "Changed"
			}
			def.Watch = &commands.Watch{
				Table:    domain.Table(c.WatchTable),
				Field:    c.WatchField,
				Describe: commands.DescribeTitle(label, "Row", domain.SeverityInfo),
			}
		}
		reg.Register(def)
	}
	return reg
}

// SessionOptions selects how a dashboard session presents itself.
type SessionOptions struct {
	Out       io.Writer
	UseColors bool
	// Countdown echoes the countdown to Out every N ticks; zero hides it.
	Countdown int
	// Live enables the one-second refresh ticker.
	Live bool
	// Quiet suppresses snapshot tables on Out.
	Quiet bool
}

// NewSession builds a dashboard session with the configured sinks.
func (a *Application) NewSession(opts SessionOptions) *usecase.Dashboard {
	sinks := usecase.MultiSink{sink.NewMetrics(a.metrics)}
	if opts.Out != nil {
		term := sink.NewTerminal(opts.Out, opts.UseColors, opts.Countdown)
		if opts.Quiet {
			sinks = append(sinks, logOnly{term})
		} else {
			sinks = append(sinks, term)
		}
	}
	if a.redis != nil {
		sinks = append(sinks, sink.NewRedis(a.redis, a.cfg.Redis.Channel, a.logger.With("component", "sink.redis")))
	}

	var ticker ports.Ticker
	if opts.Live {
		ticker = scheduler.Every(time.Second)
	}

	return usecase.NewDashboard(usecase.DashboardDeps{
		Store:         a.store,
		Invoker:       a.invoker,
		Ticker:        ticker,
		Registry:      a.registry,
		Sink:          sinks,
		Logger:        a.logger,
		RefreshPeriod: a.cfg.Dashboard.RefreshSeconds,
		LogCapacity:   a.cfg.Dashboard.LogCapacity,
		SuccessDelay:  a.cfg.Dashboard.SuccessDelay(),
		FailureDelay:  a.cfg.Dashboard.FailureDelay(),
	})
}

// Watch renders the dashboard on out until ctx is cancelled.
func (a *Application) Watch(ctx context.Context, out io.Writer, useColors bool) error {
	dash := a.NewSession(SessionOptions{Out: out, UseColors: useColors, Countdown: 10, Live: true})
	if err := dash.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return dash.Stop(context.Background())
}

// Serve exposes the dashboard over HTTP until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	dash := a.NewSession(SessionOptions{Live: true})
	if err := dash.Start(ctx); err != nil {
		return err
	}

	handler := httpapi.NewHandler(dash, a.metrics, a.logger.With("component", "http"))
	serveErr := httpapi.Serve(ctx, a.cfg.HTTP.Addr, handler.Router(), a.logger.With("component", "http"))

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dash.Stop(stopCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Trigger invokes one remote function, streams the console to out and
// waits for the follow-up refresh.
func (a *Application) Trigger(ctx context.Context, name string, out io.Writer, useColors bool) error {
	if a.invoker == nil {
		return fmt.Errorf("functions.url is not configured")
	}
	dash := a.NewSession(SessionOptions{Out: out, UseColors: useColors, Quiet: true})
	_, err := dash.Trigger(ctx, name)
	dash.Wait()
	return err
}

// Export runs one refresh pass and writes the summary, or the full export,
// to path. An empty path or "-" writes to out.
func (a *Application) Export(ctx context.Context, full bool, path string, out io.Writer) error {
	dash := a.NewSession(SessionOptions{})
	dash.Refresh(ctx)

	var doc any = dash.ExportSummary()
	if full {
		doc = dash.ExportFull(ctx)
	}

	if path == "" || path == "-" {
		return exportfile.Encode(out, doc)
	}
	if err := exportfile.Write(path, doc); err != nil {
		return err
	}
	a.logger.Info("export written", "path", path, "full", full)
	return nil
}

// Sources runs one refresh pass and renders the snapshot once.
func (a *Application) Sources(ctx context.Context, out io.Writer, useColors bool) error {
	dash := a.NewSession(SessionOptions{})
	snap := dash.Refresh(ctx)
	sink.RenderSnapshot(out, snap, useColors)
	return nil
}

// Close releases the store pool and the Redis client.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// logOnly forwards console lines and command states but skips snapshots.
type logOnly struct {
	*sink.Terminal
}

func (logOnly) PublishSnapshot(domain.Snapshot) {}
