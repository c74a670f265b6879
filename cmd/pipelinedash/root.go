package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PipelineDash/internal/app"
	"PipelineDash/internal/config"
	"PipelineDash/internal/infrastructure/sink"
	"PipelineDash/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pipelinedash",
	Short: "Operational dashboard for the content-ingestion pipeline",
	Long: `pipelinedash watches the discovery pipeline: source health, processing
progress and card activity, and triggers its remote functions.

Example usage:
  pipelinedash watch                  # Live dashboard in the terminal
  pipelinedash serve                  # JSON API and /metrics over HTTP
  pipelinedash trigger scraper-job    # Run one remote function
  pipelinedash export --full -o x.json
  pipelinedash sources                # Print the current snapshot once`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $PIPELINEDASH_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// initConfig loads configuration and sets up the stderr logger.
func initConfig() {
	cfg = config.Load(cfgFile)
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger = logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("configuration loaded",
		"driver", cfg.Store.Driver,
		"functions", cfg.Functions.URL != "",
		"redis", cfg.Redis.URL != "",
	)
}

// withApp runs fn with a connected application and a signal-aware context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func useColors() bool {
	return sink.ResolveColors(cfg.Logging.Color)
}
