package main

import (
	"context"

	"github.com/spf13/cobra"

	"PipelineDash/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}
