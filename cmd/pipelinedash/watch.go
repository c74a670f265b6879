package main

import (
	"context"

	"github.com/spf13/cobra"

	"PipelineDash/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Render the live dashboard until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Watch(ctx, cmd.OutOrStdout(), useColors())
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
