package main

import (
	"context"

	"github.com/spf13/cobra"

	"PipelineDash/internal/app"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Print the current snapshot once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Sources(ctx, cmd.OutOrStdout(), useColors())
		})
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
