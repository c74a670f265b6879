package main

import (
	"context"

	"github.com/spf13/cobra"

	"PipelineDash/internal/app"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <command>",
	Short: "Invoke a remote pipeline function and stream its console",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Trigger(ctx, args[0], cmd.OutOrStdout(), useColors())
		})
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}
