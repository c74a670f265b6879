package main

import (
	"context"

	"github.com/spf13/cobra"

	"PipelineDash/internal/app"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the dashboard summary as JSON",
	Long: `export runs one refresh pass and writes the summary document.
With --full it also samples recent cards, raw content, sources and links.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		output, _ := cmd.Flags().GetString("output")
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Export(ctx, full, output, cmd.OutOrStdout())
		})
	},
}

func init() {
	exportCmd.Flags().Bool("full", false, "include raw data samples")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
