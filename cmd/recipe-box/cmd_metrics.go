package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMetricsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Inspect and prune operation metrics",
	}

	var summaryDays int
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Show operations per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, err := c.app.MetricsStore().GetDailySummary(cmd.Context(), summaryDays)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tOPS\tERRORS\tITEMS\tAVG MS")
			for _, d := range days {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.0f\n", d.Date, d.Operations, d.Errors, d.ItemsTouched, d.AvgLatencyMS)
			}
			return w.Flush()
		},
	}
	summary.Flags().IntVar(&summaryDays, "days", 7, "Number of days to include")
	cmd.AddCommand(summary)

	var keepDays int
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old metric records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keepDays == 0 {
				keepDays = c.cfg.MetricsRetentionDays
			}
			affected, err := c.app.MetricsStore().Cleanup(cmd.Context(), keepDays)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
			return nil
		},
	}
	cleanup.Flags().IntVar(&keepDays, "days", 0, "Keep records for the last N days (default: METRICS_RETENTION_DAYS)")
	cmd.AddCommand(cleanup)
	return cmd
}
