package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print call log totals per backend",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsRecent int

func init() {
	statsCmd.Flags().IntVarP(&statsRecent, "recent", "n", 0, "Also list the N most recent attempts")
	rootCmd.AddCommand(statsCmd)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeManager(mgr)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	totals, err := mgr.GetTotalStats(ctx)
	if err != nil {
		return err
	}
	backends, err := mgr.GetBackendTotals(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d attempts for %d requests, %d errors, %d tokens, avg %.0fms\n",
		totals.TotalCalls, totals.UniqueRequests, totals.ErrorCount, totals.TotalTokens, totals.AvgDurationMs)
	if totals.TotalCalls == 0 {
		return nil
	}

	t := newTable("Backend", "Calls", "OK", "Failed", "Success", "Tokens", "Avg")
	for _, b := range backends {
		t.Row(
			b.Backend.DisplayName(),
			strconv.Itoa(b.TotalCalls),
			strconv.Itoa(b.SuccessCount),
			strconv.Itoa(b.FailureCount),
			successRate(b),
			strconv.FormatInt(b.TotalTokens, 10),
			fmt.Sprintf("%.0fms", b.AvgDurationMs),
		)
	}
	fmt.Fprintln(out, t.Render())

	if statsRecent <= 0 {
		return nil
	}

	calls, err := mgr.GetRecentCalls(ctx, statsRecent)
	if err != nil {
		return err
	}
	rt := newTable("Time", "Request", "Backend", "Complexity", "Pass", "Status", "Duration")
	for _, c := range calls {
		status := "ok"
		if !c.Success {
			status = c.ErrorKind
		}
		if c.Degraded {
			status += " (degraded)"
		}
		rt.Row(
			c.Timestamp.Local().Format(time.DateTime),
			shortRequestID(c.RequestID),
			c.Backend,
			c.Complexity,
			strconv.Itoa(c.Pass),
			status,
			fmt.Sprintf("%dms", c.DurationMs),
		)
	}
	fmt.Fprintln(out, rt.Render())
	return nil
}

func successRate(b models.BackendTotals) string {
	if b.TotalCalls == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(b.SuccessCount)/float64(b.TotalCalls)*100)
}

func shortRequestID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
