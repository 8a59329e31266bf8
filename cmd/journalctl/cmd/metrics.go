package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tradejournal/internal/analytics"
)

func newMetricsCmd(open journalOpener) *cobra.Command {
	var topSymbols int

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print the performance summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			trades, err := svc.AllTrades(cmd.Context())
			if err != nil {
				return fmt.Errorf("load trades: %w", err)
			}
			m := analytics.AnalyzePerformance(trades)
			out := cmd.OutOrStdout()
			printSummary(out, m)
			printMonthly(out, m.MonthlyPnL)
			printGrades(out, m.GradeDistribution)
			printSymbols(out, analytics.TopSymbols(trades, topSymbols))
			return nil
		},
	}
	cmd.Flags().IntVar(&topSymbols, "top", 5, "number of symbols to list")
	return cmd
}

func printSummary(out io.Writer, m *analytics.PerformanceMetrics) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Metric\tValue")
	fmt.Fprintf(w, "Trades\t%d (%d open, %d closed)\n", m.TotalTrades, m.OpenTrades, m.ClosedTrades)
	fmt.Fprintf(w, "Win rate\t%.2f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Total P&L\t%.2f\n", m.TotalPnL)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", m.ProfitFactor)
	fmt.Fprintf(w, "Avg win / loss\t%.2f / %.2f\n", m.AverageWin, m.AverageLoss)
	fmt.Fprintf(w, "Win/loss ratio\t%.2f\n", m.WinLossRatio)
	fmt.Fprintf(w, "Expectancy\t%.2f\n", m.Expectancy)
	fmt.Fprintf(w, "Best / worst\t%.2f / %.2f\n", m.BestTrade, m.WorstTrade)
	fmt.Fprintf(w, "Max drawdown\t%.2f\n", m.MaxDrawdown)
	fmt.Fprintf(w, "Recovery factor\t%.2f\n", m.RecoveryFactor)
	fmt.Fprintf(w, "Sharpe\t%.2f\n", m.SharpeRatio)
	fmt.Fprintf(w, "Streaks (W/L)\t%d / %d\n", m.MaxConsecutiveWins, m.MaxConsecutiveLosses)
	fmt.Fprintf(w, "Avg holding time\t%s\n", m.AverageHoldingTime)
	if m.SkippedRecords > 0 {
		fmt.Fprintf(w, "Skipped records\t%d\n", m.SkippedRecords)
	}
	w.Flush()
}

func printMonthly(out io.Writer, months []analytics.MonthlyPnL) {
	if len(months) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Month\tTrades\tP&L\t")
	for _, mo := range months {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t\n", mo.Month, mo.Trades, mo.PnL)
	}
	w.Flush()
}

func printGrades(out io.Writer, dist analytics.GradeDistribution) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Grades: A=%d B=%d C=%d D=%d None=%d\n",
		dist[analytics.BucketA], dist[analytics.BucketB], dist[analytics.BucketC], dist[analytics.BucketD], dist[analytics.BucketNone])
}

func printSymbols(out io.Writer, symbols []analytics.SymbolStats) {
	if len(symbols) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Symbol\tTrades\tClosed\tP&L\tWin rate")
	for _, s := range symbols {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.0f%%\n", s.Symbol, s.Trades, s.ClosedTrades, s.TotalPnL, s.WinRate*100)
	}
	w.Flush()
}
