package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tradejournal/internal/adapters/report"
	"tradejournal/internal/analytics"
)

func newCloseCmd(open journalOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "close <trade-id> <exit-price>",
		Short: "Close an open trade",
		Long: `Close an open trade at the proposed exit price.

A price at or beyond the take profit closes at the take profit, and a price at
or beyond the stop loss closes at the stop loss.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("exit price %q is not a number", args[1])
			}
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			trade, err := svc.CloseTrade(cmd.Context(), args[0], price)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %s %s at %v (%s), P&L %.2f\n",
				trade.Symbol, trade.ID, *trade.ExitPrice, *trade.ExitReason, *trade.PnL)
			return nil
		},
	}
}

func newExportCmd(open journalOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write all trades to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			trades, err := svc.AllTrades(cmd.Context())
			if err != nil {
				return err
			}
			if err := report.ExportCSV(args[0], trades); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d trades to %s\n", len(trades), args[0])
			return nil
		},
	}
}

func newImportCmd(open journalOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load trades from a CSV file",
		Long:  "Load trades from a CSV file written by export. Trades whose id already exists are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := report.ImportCSV(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := svc.ImportTrades(cmd.Context(), trades)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d trades\n", n, len(trades))
			return nil
		},
	}
}

func newChartCmd(open journalOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "chart <file.html>",
		Short: "Render the monthly P&L and equity curve as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			trades, err := svc.AllTrades(cmd.Context())
			if err != nil {
				return err
			}
			if err := report.WritePerformanceHTML(args[0], analytics.AnalyzePerformance(trades)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
}
