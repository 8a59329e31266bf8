package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradejournal/config"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/app"
	"tradejournal/internal/ports"
	"tradejournal/internal/risk"
)

// NewRootCmd builds the journalctl command tree.
func NewRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:   "journalctl",
		Short: "Inspect and maintain the trading journal",
		Long: `journalctl works directly on the journal's SQLite database.

Subcommands:
  metrics  - Print the performance summary
  close    - Close an open trade at a proposed exit price
  export   - Write all trades to a CSV file
  import   - Load trades from a CSV file
  chart    - Render the monthly P&L and equity curve as HTML

Examples:
  journalctl metrics
  journalctl close 3f0c... 1.0842
  journalctl export trades.csv --db ./data/journal.db`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (default: DB_PATH from the environment)")

	open := func() (*app.JournalService, func(), error) {
		return openJournal(dbPath)
	}
	root.AddCommand(
		newMetricsCmd(open),
		newCloseCmd(open),
		newExportCmd(open),
		newImportCmd(open),
		newChartCmd(open),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

type journalOpener func() (*app.JournalService, func(), error)

func openJournal(dbPath string) (*app.JournalService, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if dbPath == "" {
		dbPath = cfg.DBPath
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: dbPath, Logger: ports.NopLogger{}})
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	svc, err := app.NewJournalService(ports.NopLogger{}, repo, risk.NewRiskManager(risk.RiskConfig{
		MaxLotSize:    cfg.MaxLotSize,
		MinRiskReward: cfg.MinRiskReward,
	}))
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	return svc, func() { repo.Close() }, nil
}
