package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tradejournal/config"
	"tradejournal/internal/adapters/httpapi"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/app"
	"tradejournal/internal/risk"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Application Service
	riskManager := risk.NewRiskManager(risk.RiskConfig{
		MaxLotSize:    cfg.MaxLotSize,
		MinRiskReward: cfg.MinRiskReward,
	})
	journal, err := app.NewJournalService(appLogger, repo, riskManager)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize journal service: %v", err)
	}
	journal.SetPageSize(cfg.MaxPageLimit)

	// 5. Initialize HTTP Server
	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:             cfg.HTTPAddr,
		Prefix:           cfg.APIPrefix,
		Journal:          journal,
		Logger:           appLogger,
		DefaultPageLimit: cfg.DefaultPageLimit,
		MaxPageLimit:     cfg.MaxPageLimit,
		ReadTimeout:      cfg.ReadTimeout,
		ShutdownTimeout:  cfg.ShutdownTimeout,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	// 6. Run until a signal arrives or the listener fails
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutdown requested")
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), err, "Server exited with error")
		stop()
		repo.Close()
		os.Exit(1)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
