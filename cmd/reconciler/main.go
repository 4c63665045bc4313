// Command reconciler makes one pass over open reconciliation tasks and
// exits. Run it from cron; it never submits ledger transactions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rwatoken/internal/cache"
	"rwatoken/internal/config"
	"rwatoken/internal/database"
	"rwatoken/internal/ledger"
	"rwatoken/internal/logger"
	"rwatoken/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))

	code, err := run()
	if err != nil {
		logger.Get().Errorw("reconciler run failed", "error", err)
		code = 1
	}
	logger.Sync()
	os.Exit(code)
}

func run() (int, error) {
	log := logger.Get()
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("configuration error: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return 0, fmt.Errorf("failed to load database configuration: %w", err)
	}
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return 0, fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	sharedCache, err := cache.New(cache.Options{
		Backend:       cfg.CacheBackend,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		MemcacheAddrs: cfg.MemcacheAddrs,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create cache: %w", err)
	}
	defer func() { _ = sharedCache.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerClient, err := ledger.Dial(ctx, ledger.Config{
		URL:          cfg.LedgerRPCURL,
		Timeout:      cfg.LedgerTimeout,
		LedgerOffset: cfg.LedgerOffset,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to connect to ledger node: %w", err)
	}
	defer ledgerClient.Close()

	db := dbManager.DB()
	portfolioService := services.NewPortfolioService(db)
	reconciler := services.NewReconciliationService(db, sharedCache, ledgerClient, portfolioService, services.NewAuditService(db))

	result := reconciler.ReconcilePending(ctx, cfg.ReconcileBatch)

	log.Infow("reconciler run completed",
		"scanned", result.Scanned,
		"resolved", result.Resolved,
		"abandoned", result.Abandoned,
		"waiting", result.Waiting,
		"failed", result.Failed,
		"duration", time.Since(start).String(),
	)
	for opID, msg := range result.Errors {
		log.Warnw("reconciliation failed",
			"operation_id", opID,
			"error", msg,
		)
	}

	if result.Failed > 0 {
		return 2, nil
	}
	return 0, nil
}
