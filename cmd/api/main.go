package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rwatoken/internal/cache"
	"rwatoken/internal/config"
	"rwatoken/internal/database"
	"rwatoken/internal/domain"
	"rwatoken/internal/ledger"
	"rwatoken/internal/logger"
	"rwatoken/internal/middleware"
	"rwatoken/internal/server"
	"rwatoken/internal/services"
	"rwatoken/internal/validator"
)

// @title           RWA Tokenization API
// @version         1.0
// @description     Issues tokens backed by real-world assets on the XRP Ledger and keeps the off-ledger records in step.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Shared cache
	sharedCache, err := cache.New(cache.Options{
		Backend:       appConfig.CacheBackend,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		MemcacheAddrs: appConfig.MemcacheAddrs,
	})
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	defer func() { _ = sharedCache.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ledger node
	dialCtx, cancelDial := context.WithTimeout(ctx, appConfig.LedgerTimeout)
	ledgerClient, err := ledger.Dial(dialCtx, ledger.Config{
		URL:          appConfig.LedgerRPCURL,
		Timeout:      appConfig.LedgerTimeout,
		LedgerOffset: appConfig.LedgerOffset,
	})
	cancelDial()
	if err != nil {
		return fmt.Errorf("failed to connect to ledger node: %w", err)
	}
	defer ledgerClient.Close()
	info := ledgerClient.Info()
	log.Infow("connected to ledger node",
		"url", appConfig.LedgerRPCURL,
		"build_version", info.BuildVersion,
		"server_state", info.ServerState,
		"network_id", info.NetworkID,
	)

	if appConfig.IssuerAddress == "" || appConfig.IssuerSecret == "" {
		log.Warn("ISSUER_ADDRESS/ISSUER_SECRET are not set; tokenization requests will be refused")
	}

	throttle, err := middleware.NewThrottleStore(appConfig.ThrottleRate, appConfig.ThrottlePeriod)
	if err != nil {
		return fmt.Errorf("failed to create throttle store: %w", err)
	}
	defer middleware.CloseThrottleStore(context.Background(), throttle)

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	portfolioService := services.NewPortfolioService(db)
	auditService := services.NewAuditService(db)
	tokenizationService := services.NewTokenizationService(
		db, sharedCache, ledger.NewSubmitter(ledgerClient, appConfig.LedgerPollInterval),
		portfolioService, auditService,
		services.TokenizationConfig{
			LockTTL:       appConfig.LockTTL,
			SubmitTimeout: appConfig.LedgerSubmitTimeout,
			RateLimit:     appConfig.RateLimit,
			RateWindow:    appConfig.RateWindow,
		},
	)
	reconciliationService := services.NewReconciliationService(db, sharedCache, ledgerClient, portfolioService, auditService)

	router := server.NewRouter(server.Deps{
		Tokenization:   tokenizationService,
		Tokens:         services.NewTokenService(db),
		Portfolios:     portfolioService,
		Reconciliation: reconciliationService,
		Creds: domain.IssuerCredentials{
			Address:            appConfig.IssuerAddress,
			Secret:             appConfig.IssuerSecret,
			DistributorAddress: appConfig.DistributorAddress,
			DistributorSecret:  appConfig.DistributorSecret,
		},
		JWTSecret:     appConfig.JWTSecret,
		JWTIssuer:     appConfig.JWTIssuer,
		OpsAPIKeyHash: appConfig.OpsAPIKeyHash,
		Throttle:      throttle,
		BatchLimit:    appConfig.ReconcileBatch,
		Checks: map[string]server.Check{
			"database": dbManager.Ping,
			"cache":    sharedCache.Ping,
			"ledger": func(ctx context.Context) error {
				_, err := ledgerClient.LedgerCurrent(ctx)
				return err
			},
		},
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting tokenization API on port %s", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// In-flight tokenizations may be waiting on the ledger; give them the
	// full submit timeout to finish bookkeeping.
	log.Info("Shutting down tokenization API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.LedgerSubmitTimeout+30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
