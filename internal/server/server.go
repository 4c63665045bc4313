// Package server assembles the HTTP surface of the tokenization API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-limiter"

	"rwatoken/internal/domain"
	"rwatoken/internal/handlers"
	"rwatoken/internal/logger"
	"rwatoken/internal/middleware"
	"rwatoken/internal/services"
)

// Check probes one dependency for the health endpoint.
type Check func(ctx context.Context) error

// Deps is everything the router needs.
type Deps struct {
	Tokenization   services.TokenizationServicer
	Tokens         services.TokenServicer
	Portfolios     services.PortfolioServicer
	Reconciliation services.ReconciliationServicer
	Creds          domain.IssuerCredentials

	JWTSecret     string
	JWTIssuer     string
	OpsAPIKeyHash string
	Throttle      limiter.Store
	BatchLimit    int

	Checks map[string]Check
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	tokenizationHandler := handlers.NewTokenizationHandler(d.Tokenization, d.Creds)
	tokenHandler := handlers.NewTokenHandler(d.Tokens, d.Portfolios)
	reconciliationHandler := handlers.NewReconciliationHandler(d.Reconciliation, d.BatchLimit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/api/health", health(d.Checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Throttle(d.Throttle))

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(d.JWTSecret, d.JWTIssuer))

	protected.POST("/tokenizations", tokenizationHandler.Tokenize)
	protected.GET("/tokenizations/tx/:hash", reconciliationHandler.GetTransactionStatus)
	protected.POST("/mpt/issuances", tokenizationHandler.MintMPT)

	protected.GET("/tokens", tokenHandler.ListTokens)
	protected.GET("/tokens/:symbol", tokenHandler.GetToken)
	protected.GET("/portfolio", tokenHandler.GetPortfolio)

	ops := v1.Group("/ops")
	ops.Use(middleware.OpsAuthMiddleware(d.OpsAPIKeyHash))
	ops.POST("/reconciliations/run", reconciliationHandler.RunPending)
	ops.POST("/reconciliations/:operationId", reconciliationHandler.Reconcile)

	return router
}

func health(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Get().Warnw("health check failed", "check", name, "error", err)
				results[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := gin.H{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}
