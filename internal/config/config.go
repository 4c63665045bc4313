package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Auth
	JWTSecret      string
	JWTIssuer      string
	OpsAPIKeyHash  string
	ThrottleRate   uint64
	ThrottlePeriod time.Duration

	// Cache
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MemcacheAddrs []string

	// Ledger
	LedgerRPCURL        string
	LedgerTimeout       time.Duration
	LedgerSubmitTimeout time.Duration
	LedgerPollInterval  time.Duration
	LedgerOffset        uint32

	// Issuer key material
	IssuerAddress      string
	IssuerSecret       string
	DistributorAddress string
	DistributorSecret  string

	// Tokenization
	LockTTL    time.Duration
	RateLimit  int64
	RateWindow time.Duration

	// Reconciliation
	ReconcileBatch int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		// Auth
		JWTSecret:      getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		JWTIssuer:      getEnv("JWT_ISSUER", ""),
		OpsAPIKeyHash:  getEnv("OPS_API_KEY_HASH", ""),
		ThrottleRate:   uint64(getInt("THROTTLE_RATE", 60)),
		ThrottlePeriod: getDuration("THROTTLE_PERIOD", time.Minute),

		// Cache
		CacheBackend:  getEnv("CACHE_BACKEND", "redis"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       int(getInt("REDIS_DB", 0)),
		MemcacheAddrs: splitList(getEnv("MEMCACHE_ADDRS", "")),

		// Ledger
		LedgerRPCURL:        getEnv("LEDGER_RPC_URL", "https://s.altnet.rippletest.net:51234"),
		LedgerTimeout:       getDuration("LEDGER_TIMEOUT", 30*time.Second),
		LedgerSubmitTimeout: getDuration("LEDGER_SUBMIT_TIMEOUT", 2*time.Minute),
		LedgerPollInterval:  getDuration("LEDGER_POLL_INTERVAL", time.Second),
		LedgerOffset:        uint32(getInt("LEDGER_OFFSET", 20)),

		// Issuer key material
		IssuerAddress:      getEnv("ISSUER_ADDRESS", ""),
		IssuerSecret:       getEnv("ISSUER_SECRET", ""),
		DistributorAddress: getEnv("DISTRIBUTOR_ADDRESS", ""),
		DistributorSecret:  getEnv("DISTRIBUTOR_SECRET", ""),

		// Tokenization
		LockTTL:    getDuration("LOCK_TTL", 30*time.Minute),
		RateLimit:  getInt("RATE_LIMIT", 10),
		RateWindow: getDuration("RATE_WINDOW", time.Hour),

		// Reconciliation
		ReconcileBatch: int(getInt("RECONCILE_BATCH", 50)),
	}

	if config.LockTTL <= config.LedgerSubmitTimeout {
		log.Printf("Warning: LOCK_TTL %s is not longer than LEDGER_SUBMIT_TIMEOUT %s, raising it\n",
			config.LockTTL, config.LedgerSubmitTimeout)
		config.LockTTL = 2 * config.LedgerSubmitTimeout
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int64) int64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
