package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LOCK_TTL", "LEDGER_SUBMIT_TIMEOUT", "RATE_LIMIT", "MEMCACHE_ADDRS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LockTTL != 30*time.Minute {
		t.Errorf("LockTTL = %s, want 30m", cfg.LockTTL)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("RateLimit = %d, want 10", cfg.RateLimit)
	}
	if cfg.MemcacheAddrs != nil {
		t.Errorf("MemcacheAddrs = %v, want nil", cfg.MemcacheAddrs)
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	t.Setenv("LOCK_TTL", "45m")
	t.Setenv("RATE_LIMIT", "3")
	t.Setenv("RATE_WINDOW", "10s")
	t.Setenv("MEMCACHE_ADDRS", "a:11211, b:11211,,")
	t.Setenv("LEDGER_OFFSET", "not-a-number")

	cfg, _ := Load()
	if cfg.LockTTL != 45*time.Minute {
		t.Errorf("LockTTL = %s, want 45m", cfg.LockTTL)
	}
	if cfg.RateLimit != 3 || cfg.RateWindow != 10*time.Second {
		t.Errorf("rate = %d/%s, want 3/10s", cfg.RateLimit, cfg.RateWindow)
	}
	if len(cfg.MemcacheAddrs) != 2 || cfg.MemcacheAddrs[1] != "b:11211" {
		t.Errorf("MemcacheAddrs = %v", cfg.MemcacheAddrs)
	}
	if cfg.LedgerOffset != 20 {
		t.Errorf("LedgerOffset = %d, want default 20", cfg.LedgerOffset)
	}
}

func TestLoad_LockOutlivesSubmission(t *testing.T) {
	t.Setenv("LOCK_TTL", "1m")
	t.Setenv("LEDGER_SUBMIT_TIMEOUT", "5m")

	cfg, _ := Load()
	if cfg.LockTTL <= cfg.LedgerSubmitTimeout {
		t.Errorf("LockTTL %s must exceed LedgerSubmitTimeout %s", cfg.LockTTL, cfg.LedgerSubmitTimeout)
	}
}
