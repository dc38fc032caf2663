package config

import (
	"testing"
	"time"
)

func TestNew_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := New(); err == nil {
		t.Fatalf("expected an error when DATABASE_URL is unset")
	}
}

func TestNew_FallsBackToDefaultsWhenUnset(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledgercore")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOCK_TTL_SECONDS", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.ServerPort)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected default redis addr, got %s", cfg.RedisAddr)
	}
	if cfg.LockTTL != 30*time.Second {
		t.Errorf("expected default lock ttl 30s, got %s", cfg.LockTTL)
	}
}

func TestNew_HonorsOverridesAndRejectsNonPositiveLockTTL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledgercore")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOCK_TTL_SECONDS", "-5")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("expected overridden port 9090, got %s", cfg.ServerPort)
	}
	if cfg.LockTTL != 30*time.Second {
		t.Errorf("expected a non-positive override to be ignored in favor of the default, got %s", cfg.LockTTL)
	}
}
