package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresServiceName(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when SERVICE_NAME is empty")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "stream-proxy")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "12")
	t.Setenv("CFG_TEST_BAD_INT", "twelve")
	t.Setenv("CFG_TEST_DUR", "250ms")
	t.Setenv("CFG_TEST_BOOL", "true")

	if got := EnvInt("CFG_TEST_INT", 1); got != 12 {
		t.Fatalf("EnvInt: want 12, got %d", got)
	}
	if got := EnvInt("CFG_TEST_BAD_INT", 1); got != 1 {
		t.Fatalf("EnvInt with bad value: want fallback 1, got %d", got)
	}
	if got := EnvDuration("CFG_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("EnvDuration: want 250ms, got %s", got)
	}
	if got := EnvDuration("CFG_TEST_MISSING", time.Second); got != time.Second {
		t.Fatalf("EnvDuration fallback: want 1s, got %s", got)
	}
	if !EnvBool("CFG_TEST_BOOL", false) {
		t.Fatal("EnvBool: want true")
	}
	if got := EnvString("CFG_TEST_MISSING", "x"); got != "x" {
		t.Fatalf("EnvString fallback: want x, got %q", got)
	}
}
