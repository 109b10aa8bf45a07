package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HIANIME_API_URL", "HIANIME_TIMEOUT", "STREAM_PROXY_URL", "PROXY_ROUTE", "BREAKER_MAX_FAILURES", "PLAYER", "ANALYTICS_NATS_URL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.APIBaseURL != "https://aniwatch-api1.vercel.app" {
		t.Fatalf("unexpected api url %q", cfg.APIBaseURL)
	}
	if cfg.ProxyRoute != "/api/stream" || cfg.Player != "probe" || cfg.BreakerMaxFailures != 5 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.APITimeout != 10*time.Second || cfg.NATSURL != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HIANIME_API_URL", "http://localhost:4000")
	t.Setenv("PLAYER", "exec")
	t.Setenv("BREAKER_MAX_FAILURES", "2")
	cfg := Load()
	if cfg.APIBaseURL != "http://localhost:4000" || cfg.Player != "exec" || cfg.BreakerMaxFailures != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
