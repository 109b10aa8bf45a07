package config

import (
	"time"

	"github.com/example/anime-relay/internal/platform/config"
	"github.com/example/anime-relay/internal/platform/streamurl"
)

type Config struct {
	// Route is where the proxy endpoint is mounted.
	Route string
	// PublicBaseURL, when set, prefixes Route in rewritten playlist entries.
	PublicBaseURL         string
	UserAgent             string
	ResponseHeaderTimeout time.Duration
	MaxManifestBytes      int64
	RewriteTagURIs        bool
	MetricsEnabled        bool
}

func Load() Config {
	return Config{
		Route:                 config.EnvString("PROXY_ROUTE", streamurl.DefaultRoute),
		PublicBaseURL:         config.EnvString("PUBLIC_BASE_URL", ""),
		UserAgent:             config.EnvString("UPSTREAM_USER_AGENT", ""),
		ResponseHeaderTimeout: config.EnvDuration("UPSTREAM_HEADER_TIMEOUT", 20*time.Second),
		MaxManifestBytes:      config.EnvInt64("MANIFEST_MAX_BYTES", 8<<20),
		RewriteTagURIs:        config.EnvBool("REWRITE_TAG_URIS", false),
		MetricsEnabled:        config.EnvBool("METRICS_ENABLED", true),
	}
}

// ProxyBase is the prefix written into rewritten playlist entries.
func (c Config) ProxyBase() string {
	if c.PublicBaseURL == "" {
		return c.Route
	}
	base := c.PublicBaseURL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + c.Route
}
