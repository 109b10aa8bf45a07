package config

import (
	"time"

	"github.com/example/anime-relay/internal/platform/config"
	"github.com/example/anime-relay/internal/platform/streamurl"
)

type Config struct {
	LogLevel string
	// APIBaseURL is the aniwatch-style API root, without /api/v2.
	APIBaseURL string
	APITimeout time.Duration
	// ProxyURL is the stream proxy origin the players fetch from.
	ProxyURL   string
	ProxyRoute string

	BreakerMaxFailures uint32
	BreakerOpenFor     time.Duration

	Player        string
	PlayerCommand string

	// NATSURL enables playback analytics when set.
	NATSURL string
}

func Load() Config {
	return Config{
		LogLevel:           config.EnvString("LOG_LEVEL", "info"),
		APIBaseURL:         config.EnvString("HIANIME_API_URL", "https://aniwatch-api1.vercel.app"),
		APITimeout:         config.EnvDuration("HIANIME_TIMEOUT", 10*time.Second),
		ProxyURL:           config.EnvString("STREAM_PROXY_URL", "http://127.0.0.1:8080"),
		ProxyRoute:         config.EnvString("PROXY_ROUTE", streamurl.DefaultRoute),
		BreakerMaxFailures: uint32(config.EnvInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenFor:     config.EnvDuration("BREAKER_OPEN_FOR", 30*time.Second),
		Player:             config.EnvString("PLAYER", "probe"),
		PlayerCommand:      config.EnvString("PLAYER_COMMAND", "mpv"),
		NATSURL:            config.EnvString("ANALYTICS_NATS_URL", ""),
	}
}
