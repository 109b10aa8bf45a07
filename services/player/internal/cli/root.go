// Package cli implements the animeplay command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/anime-relay/internal/platform/analytics"
	"github.com/example/anime-relay/internal/platform/logging"
	"github.com/example/anime-relay/internal/platform/natsconn"
	"github.com/example/anime-relay/services/player/internal/config"
	"github.com/example/anime-relay/services/player/internal/hianime"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	api     hianime.Provider
	pub     *analytics.Publisher
	cleanup []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// NewRootCommand builds the command tree. cfg supplies the flag defaults.
func NewRootCommand(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:           "animeplay",
		Short:         "Play anime episodes through the stream proxy with automatic server failover",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "Root URL of the anime data API")
	pf.StringVar(&a.cfg.ProxyURL, "proxy-url", cfg.ProxyURL, "Origin of the stream proxy")
	pf.StringVar(&a.cfg.ProxyRoute, "proxy-route", cfg.ProxyRoute, "Path of the stream proxy endpoint")
	pf.StringVar(&a.cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(
		newWatchCommand(a),
		newEpisodeCommand(a),
		newServersCommand(a),
		newSearchCommand(a),
	)
	return root
}

func (a *app) setup() error {
	log, err := logging.NewConsole(a.cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.cleanup = append(a.cleanup, func() { _ = log.Sync() })

	if a.api == nil {
		a.api = hianime.New(a.cfg.APIBaseURL,
			hianime.ClientConfig{Timeout: a.cfg.APITimeout},
			hianime.WithLogger(log.Named("hianime")),
			hianime.WithCircuitBreaker(hianime.NewBreaker("hianime", a.cfg.BreakerMaxFailures, a.cfg.BreakerOpenFor, log)),
		)
	}

	if a.cfg.NATSURL != "" {
		nc, js, err := natsconn.JetStream(natsconn.Options{URL: a.cfg.NATSURL, Name: "animeplay"})
		if err != nil {
			// Analytics are optional; playback goes on without them.
			log.Warn("analytics disabled", zap.Error(err))
		} else {
			a.pub = analytics.New(js, log.Named("analytics"))
			a.cleanup = append(a.cleanup, func() { _ = nc.Drain() })
		}
	}
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(config.Load())
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
