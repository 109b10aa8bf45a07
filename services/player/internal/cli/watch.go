package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/anime-relay/services/player/internal/domain"
	"github.com/example/anime-relay/services/player/internal/failover"
	"github.com/example/anime-relay/services/player/internal/player"
	"github.com/example/anime-relay/services/player/internal/telemetry"
)

type playOptions struct {
	category string
	server   string
	player   string
	command  string
}

func (o *playOptions) bind(cmd *cobra.Command, a *app) {
	f := cmd.Flags()
	f.StringVarP(&o.category, "category", "c", "", "Start from this category (sub, dub, raw)")
	f.StringVarP(&o.server, "server", "s", "", "Start from this server instead of the first one")
	f.StringVarP(&o.player, "player", "p", a.cfg.Player, "Player to use: probe or exec")
	f.StringVar(&o.command, "player-command", a.cfg.PlayerCommand, "External player binary for --player exec")
}

func newWatchCommand(a *app) *cobra.Command {
	var (
		opts   playOptions
		number int
	)
	cmd := &cobra.Command{
		Use:   "watch <anime-id>",
		Short: "Play an episode of an anime, failing over across servers and categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodes, err := a.api.Episodes(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load episodes: %w", err)
			}
			ep, err := pickEpisode(episodes, number)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Episode %d: %s\n", ep.Number, ep.Title)
			return a.play(cmd.Context(), cmd.OutOrStdout(), ep.ID, opts)
		},
	}
	cmd.Flags().IntVarP(&number, "episode", "e", 0, "Episode number (default: first episode)")
	opts.bind(cmd, a)
	return cmd
}

func newEpisodeCommand(a *app) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "episode <episode-id>",
		Short: "Play an episode by its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	opts.bind(cmd, a)
	return cmd
}

func pickEpisode(episodes []domain.Episode, number int) (domain.Episode, error) {
	if len(episodes) == 0 {
		return domain.Episode{}, errors.New("no episodes available")
	}
	if number <= 0 {
		return episodes[0], nil
	}
	for _, ep := range episodes {
		if ep.Number == number {
			return ep, nil
		}
	}
	return domain.Episode{}, fmt.Errorf("episode %d not found", number)
}

// newPlayer builds the selected player. ready fires when the probe confirmed
// playback; exited fires when an external player closed cleanly.
func (a *app) newPlayer(opts playOptions, ready, exited func(failover.Playback)) (failover.Player, error) {
	switch opts.player {
	case "probe":
		return player.NewProbe(a.cfg.ProxyURL,
			player.WithProbeLogger(a.log.Named("probe")),
			player.WithReady(ready),
		), nil
	case "exec":
		return player.NewExec(a.cfg.ProxyURL, opts.command, nil, a.log.Named("exec"), exited), nil
	}
	return nil, fmt.Errorf("unknown player %q (want probe or exec)", opts.player)
}

// lockedWriter serializes output from the event loop and player goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// play runs one failover session until the player confirms playback, the
// orchestrator stalls, or ctx ends.
func (a *app) play(ctx context.Context, w io.Writer, episodeID string, opts playOptions) error {
	category := domain.CategorySub
	if opts.category != "" {
		c, err := domain.ParseCategory(opts.category)
		if err != nil {
			return err
		}
		category = c
	}

	out := &lockedWriter{w: w}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	finish := func(err error) {
		select {
		case result <- err:
		default:
		}
	}

	p, err := a.newPlayer(opts,
		func(pb failover.Playback) {
			fmt.Fprintf(out, "Playing %s on server %s\n", strings.ToUpper(string(pb.Category)), pb.Server)
			finish(nil)
		},
		func(pb failover.Playback) {
			fmt.Fprintf(out, "Player closed (%s on server %s)\n", strings.ToUpper(string(pb.Category)), pb.Server)
			finish(nil)
		},
	)
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	pendingServer := opts.server
	var orch *failover.Orchestrator
	orchOpts := []failover.Option{
		failover.WithProxyBase(a.cfg.ProxyRoute),
		failover.WithLogger(a.log.Named("failover").With(zap.String("session", sessionID))),
		failover.WithObserver(func(prev, next failover.State) {
			if next.Message != "" && next.Message != prev.Message {
				fmt.Fprintln(out, next.Message)
			}
			if pendingServer != "" && next.Phase == failover.PhaseLoadingSource && next.Category == category {
				name := pendingServer
				pendingServer = ""
				if cur, ok := next.CurrentServer(); !ok || !strings.EqualFold(cur.Name, name) {
					go orch.SelectServer(name)
				}
			}
			if next.Phase.Terminal() && next.Phase != prev.Phase {
				finish(errors.New(next.Message))
			}
		}),
	}
	if a.pub != nil {
		orchOpts = append(orchOpts, failover.WithObserver(telemetry.Observer(a.pub, sessionID)))
	}
	orch = failover.New(a.api, a.api, p, orchOpts...)

	loopDone := make(chan error, 1)
	go func() { loopDone <- orch.Run(ctx) }()

	orch.SelectEpisode(episodeID)
	if category != domain.CategorySub {
		orch.SelectCategory(category)
	}

	select {
	case err := <-result:
		cancel()
		<-loopDone
		return err
	case <-ctx.Done():
		<-loopDone
		return ctx.Err()
	}
}
