package failover

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/anime-relay/internal/platform/streamurl"
	"github.com/example/anime-relay/services/player/internal/domain"
)

type Catalog interface {
	ListServers(ctx context.Context, episodeID string) (domain.ServerCatalog, error)
}

type Resolver interface {
	ResolveSource(ctx context.Context, episodeID, serverName string, category domain.Category) (domain.SourceSet, error)
}

// FatalFunc is how a player reports an error it cannot recover from.
type FatalFunc func(kind string, detail any)

// Player consumes one Playback at a time. Load must return promptly and
// report fatal errors through onFatal, from any goroutine.
type Player interface {
	Load(ctx context.Context, pb Playback, onFatal FatalFunc)
	Unload()
}

// Observer is called from the event loop after every applied transition.
type Observer func(prev, next State)

type Orchestrator struct {
	machine   Machine
	catalog   Catalog
	resolver  Resolver
	player    Player
	log       *zap.Logger
	observers []Observer

	events chan Event
	done   chan struct{}

	mu    sync.Mutex
	state State

	cancelFetch context.CancelFunc
	cancelPlay  context.CancelFunc
}

type Option func(*Orchestrator)

func WithProxyBase(base string) Option {
	return func(o *Orchestrator) { o.machine.ProxyBase = base }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

func New(catalog Catalog, resolver Resolver, player Player, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		machine:  Machine{ProxyBase: streamurl.DefaultRoute},
		catalog:  catalog,
		resolver: resolver,
		player:   player,
		log:      zap.NewNop(),
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
		state:    State{Category: domain.CategorySub},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Dispatch queues ev for the event loop. It is a no-op once Run returned.
func (o *Orchestrator) Dispatch(ev Event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

func (o *Orchestrator) SelectEpisode(id string) { o.Dispatch(EpisodeSelected{EpisodeID: id}) }

func (o *Orchestrator) SelectCategory(c domain.Category) { o.Dispatch(CategorySelected{Category: c}) }

func (o *Orchestrator) SelectServer(name string) { o.Dispatch(ServerSelected{Name: name}) }

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run owns the state until ctx is done. Fetches run on their own goroutines
// and come back as events.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	defer o.shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-o.events:
			o.apply(ctx, ev)
		}
	}
}

func (o *Orchestrator) apply(ctx context.Context, ev Event) {
	o.mu.Lock()
	prev := o.state
	next, cmds := o.machine.Transition(prev, ev)
	o.state = next
	o.mu.Unlock()

	if next.Generation == prev.Generation && next.Phase == prev.Phase && next.Message == prev.Message && len(cmds) == 0 {
		o.log.Debug("event ignored", zap.String("event", eventName(ev)), zap.Uint64("generation", prev.Generation))
		return
	}
	switch ev.(type) {
	case SourcesLoaded, SourcesFailed, PlaybackFailed:
		if next.Phase != PhasePlaying && next.LastFailure != nil {
			o.log.Warn("candidate failed",
				zap.String("episode", next.EpisodeID),
				zap.String("advance", next.LastAdvance.String()),
				zap.Error(next.LastFailure),
			)
		}
	}
	if next.Phase.Terminal() && next.Phase != prev.Phase {
		o.log.Warn("playback stalled", zap.String("phase", next.Phase.String()), zap.Error(next.Err))
	}
	for _, obs := range o.observers {
		obs(prev, next)
	}
	for _, cmd := range cmds {
		o.execute(ctx, cmd)
	}
}

func (o *Orchestrator) execute(ctx context.Context, cmd Command) {
	switch cmd := cmd.(type) {
	case Stop:
		o.stopPlayer()
	case FetchServers:
		fctx := o.newFetchContext(ctx)
		o.log.Debug("fetching servers", zap.String("episode", cmd.EpisodeID), zap.String("category", string(cmd.Category)))
		go func() {
			catalog, err := o.catalog.ListServers(fctx, cmd.EpisodeID)
			if err != nil {
				o.Dispatch(ServersFailed{Generation: cmd.Generation, Err: err})
				return
			}
			o.Dispatch(ServersLoaded{Generation: cmd.Generation, Catalog: catalog})
		}()
	case FetchSources:
		fctx := o.newFetchContext(ctx)
		o.log.Debug("resolving source",
			zap.String("episode", cmd.EpisodeID),
			zap.String("server", cmd.Server),
			zap.String("category", string(cmd.Category)),
		)
		go func() {
			set, err := o.resolver.ResolveSource(fctx, cmd.EpisodeID, cmd.Server, cmd.Category)
			if err != nil {
				o.Dispatch(SourcesFailed{Generation: cmd.Generation, Err: err})
				return
			}
			o.Dispatch(SourcesLoaded{Generation: cmd.Generation, Set: set})
		}()
	case Play:
		o.stopPlayer()
		pctx, cancel := context.WithCancel(ctx)
		o.cancelPlay = cancel
		gen := cmd.Playback.Generation
		o.log.Info("playback starting",
			zap.String("server", cmd.Playback.Server),
			zap.String("category", string(cmd.Playback.Category)),
			zap.Bool("m3u8", cmd.Playback.IsM3U8),
		)
		o.player.Load(pctx, cmd.Playback, func(kind string, detail any) {
			o.Dispatch(PlaybackFailed{Generation: gen, Kind: kind, Detail: detail})
		})
	}
}

// newFetchContext cancels the previous in-flight fetch, whose result would be
// stale anyway.
func (o *Orchestrator) newFetchContext(ctx context.Context) context.Context {
	if o.cancelFetch != nil {
		o.cancelFetch()
	}
	fctx, cancel := context.WithCancel(ctx)
	o.cancelFetch = cancel
	return fctx
}

func (o *Orchestrator) stopPlayer() {
	if o.cancelPlay == nil {
		return
	}
	o.cancelPlay()
	o.cancelPlay = nil
	o.player.Unload()
}

func (o *Orchestrator) shutdown() {
	if o.cancelFetch != nil {
		o.cancelFetch()
	}
	o.stopPlayer()
}

func eventName(ev Event) string {
	switch ev.(type) {
	case EpisodeSelected:
		return "episode_selected"
	case CategorySelected:
		return "category_selected"
	case ServerSelected:
		return "server_selected"
	case ServersLoaded:
		return "servers_loaded"
	case ServersFailed:
		return "servers_failed"
	case SourcesLoaded:
		return "sources_loaded"
	case SourcesFailed:
		return "sources_failed"
	case PlaybackFailed:
		return "playback_failed"
	}
	return "unknown"
}
