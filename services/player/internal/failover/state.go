// Package failover drives playback across an episode's servers and
// categories. Machine.Transition is a pure function from (State, Event) to
// the next State plus the Commands to run; Orchestrator owns a State and
// executes those Commands.
package failover

import (
	"errors"

	"github.com/example/anime-relay/services/player/internal/domain"
)

type Phase int

const (
	// PhaseIdle: no episode selected.
	PhaseIdle Phase = iota
	PhaseLoadingServers
	PhaseLoadingSource
	PhasePlaying
	// PhaseNoServers: the catalog loaded but the selected category is empty.
	// Nothing happens until the user picks something else.
	PhaseNoServers
	PhaseCatalogFailed
	// PhaseExhausted: every server of every category failed.
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingServers:
		return "loading_servers"
	case PhaseLoadingSource:
		return "loading_source"
	case PhasePlaying:
		return "playing"
	case PhaseNoServers:
		return "no_servers"
	case PhaseCatalogFailed:
		return "catalog_failed"
	case PhaseExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Terminal reports whether the phase waits for user input.
func (p Phase) Terminal() bool {
	return p == PhaseNoServers || p == PhaseCatalogFailed || p == PhaseExhausted
}

// Advance records how the last fatal failure was handled.
type Advance int

const (
	AdvanceNone Advance = iota
	AdvanceServer
	AdvanceCategory
)

func (a Advance) String() string {
	switch a {
	case AdvanceServer:
		return "server"
	case AdvanceCategory:
		return "category"
	}
	return "none"
}

var (
	ErrNoServers = errors.New("no servers available for this episode/category")
	ErrNoSources = errors.New("no streaming sources found for the selected server")
	ErrExhausted = errors.New("playback failed on every available server and category")
)

// Playback is what the player receives: the proxied URL of the chosen source.
type Playback struct {
	URL        string
	IsM3U8     bool
	Server     string
	Category   domain.Category
	Tracks     []domain.Track
	Generation uint64
}

type State struct {
	Phase     Phase
	EpisodeID string
	Category  domain.Category
	// Servers is the catalog of the last successful fetch; nil while loading.
	Servers     *domain.ServerCatalog
	ServerIndex int
	// Generation increases whenever a new fetch or playback attempt starts.
	// Async results carry the generation they were issued under.
	Generation uint64
	Active     *Playback
	// Err is the technical detail of the current condition. Message is what
	// the user sees.
	Err     error
	Message string
	// LastFailure is why the previous candidate was abandoned.
	LastFailure error
	LastAdvance Advance
}

// CurrentServer returns the server at ServerIndex, if the catalog has one.
func (s State) CurrentServer() (domain.ServerDescriptor, bool) {
	if s.Servers == nil {
		return domain.ServerDescriptor{}, false
	}
	list := s.Servers.For(s.Category)
	if s.ServerIndex < 0 || s.ServerIndex >= len(list) {
		return domain.ServerDescriptor{}, false
	}
	return list[s.ServerIndex], true
}

// Event is an input to Transition.
type Event interface{ event() }

type EpisodeSelected struct{ EpisodeID string }

type CategorySelected struct{ Category domain.Category }

type ServerSelected struct{ Name string }

type ServersLoaded struct {
	Generation uint64
	Catalog    domain.ServerCatalog
}

type ServersFailed struct {
	Generation uint64
	Err        error
}

type SourcesLoaded struct {
	Generation uint64
	Set        domain.SourceSet
}

type SourcesFailed struct {
	Generation uint64
	Err        error
}

// PlaybackFailed is the player's fatal error report. Kind is the player's
// error tag; Detail is opaque.
type PlaybackFailed struct {
	Generation uint64
	Kind       string
	Detail     any
}

func (EpisodeSelected) event()  {}
func (CategorySelected) event() {}
func (ServerSelected) event()   {}
func (ServersLoaded) event()    {}
func (ServersFailed) event()    {}
func (SourcesLoaded) event()    {}
func (SourcesFailed) event()    {}
func (PlaybackFailed) event()   {}

// Command is an effect requested by Transition.
type Command interface{ command() }

type FetchServers struct {
	Generation uint64
	EpisodeID  string
	Category   domain.Category
}

type FetchSources struct {
	Generation uint64
	EpisodeID  string
	Server     string
	Category   domain.Category
}

type Play struct{ Playback Playback }

// Stop unloads whatever the player is playing.
type Stop struct{}

func (FetchServers) command() {}
func (FetchSources) command() {}
func (Play) command()         {}
func (Stop) command()         {}
