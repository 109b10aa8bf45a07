package failover

import (
	"fmt"
	"strings"

	"github.com/example/anime-relay/internal/platform/streamurl"
	"github.com/example/anime-relay/services/player/internal/domain"
)

const (
	msgNoServers     = "No streaming servers found for this episode. Please try another episode or category."
	msgCatalogFailed = "Failed to load streaming servers. Please check your internet connection or try again later."
	msgExhausted     = "We couldn't start this episode anywhere. Please try again later or pick a different episode."
	msgUnknownServer = "Server %q is not available for %s."
	msgServerFailed  = "Server %q failed. Trying next..."
	msgCategoryNext  = "All %q servers failed. Switching to %s..."
)

// Machine holds the fixed inputs of the transition function.
type Machine struct {
	// ProxyBase is the stream proxy endpoint proxied URLs point at.
	ProxyBase string
}

// Transition applies ev to s. It never mutates s and performs no I/O.
func (m Machine) Transition(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case EpisodeSelected:
		return m.selectEpisode(s, ev.EpisodeID)
	case CategorySelected:
		return m.selectCategory(s, ev.Category)
	case ServerSelected:
		return m.selectServer(s, ev.Name)
	case ServersLoaded:
		if ev.Generation != s.Generation || s.Phase != PhaseLoadingServers {
			return s, nil
		}
		return m.serversLoaded(s, ev.Catalog)
	case ServersFailed:
		if ev.Generation != s.Generation || s.Phase != PhaseLoadingServers {
			return s, nil
		}
		s.Phase = PhaseCatalogFailed
		s.Servers = nil
		s.Err = ev.Err
		s.Message = msgCatalogFailed
		return s, nil
	case SourcesLoaded:
		if ev.Generation != s.Generation || s.Phase != PhaseLoadingSource {
			return s, nil
		}
		if len(ev.Set.Sources) == 0 {
			return m.advance(s, ErrNoSources)
		}
		return m.play(s, ev.Set)
	case SourcesFailed:
		if ev.Generation != s.Generation || s.Phase != PhaseLoadingSource {
			return s, nil
		}
		return m.advance(s, fmt.Errorf("resolve source: %w", ev.Err))
	case PlaybackFailed:
		if s.Phase != PhasePlaying || s.Active == nil || s.Active.Generation != ev.Generation {
			return s, nil
		}
		return m.advance(s, fmt.Errorf("fatal playback error %s: %v", ev.Kind, ev.Detail))
	}
	return s, nil
}

// dropActive drops the active source and error state ahead of a new attempt.
func dropActive(s State) (State, []Command) {
	var cmds []Command
	if s.Active != nil {
		cmds = append(cmds, Stop{})
	}
	s.Active = nil
	s.Err = nil
	s.Message = ""
	return s, cmds
}

func (m Machine) selectEpisode(s State, episodeID string) (State, []Command) {
	s, cmds := dropActive(s)
	s.EpisodeID = episodeID
	s.Category = domain.CategorySub
	s.ServerIndex = 0
	s.Servers = nil
	s.LastFailure = nil
	s.LastAdvance = AdvanceNone
	s.Generation++
	if episodeID == "" {
		s.Phase = PhaseIdle
		return s, cmds
	}
	return loadServers(s, cmds)
}

func (m Machine) selectCategory(s State, cat domain.Category) (State, []Command) {
	s, cmds := dropActive(s)
	s.Category = cat
	s.ServerIndex = 0
	s.LastFailure = nil
	s.LastAdvance = AdvanceNone
	s.Generation++
	if s.EpisodeID == "" {
		s.Phase = PhaseIdle
		return s, cmds
	}
	s.Servers = nil
	return loadServers(s, cmds)
}

func (m Machine) selectServer(s State, name string) (State, []Command) {
	if s.Servers == nil {
		return s, nil
	}
	idx := s.Servers.IndexOf(s.Category, name)
	if idx < 0 {
		s.Message = fmt.Sprintf(msgUnknownServer, name, strings.ToUpper(string(s.Category)))
		return s, nil
	}
	s, cmds := dropActive(s)
	s.ServerIndex = idx
	s.LastFailure = nil
	s.LastAdvance = AdvanceNone
	s.Generation++
	return loadSource(s, cmds)
}

func (m Machine) serversLoaded(s State, catalog domain.ServerCatalog) (State, []Command) {
	s.Servers = &catalog
	s.ServerIndex = 0
	if len(catalog.For(s.Category)) == 0 {
		s.Phase = PhaseNoServers
		s.Err = ErrNoServers
		s.Message = msgNoServers
		return s, nil
	}
	s.Generation++
	return loadSource(s, nil)
}

func (m Machine) play(s State, set domain.SourceSet) (State, []Command) {
	src := set.Sources[0]
	server, _ := s.CurrentServer()
	pb := Playback{
		URL:        streamurl.Build(m.ProxyBase, src.URL, set.Referer()),
		IsM3U8:     src.IsM3U8,
		Server:     server.Name,
		Category:   s.Category,
		Tracks:     set.Tracks,
		Generation: s.Generation,
	}
	s.Phase = PhasePlaying
	s.Active = &pb
	s.Err = nil
	s.Message = ""
	return s, []Command{Play{Playback: pb}}
}

// advance moves to the next server in the category, then to the next
// category that was not reported empty, then gives up.
func (m Machine) advance(s State, cause error) (State, []Command) {
	failed, _ := s.CurrentServer()
	s, cmds := dropActive(s)
	s.LastFailure = cause

	var list []domain.ServerDescriptor
	if s.Servers != nil {
		list = s.Servers.For(s.Category)
	}
	if s.ServerIndex+1 < len(list) {
		s.ServerIndex++
		s.Generation++
		s.LastAdvance = AdvanceServer
		s, cmds = loadSource(s, cmds)
		s.Message = fmt.Sprintf(msgServerFailed, failed.Name)
		return s, cmds
	}

	for next, ok := s.Category.Next(); ok; next, ok = next.Next() {
		if s.Servers != nil && s.Servers.KnownEmpty(next) {
			continue
		}
		prev := s.Category
		s.Category = next
		s.ServerIndex = 0
		s.Servers = nil
		s.Generation++
		s.LastAdvance = AdvanceCategory
		s, cmds = loadServers(s, cmds)
		s.Message = fmt.Sprintf(msgCategoryNext, prev, strings.ToUpper(string(next)))
		return s, cmds
	}

	s.Phase = PhaseExhausted
	s.LastAdvance = AdvanceNone
	s.Err = fmt.Errorf("%w: %v", ErrExhausted, cause)
	s.Message = msgExhausted
	return s, cmds
}

func loadServers(s State, cmds []Command) (State, []Command) {
	s.Phase = PhaseLoadingServers
	return s, append(cmds, FetchServers{Generation: s.Generation, EpisodeID: s.EpisodeID, Category: s.Category})
}

func loadSource(s State, cmds []Command) (State, []Command) {
	server, ok := s.CurrentServer()
	if !ok {
		return s, cmds
	}
	s.Phase = PhaseLoadingSource
	return s, append(cmds, FetchSources{
		Generation: s.Generation,
		EpisodeID:  s.EpisodeID,
		Server:     server.Name,
		Category:   s.Category,
	})
}
