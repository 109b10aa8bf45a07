// Package telemetry turns orchestrator transitions into analytics events.
package telemetry

import (
	"github.com/example/anime-relay/internal/platform/analytics"
	"github.com/example/anime-relay/services/player/internal/failover"
)

// Publisher is satisfied by *analytics.Publisher.
type Publisher interface {
	Publish(subject, eventName, sessionID string, props map[string]any)
}

var _ Publisher = (*analytics.Publisher)(nil)

// Observer publishes one event per notable transition of a session.
func Observer(pub Publisher, sessionID string) failover.Observer {
	return func(prev, next failover.State) {
		if next.Phase == prev.Phase && next.Generation == prev.Generation {
			return
		}
		props := map[string]any{
			"episode_id": next.EpisodeID,
			"category":   string(next.Category),
		}
		switch {
		case next.Phase == failover.PhasePlaying && next.Active != nil:
			props["server"] = next.Active.Server
			props["m3u8"] = next.Active.IsM3U8
			pub.Publish(analytics.SubjectPlaybackStarted, "playback_started", sessionID, props)
		case next.LastAdvance != failover.AdvanceNone && next.LastFailure != nil && next.LastFailure != prev.LastFailure:
			props["advance"] = next.LastAdvance.String()
			props["reason"] = next.LastFailure.Error()
			pub.Publish(analytics.SubjectPlaybackFailover, "playback_failover", sessionID, props)
		case next.Phase == failover.PhaseExhausted && prev.Phase != failover.PhaseExhausted:
			if next.Err != nil {
				props["reason"] = next.Err.Error()
			}
			pub.Publish(analytics.SubjectPlaybackExhausted, "playback_exhausted", sessionID, props)
		case next.Phase == failover.PhaseCatalogFailed && prev.Phase != failover.PhaseCatalogFailed:
			pub.Publish(analytics.SubjectCatalogFailed, "catalog_failed", sessionID, props)
		}
	}
}
