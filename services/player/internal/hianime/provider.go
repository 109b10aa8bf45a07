package hianime

import (
	"context"

	"github.com/example/anime-relay/services/player/internal/domain"
)

// Provider is the port for fetching playback data from the HiAnime API.
type Provider interface {
	ListServers(ctx context.Context, episodeID string) (domain.ServerCatalog, error)
	ResolveSource(ctx context.Context, episodeID, serverName string, category domain.Category) (domain.SourceSet, error)
	Episodes(ctx context.Context, animeID string) ([]domain.Episode, error)
	Search(ctx context.Context, query string, page int) ([]domain.AnimeSummary, error)
}

var _ Provider = (*Client)(nil)
