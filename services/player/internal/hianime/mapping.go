package hianime

import "github.com/example/anime-relay/services/player/internal/domain"

// servers keeps the nil/empty distinction: a category missing from the
// payload stays nil.
func servers(in []Server) []domain.ServerDescriptor {
	if in == nil {
		return nil
	}
	out := make([]domain.ServerDescriptor, 0, len(in))
	for _, s := range in {
		out = append(out, domain.ServerDescriptor{ID: s.ServerID, Name: s.ServerName})
	}
	return out
}

func (r *ServersResponse) catalog() domain.ServerCatalog {
	return domain.ServerCatalog{
		Sub: servers(r.Data.Sub),
		Dub: servers(r.Data.Dub),
		Raw: servers(r.Data.Raw),
	}
}

func (r *SourcesResponse) sourceSet() domain.SourceSet {
	set := domain.SourceSet{
		Headers: r.Data.Headers,
		Intro:   domain.Segment{Start: r.Data.Intro.Start, End: r.Data.Intro.End},
		Outro:   domain.Segment{Start: r.Data.Outro.Start, End: r.Data.Outro.End},
	}
	for _, s := range r.Data.Sources {
		set.Sources = append(set.Sources, domain.SourceDescriptor{URL: s.URL, IsM3U8: s.IsM3U8, Type: s.Type})
	}
	for _, t := range r.Data.Tracks {
		set.Tracks = append(set.Tracks, domain.Track{URL: t.URL, Lang: t.Lang})
	}
	return set
}

func (r *EpisodesResponse) episodes() []domain.Episode {
	out := make([]domain.Episode, 0, len(r.Data.Episodes))
	for _, e := range r.Data.Episodes {
		out = append(out, domain.Episode{ID: e.EpisodeID, Number: e.Number, Title: e.Title, IsFiller: e.IsFiller})
	}
	return out
}

func (r *SearchResponse) animes() []domain.AnimeSummary {
	out := make([]domain.AnimeSummary, 0, len(r.Data.Animes))
	for _, a := range r.Data.Animes {
		s := domain.AnimeSummary{ID: a.ID, Name: a.Name, JName: a.JName, Type: a.Type}
		s.Episodes.Sub = a.Episodes.Sub
		s.Episodes.Dub = a.Episodes.Dub
		out = append(out, s)
	}
	return out
}
