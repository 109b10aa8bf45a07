package hianime

// Envelope is the wrapper every API response shares. Older deployments report
// success with status 200, newer ones with success true.
type Envelope struct {
	Status  int   `json:"status"`
	Success *bool `json:"success"`
}

func (e *Envelope) ok() bool {
	if e.Success != nil && !*e.Success {
		return false
	}
	return e.Status == 0 || e.Status == 200
}

type Server struct {
	ServerName string `json:"serverName"`
	ServerID   int    `json:"serverId"`
}

type ServersResponse struct {
	Envelope
	Data struct {
		Sub       []Server `json:"sub"`
		Dub       []Server `json:"dub"`
		Raw       []Server `json:"raw"`
		EpisodeID string   `json:"episodeId"`
		EpisodeNo int      `json:"episodeNo"`
	} `json:"data"`
}

type SourcesResponse struct {
	Envelope
	Data struct {
		Headers map[string]string `json:"headers"`
		Tracks  []struct {
			URL  string `json:"url"`
			Lang string `json:"lang"`
		} `json:"tracks"`
		Intro struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"intro"`
		Outro struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"outro"`
		Sources []struct {
			URL    string `json:"url"`
			IsM3U8 bool   `json:"isM3U8"`
			Type   string `json:"type"`
		} `json:"sources"`
	} `json:"data"`
}

type EpisodesResponse struct {
	Envelope
	Data struct {
		TotalEpisodes int `json:"totalEpisodes"`
		Episodes      []struct {
			Title     string `json:"title"`
			EpisodeID string `json:"episodeId"`
			Number    int    `json:"number"`
			IsFiller  bool   `json:"isFiller"`
		} `json:"episodes"`
	} `json:"data"`
}

type SearchResponse struct {
	Envelope
	Data struct {
		Animes []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			JName    string `json:"jname"`
			Type     string `json:"type"`
			Episodes struct {
				Sub int `json:"sub"`
				Dub int `json:"dub"`
			} `json:"episodes"`
		} `json:"animes"`
		CurrentPage int  `json:"currentPage"`
		TotalPages  int  `json:"totalPages"`
		HasNextPage bool `json:"hasNextPage"`
	} `json:"data"`
}
