package hianime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/anime-relay/services/player/internal/domain"
)

// MaxResponseBytes caps how much of a decoded response body is read.
const MaxResponseBytes = 1 << 20

var (
	// ErrStatus is returned when the API answers with a non-success status.
	ErrStatus = errors.New("hianime: unexpected status")
	// ErrUnavailable marks transport failures: the API could not be reached
	// or did not answer in time. Only these count against the breaker.
	ErrUnavailable = errors.New("hianime: api unavailable")
)

// ClientConfig holds configurable settings for the HiAnime client.
type ClientConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// Client talks to an aniwatch-style API rooted at BaseURL. Every call is a
// single round trip: no retry, no caching.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Config     ClientConfig
	CB         *gobreaker.CircuitBreaker
	Log        *zap.Logger
}

// Option configures the Client.
type Option func(*Client)

func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.CB = cb }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// NewBreaker builds the breaker used around API calls: it opens after
// maxFailures consecutive ErrUnavailable failures and half-opens after
// openFor. Error answers from a reachable API and cancelled calls leave the
// counts alone, so one bad server cannot lock out the next candidate.
func NewBreaker(name string, maxFailures uint32, openFor time.Duration, log *zap.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openFor,
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, ErrUnavailable)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func New(baseURL string, cfg ClientConfig, opts ...Option) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:146.0) Gecko/20100101 Firefox/146.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Config:  cfg,
		Log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return c
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.BaseURL + "/api/v2/hianime" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) ListServers(ctx context.Context, episodeID string) (domain.ServerCatalog, error) {
	u := c.endpoint("/episode/servers", url.Values{"animeEpisodeId": {episodeID}})
	resp, err := doWithBreaker[ServersResponse](ctx, c, u)
	if err != nil {
		return domain.ServerCatalog{}, err
	}
	return resp.catalog(), nil
}

func (c *Client) ResolveSource(ctx context.Context, episodeID, serverName string, category domain.Category) (domain.SourceSet, error) {
	u := c.endpoint("/episode/sources", url.Values{
		"animeEpisodeId": {episodeID},
		"server":         {serverName},
		"category":       {string(category)},
	})
	resp, err := doWithBreaker[SourcesResponse](ctx, c, u)
	if err != nil {
		return domain.SourceSet{}, err
	}
	return resp.sourceSet(), nil
}

func (c *Client) Episodes(ctx context.Context, animeID string) ([]domain.Episode, error) {
	u := c.endpoint("/anime/"+url.PathEscape(animeID)+"/episodes", nil)
	resp, err := doWithBreaker[EpisodesResponse](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return resp.episodes(), nil
}

func (c *Client) Search(ctx context.Context, query string, page int) ([]domain.AnimeSummary, error) {
	q := url.Values{"q": {query}}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	resp, err := doWithBreaker[SearchResponse](ctx, c, c.endpoint("/search", q))
	if err != nil {
		return nil, err
	}
	return resp.animes(), nil
}

type envelope interface {
	ok() bool
}

func doWithBreaker[T any, PT interface {
	*T
	envelope
}](ctx context.Context, c *Client, u string) (*T, error) {
	if c.CB == nil {
		return doJSON[T, PT](ctx, c, u)
	}
	result, err := c.CB.Execute(func() (interface{}, error) {
		return doJSON[T, PT](ctx, c, u)
	})
	if err != nil {
		return nil, err
	}
	return result.(*T), nil
}

func doJSON[T any, PT interface {
	*T
	envelope
}](ctx context.Context, c *Client, u string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", c.Config.UserAgent)

	started := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("hianime: request: %w", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	reader, closeFn, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("hianime: %w", err)
	}
	defer closeFn()

	b, err := io.ReadAll(io.LimitReader(reader, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("hianime: read body: %w", err)
	}
	c.Log.Debug("hianime response",
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(b)),
		zap.Duration("took", time.Since(started)),
	)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d body=%q", ErrStatus, resp.StatusCode, string(b[:min(len(b), 200)]))
	}
	out := PT(new(T))
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("hianime: decode error: %w body=%q", err, string(b[:min(len(b), 200)]))
	}
	if !out.ok() {
		return nil, fmt.Errorf("%w in envelope body=%q", ErrStatus, string(b[:min(len(b), 200)]))
	}
	return out, nil
}

// decodeBody unwraps the Content-Encoding we advertised.
func decodeBody(resp *http.Response) (io.Reader, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, noop, nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, noop, fmt.Errorf("gzip: %w", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case "br":
		return brotli.NewReader(resp.Body), noop, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, noop, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
