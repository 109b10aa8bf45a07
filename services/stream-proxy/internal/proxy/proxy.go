// Package proxy implements the stream proxy endpoint: it fetches an upstream
// media URL, guards HLS manifest requests against disguised HTML pages,
// rewrites playlists so nested URIs loop back through the proxy, and streams
// everything else through untouched.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/anime-relay/internal/platform/api"
	"github.com/example/anime-relay/internal/platform/httpserver"
	"github.com/example/anime-relay/internal/platform/streamurl"
	"github.com/example/anime-relay/services/stream-proxy/internal/manifest"
	"github.com/example/anime-relay/services/stream-proxy/internal/metrics"
)

// DefaultUserAgent is sent on every upstream request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// DefaultMaxManifestBytes bounds how much of a playlist body is buffered.
const DefaultMaxManifestBytes = 8 << 20

const (
	msgInvalidURL      = "Invalid or missing url parameter."
	msgUpstreamFailed  = "Upstream fetch failed."
	msgHTMLForManifest = "Upstream returned HTML for an HLS manifest request."
	msgInvalidManifest = "Invalid HLS manifest format or contains HTML."
	msgManifestTooBig  = "HLS manifest exceeds the size limit."
)

// manifestHeaders are copied from upstream onto a rewritten playlist.
// Content-Length is recomputed instead.
var manifestHeaders = []string{"Accept-Ranges", "Content-Range", "Cache-Control"}

// hopHeaders are never copied from the upstream response.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// Config controls upstream fetching and playlist rewriting.
type Config struct {
	UserAgent        string
	MaxManifestBytes int64
	// ProxyBase is what rewritten playlist entries point at: the route path,
	// or an absolute URL when the proxy sits behind another host.
	ProxyBase      string
	RewriteTagURIs bool
	// ResponseHeaderTimeout bounds the wait for upstream headers. Bodies are
	// not time limited.
	ResponseHeaderTimeout time.Duration
}

// Handler serves the stream proxy route.
type Handler struct {
	Client   *http.Client
	Config   Config
	Rewriter manifest.Rewriter
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithHTTPClient replaces the upstream client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) { h.Client = c }
}

// WithLogger sets the request logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Handler) { h.Log = log }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.Metrics = m }
}

// New returns a Handler with defaults filled in for any zero Config field.
func New(cfg Config, opts ...Option) *Handler {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxManifestBytes <= 0 {
		cfg.MaxManifestBytes = DefaultMaxManifestBytes
	}
	if cfg.ProxyBase == "" {
		cfg.ProxyBase = streamurl.DefaultRoute
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = 20 * time.Second
	}
	h := &Handler{
		Config:   cfg,
		Rewriter: manifest.Rewriter{ProxyBase: cfg.ProxyBase, RewriteTagURIs: cfg.RewriteTagURIs},
		Log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(h)
	}
	if h.Client == nil {
		h.Client = newUpstreamClient(cfg.ResponseHeaderTimeout)
	}
	return h
}

// newUpstreamClient has no overall timeout so long segment bodies can stream.
func newUpstreamClient(headerTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: headerTimeout,
		},
	}
}

// SetCORS applies the permissive CORS headers every proxy response carries.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Range")
}

// Preflight answers OPTIONS with an empty 200.
func (h *Handler) Preflight(w http.ResponseWriter, _ *http.Request) {
	SetCORS(w.Header())
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.Preflight(w, r)
		return
	}
	SetCORS(w.Header())
	rid := httpserver.RequestIDFromContext(r.Context())

	req, err := streamurl.Parse(r.URL.Query(), r.Header.Get("Range"))
	if err != nil {
		h.Metrics.Observe(metrics.KindAsset, metrics.OutcomeInvalidURL)
		api.BadRequest(w, "INVALID_URL", msgInvalidURL, rid, nil)
		return
	}
	isManifest := streamurl.IsManifestURL(req.URL)
	kind := metrics.Kind(isManifest)
	log := h.Log.With(zap.String("request_id", rid), zap.String("kind", kind))

	started := time.Now()
	resp, err := h.fetch(r.Context(), req)
	if err != nil {
		log.Warn("upstream fetch failed", zap.String("url", req.URL), zap.Error(err))
		h.Metrics.Observe(kind, metrics.OutcomeUpstreamFailed)
		api.BadGateway(w, "UPSTREAM_FETCH_FAILED", msgUpstreamFailed, rid)
		return
	}
	defer resp.Body.Close()
	h.Metrics.ObserveUpstream(kind, time.Since(started))

	if resp.StatusCode >= http.StatusBadRequest {
		log.Debug("forwarding upstream error", zap.Int("status", resp.StatusCode))
		h.Metrics.Observe(kind, metrics.OutcomeUpstreamError)
		h.forwardError(w, resp, kind)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if isManifest && manifest.IsHTMLContentType(contentType) {
		log.Info("upstream returned html for manifest", zap.String("url", req.URL))
		h.Metrics.Observe(kind, metrics.OutcomeHTMLRejected)
		api.WriteText(w, http.StatusBadRequest, msgHTMLForManifest)
		return
	}

	if !isManifest || !manifest.IsPlaylistContentType(contentType) {
		h.Metrics.Observe(kind, metrics.OutcomePassthrough)
		h.passthrough(w, resp, kind, log)
		return
	}

	h.serveManifest(w, req, resp, rid, log)
}

func (h *Handler) fetch(ctx context.Context, req streamurl.Request) (*http.Response, error) {
	upstream, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	upstream.Header.Set("User-Agent", h.Config.UserAgent)
	if req.Referer != "" {
		upstream.Header.Set("Referer", req.Referer)
	}
	if req.Range != "" {
		upstream.Header.Set("Range", req.Range)
	}
	return h.Client.Do(upstream)
}

// forwardError relays an upstream error status so the player sees a genuine
// network failure.
func (h *Handler) forwardError(w http.ResponseWriter, resp *http.Response, kind string) {
	for _, k := range []string{"Content-Type", "Content-Length"} {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	n, _ := io.Copy(w, resp.Body)
	h.Metrics.AddBytes(kind, n)
}

func (h *Handler) passthrough(w http.ResponseWriter, resp *http.Response, kind string, log *zap.Logger) {
	dst := w.Header()
	for k, vals := range resp.Header {
		if hopHeaders[k] || isCORSHeader(k) {
			continue
		}
		dst.Del(k)
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	n, err := io.Copy(w, resp.Body)
	h.Metrics.AddBytes(kind, n)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Debug("passthrough copy interrupted", zap.Int64("bytes", n), zap.Error(err))
	}
}

func (h *Handler) serveManifest(w http.ResponseWriter, req streamurl.Request, resp *http.Response, rid string, log *zap.Logger) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, h.Config.MaxManifestBytes+1))
	if err != nil {
		log.Warn("reading upstream manifest", zap.String("url", req.URL), zap.Error(err))
		h.Metrics.Observe(metrics.KindManifest, metrics.OutcomeUpstreamFailed)
		api.BadGateway(w, "UPSTREAM_FETCH_FAILED", msgUpstreamFailed, rid)
		return
	}
	if int64(len(body)) > h.Config.MaxManifestBytes {
		h.Metrics.Observe(metrics.KindManifest, metrics.OutcomeInvalidPlaylist)
		api.WriteText(w, http.StatusBadRequest, msgManifestTooBig)
		return
	}
	if err := manifest.Validate(body); err != nil {
		log.Info("rejecting manifest", zap.String("url", req.URL), zap.Error(err))
		h.Metrics.Observe(metrics.KindManifest, metrics.OutcomeInvalidPlaylist)
		api.WriteText(w, http.StatusBadRequest, msgInvalidManifest)
		return
	}

	out := h.Rewriter.Rewrite(string(body), req.URL, req.Referer)

	for _, k := range manifestHeaders {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.Header().Set("Content-Type", manifest.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	n, _ := io.WriteString(w, out)
	h.Metrics.Observe(metrics.KindManifest, metrics.OutcomeRewritten)
	h.Metrics.AddBytes(metrics.KindManifest, int64(n))
}

func isCORSHeader(k string) bool {
	return strings.HasPrefix(k, "Access-Control-")
}
