package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/grafov/m3u8"
	"go.uber.org/zap"

	"github.com/example/anime-relay/services/player/internal/failover"
)

// probeBytes is how much of a media segment is read to confirm it is media.
const probeBytes = 4096

// fatalError carries the kind a probe failure is reported under.
type fatalError struct {
	kind string
	err  error
}

func (e *fatalError) Error() string { return e.kind + ": " + e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(kind string, format string, args ...any) error {
	return &fatalError{kind: kind, err: fmt.Errorf(format, args...)}
}

// Probe plays a stream headlessly: it walks the playlist down to the first
// media segment and fetches it. Any failure is fatal.
type Probe struct {
	BaseURL string
	Client  *http.Client
	Log     *zap.Logger
	// OnReady is called once the first segment was fetched.
	OnReady func(failover.Playback)

	mu     sync.Mutex
	cancel context.CancelFunc
}

type ProbeOption func(*Probe)

func WithProbeClient(c *http.Client) ProbeOption {
	return func(p *Probe) { p.Client = c }
}

func WithProbeLogger(log *zap.Logger) ProbeOption {
	return func(p *Probe) { p.Log = log }
}

func WithReady(fn func(failover.Playback)) ProbeOption {
	return func(p *Probe) { p.OnReady = fn }
}

func NewProbe(baseURL string, opts ...ProbeOption) *Probe {
	p := &Probe{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Probe) Load(ctx context.Context, pb failover.Playback, onFatal failover.FatalFunc) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		err := p.probe(ctx, pb)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			var fe *fatalError
			if !errors.As(err, &fe) {
				fe = &fatalError{kind: KindNetwork, err: err}
			}
			p.Log.Debug("probe failed", zap.String("kind", fe.kind), zap.Error(fe.err))
			onFatal(fe.kind, fe.err.Error())
			return
		}
		if p.OnReady != nil {
			p.OnReady(pb)
		}
	}()
}

func (p *Probe) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Probe) probe(ctx context.Context, pb failover.Playback) error {
	u, err := absolute(p.BaseURL, pb.URL)
	if err != nil {
		return fatal(KindNetwork, "%v", err)
	}
	if !pb.IsM3U8 {
		return p.checkMedia(ctx, u)
	}

	pl, listType, err := p.playlist(ctx, u)
	if err != nil {
		return err
	}
	if listType == m3u8.MASTER {
		master := pl.(*m3u8.MasterPlaylist)
		if len(master.Variants) == 0 || master.Variants[0] == nil {
			return fatal(KindManifestParse, "master playlist has no variants")
		}
		if u, err = absolute(u, master.Variants[0].URI); err != nil {
			return fatal(KindManifestParse, "%v", err)
		}
		if pl, listType, err = p.playlist(ctx, u); err != nil {
			return err
		}
		if listType != m3u8.MEDIA {
			return fatal(KindManifestParse, "variant is not a media playlist")
		}
	}

	media := pl.(*m3u8.MediaPlaylist)
	for _, seg := range media.Segments {
		if seg == nil {
			break
		}
		segURL, err := absolute(u, seg.URI)
		if err != nil {
			return fatal(KindManifestParse, "%v", err)
		}
		p.Log.Debug("probing segment", zap.String("url", segURL))
		return p.checkMedia(ctx, segURL)
	}
	return fatal(KindManifestParse, "media playlist has no segments")
}

func (p *Probe) get(ctx context.Context, u string, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fatal(KindNetwork, "build request: %v", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fatal(KindNetwork, "fetch %s: %v", u, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fatal(KindNetwork, "fetch %s: status %d", u, resp.StatusCode)
	}
	return resp, nil
}

func (p *Probe) playlist(ctx context.Context, u string) (m3u8.Playlist, m3u8.ListType, error) {
	resp, err := p.get(ctx, u, "")
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	pl, listType, err := m3u8.DecodeFrom(resp.Body, false)
	if err != nil {
		return nil, 0, fatal(KindManifestParse, "decode %s: %v", u, err)
	}
	return pl, listType, nil
}

// checkMedia fetches the start of a media resource and rejects empty or
// HTML bodies.
func (p *Probe) checkMedia(ctx context.Context, u string) error {
	resp, err := p.get(ctx, u, fmt.Sprintf("bytes=0-%d", probeBytes-1))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	head, err := io.ReadAll(io.LimitReader(resp.Body, probeBytes))
	if err != nil {
		return fatal(KindNetwork, "read %s: %v", u, err)
	}
	trimmed := bytes.TrimSpace(head)
	if len(trimmed) == 0 {
		return fatal(KindMedia, "empty media response from %s", u)
	}
	if trimmed[0] == '<' {
		return fatal(KindMedia, "markup instead of media from %s", u)
	}
	return nil
}
