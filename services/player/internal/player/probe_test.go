package player

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/anime-relay/services/player/internal/failover"
)

const (
	masterPlaylist = "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\nlow/index.m3u8\n"
	mediaPlaylist  = "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:4.000,\nseg0.ts\n#EXT-X-ENDLIST\n"
)

type outcome struct {
	kind  string
	ready bool
}

// probeOnce loads pb and waits for either the ready or the fatal callback.
func probeOnce(t *testing.T, base string, pb failover.Playback) outcome {
	t.Helper()
	done := make(chan outcome, 2)
	p := NewProbe(base, WithReady(func(failover.Playback) { done <- outcome{ready: true} }))
	p.Load(context.Background(), pb, func(kind string, _ any) { done <- outcome{kind: kind} })
	defer p.Unload()
	select {
	case o := <-done:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("probe did not finish")
	}
	return outcome{}
}

func hlsServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h(w)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func text(body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { _, _ = io.WriteString(w, body) }
}

func tsSegment(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "video/mp2t")
	_, _ = w.Write([]byte{0x47, 0x40, 0x00, 0x10, 0x00})
}

func TestProbe_FollowsMasterToFirstSegment(t *testing.T) {
	srv := hlsServer(t, map[string]func(http.ResponseWriter){
		"/master.m3u8":    text(masterPlaylist),
		"/low/index.m3u8": text(mediaPlaylist),
		"/low/seg0.ts":    tsSegment,
	})
	o := probeOnce(t, srv.URL, failover.Playback{URL: "/master.m3u8", IsM3U8: true})
	if !o.ready {
		t.Fatalf("expected ready, got fatal %q", o.kind)
	}
}

func TestProbe_Failures(t *testing.T) {
	tests := []struct {
		name   string
		routes map[string]func(http.ResponseWriter)
		want   string
	}{
		{
			name:   "playlist 404",
			routes: map[string]func(http.ResponseWriter){},
			want:   KindNetwork,
		},
		{
			name:   "not a playlist",
			routes: map[string]func(http.ResponseWriter){"/master.m3u8": text("Invalid HLS manifest format or contains HTML.")},
			want:   KindManifestParse,
		},
		{
			name: "segment missing",
			routes: map[string]func(http.ResponseWriter){
				"/master.m3u8":    text(masterPlaylist),
				"/low/index.m3u8": text(mediaPlaylist),
			},
			want: KindNetwork,
		},
		{
			name: "segment is html",
			routes: map[string]func(http.ResponseWriter){
				"/master.m3u8":    text(masterPlaylist),
				"/low/index.m3u8": text(mediaPlaylist),
				"/low/seg0.ts":    text("<html><body>blocked</body></html>"),
			},
			want: KindMedia,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := hlsServer(t, tt.routes)
			o := probeOnce(t, srv.URL, failover.Playback{URL: "/master.m3u8", IsM3U8: true})
			if o.ready || o.kind != tt.want {
				t.Fatalf("expected fatal %q, got %+v", tt.want, o)
			}
		})
	}
}

func TestProbe_NonHLSSourceChecksMediaDirectly(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("\x00\x00\x00\x18ftypmp42"))
	}))
	defer srv.Close()

	o := probeOnce(t, "", failover.Playback{URL: srv.URL + "/episode.mp4"})
	if !o.ready {
		t.Fatalf("expected ready, got %+v", o)
	}
	if gotRange != "bytes=0-4095" {
		t.Fatalf("expected a bounded range request, got %q", gotRange)
	}
}

func TestProbe_UnloadSuppressesCallbacks(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	called := make(chan struct{}, 2)
	p := NewProbe(srv.URL, WithReady(func(failover.Playback) { called <- struct{}{} }))
	p.Load(context.Background(), failover.Playback{URL: "/master.m3u8", IsM3U8: true}, func(string, any) { called <- struct{}{} })
	p.Unload()

	select {
	case <-called:
		t.Fatal("unloaded probe must not report")
	case <-time.After(100 * time.Millisecond):
	}
}
