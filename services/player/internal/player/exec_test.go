package player

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/example/anime-relay/services/player/internal/failover"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExec_NonZeroExitIsFatal(t *testing.T) {
	requireShell(t)
	fatal := make(chan string, 1)
	e := NewExec("http://127.0.0.1:8084", "sh", []string{"-c", "exit 3", "sh"}, nil, nil)
	e.Load(context.Background(), failover.Playback{URL: "/api/stream?url=x"}, func(kind string, _ any) { fatal <- kind })

	select {
	case kind := <-fatal:
		if kind != KindMedia {
			t.Fatalf("expected %s, got %s", KindMedia, kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fatal report")
	}
}

func TestExec_CleanExitEndsSession(t *testing.T) {
	requireShell(t)
	exited := make(chan failover.Playback, 1)
	// The script fails unless it receives the absolute proxied URL as $1.
	script := `case "$1" in http://127.0.0.1:8084/api/stream*) exit 0;; *) exit 1;; esac`
	e := NewExec("http://127.0.0.1:8084", "sh", []string{"-c", script, "sh"}, nil, func(pb failover.Playback) { exited <- pb })
	e.Load(context.Background(), failover.Playback{URL: "/api/stream?url=x", Server: "hd-1"}, func(kind string, detail any) {
		t.Errorf("unexpected fatal %s: %v", kind, detail)
	})

	select {
	case pb := <-exited:
		if pb.Server != "hd-1" {
			t.Fatalf("unexpected playback %+v", pb)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected clean exit")
	}
}

func TestExec_MissingBinaryIsFatal(t *testing.T) {
	fatal := make(chan any, 1)
	e := NewExec("", "definitely-not-a-player-binary", nil, nil, nil)
	e.Load(context.Background(), failover.Playback{URL: "http://127.0.0.1/x"}, func(_ string, detail any) { fatal <- detail })
	select {
	case d := <-fatal:
		if !strings.Contains(d.(string), "definitely-not-a-player-binary") {
			t.Fatalf("unexpected detail %v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fatal report")
	}
}

func TestExec_UnloadKillsWithoutReporting(t *testing.T) {
	requireShell(t)
	reported := make(chan struct{}, 1)
	e := NewExec("", "sh", []string{"-c", "sleep 5", "sh"}, nil, func(failover.Playback) { reported <- struct{}{} })
	e.Load(context.Background(), failover.Playback{URL: "http://127.0.0.1/x"}, func(string, any) { reported <- struct{}{} })
	e.Unload()

	select {
	case <-reported:
		t.Fatal("unloaded player must not report")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestAbsolute(t *testing.T) {
	got, err := absolute("http://127.0.0.1:8084/", "/api/stream?url=a%20b")
	if err != nil || got != "http://127.0.0.1:8084/api/stream?url=a%20b" {
		t.Fatalf("unexpected %q %v", got, err)
	}
	got, _ = absolute("http://127.0.0.1:8084", "https://cdn.example/x.m3u8")
	if got != "https://cdn.example/x.m3u8" {
		t.Fatalf("absolute refs should be kept, got %q", got)
	}
}
