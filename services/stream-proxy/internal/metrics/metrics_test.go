package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve_CountsByLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe(KindManifest, OutcomeRewritten)
	m.Observe(KindManifest, OutcomeRewritten)
	m.Observe(KindAsset, OutcomePassthrough)

	if got := testutil.ToFloat64(m.Requests.WithLabelValues(KindManifest, OutcomeRewritten)); got != 2 {
		t.Fatalf("expected 2 rewritten manifests, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues(KindAsset, OutcomePassthrough)); got != 1 {
		t.Fatalf("expected 1 passthrough asset, got %v", got)
	}
}

func TestAddBytes_IgnoresNonPositive(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.AddBytes(KindAsset, 0)
	m.AddBytes(KindAsset, -5)
	m.AddBytes(KindAsset, 100)
	if got := testutil.ToFloat64(m.BytesStreamed.WithLabelValues(KindAsset)); got != 100 {
		t.Fatalf("expected 100 bytes, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe(KindAsset, OutcomePassthrough)
	m.ObserveUpstream(KindAsset, time.Second)
	m.AddBytes(KindAsset, 10)
}

func TestKind(t *testing.T) {
	if Kind(true) != KindManifest || Kind(false) != KindAsset {
		t.Fatal("unexpected kind mapping")
	}
}
