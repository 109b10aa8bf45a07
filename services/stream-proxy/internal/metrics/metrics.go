package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request kinds.
const (
	KindManifest = "manifest"
	KindAsset    = "asset"
)

// Outcomes recorded per proxied request.
const (
	OutcomeInvalidURL      = "invalid_url"
	OutcomeUpstreamFailed  = "upstream_failed"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeHTMLRejected    = "html_rejected"
	OutcomeInvalidPlaylist = "invalid_playlist"
	OutcomeRewritten       = "rewritten"
	OutcomePassthrough     = "passthrough"
)

// Metrics holds the proxy collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests         *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	BytesStreamed    *prometheus.CounterVec
}

// New registers the proxy collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_proxy_requests_total",
			Help: "Proxied requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stream_proxy_upstream_duration_seconds",
			Help:    "Time until upstream response headers arrived",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		BytesStreamed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_proxy_bytes_streamed_total",
			Help: "Body bytes written to clients",
		}, []string{"kind"}),
	}
}

func (m *Metrics) Observe(kind, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveUpstream(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) AddBytes(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesStreamed.WithLabelValues(kind).Add(float64(n))
}

// Kind maps the manifest classification to a label value.
func Kind(manifest bool) string {
	if manifest {
		return KindManifest
	}
	return KindAsset
}
