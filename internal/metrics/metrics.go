package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "mona"

// Metrics groups the collectors the service exports on /metrics
type Metrics struct {
	Resolutions      *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	TokenRefreshes   *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Artwork resolutions by asset class and outcome.",
		}, []string{"asset_class", "outcome"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to upstream providers by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "TVDB login attempts by result.",
		}, []string{"result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Redirect cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.Resolutions,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.TokenRefreshes,
		m.CacheLookups,
	)

	return m
}

// NewUnregistered returns collectors that are not exported anywhere, for tests and CLI use
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// NewRegistry returns a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
