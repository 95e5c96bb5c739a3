// Package metrics exposes tracker counters in Prometheus format. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Post outcomes
const (
	OutcomeNew       = "new"
	OutcomeDuplicate = "duplicate"
	OutcomeRefreshed = "refreshed"
	OutcomeCollision = "collision"
	OutcomeFailed    = "failed"
)

// Run outcomes
const (
	RunSucceeded   = "succeeded"
	RunPartial     = "partial"
	RunUnavailable = "unavailable"
	RunLocked      = "locked"
)

type Metrics struct {
	registry       *prometheus.Registry
	posts          *prometheus.CounterVec
	points         *prometheus.CounterVec
	runs           *prometheus.CounterVec
	endpointHealth *prometheus.GaugeVec
}

// New creates the tracker metrics on a dedicated registry that also carries the
// Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindshare_posts_total",
			Help: "Candidate posts processed, by campaign and outcome.",
		}, []string{"campaign", "outcome"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindshare_points_awarded_total",
			Help: "Points awarded, by campaign and kind (score or bonus).",
		}, []string{"campaign", "kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindshare_runs_total",
			Help: "Campaign runs, by campaign and outcome.",
		}, []string{"campaign", "outcome"}),
		endpointHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mindshare_endpoint_healthy",
			Help: "1 when the mirror endpoint is in the healthy pool, else 0.",
		}, []string{"endpoint"}),
	}
	m.registry.MustRegister(
		m.posts,
		m.points,
		m.runs,
		m.endpointHealth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Post(campaign, outcome string) {
	if m == nil {
		return
	}
	m.posts.WithLabelValues(campaign, outcome).Inc()
}

func (m *Metrics) Points(campaign string, score, bonus int) {
	if m == nil {
		return
	}
	if score > 0 {
		m.points.WithLabelValues(campaign, "score").Add(float64(score))
	}
	if bonus > 0 {
		m.points.WithLabelValues(campaign, "bonus").Add(float64(bonus))
	}
}

func (m *Metrics) Run(campaign, outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(campaign, outcome).Inc()
}

func (m *Metrics) EndpointHealth(endpoint string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	m.endpointHealth.WithLabelValues(endpoint).Set(v)
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
