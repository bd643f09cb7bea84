package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// lookup labels
const (
	LookupContributors    = "contributors"
	LookupGoodFirstIssues = "good_first_issues"
	LookupCI              = "ci"
)

// Metrics group the service collectors on a dedicated registry
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal       *prometheus.CounterVec
	EnrichmentFailures  *prometheus.CounterVec
	EnrichmentCacheHits *prometheus.CounterVec
	HealthScore         prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repohealth_searches_total",
				Help: "Total number of repository searches",
			},
			[]string{"status"},
		),
		EnrichmentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repohealth_enrichment_failures_total",
				Help: "Enrichment lookups degraded to their default value",
			},
			[]string{"lookup"},
		),
		EnrichmentCacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repohealth_enrichment_cache_hits_total",
				Help: "Enrichment lookups served from cache",
			},
			[]string{"lookup"},
		),
		HealthScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "repohealth_health_score",
				Help:    "Distribution of computed health scores",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
	}

	m.registry.MustRegister(
		m.SearchesTotal,
		m.EnrichmentFailures,
		m.EnrichmentCacheHits,
		m.HealthScore,
	)

	return m
}

// Handler expose the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
