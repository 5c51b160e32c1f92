// Package metrics defines the backend's Prometheus collectors. They are
// registered on the default registry and served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hammamikhairi/recipevoice/internal/recipe"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipevoice_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipevoice_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	SourceSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipevoice_source_searches_total",
			Help: "Total number of recipe source searches by outcome",
		},
		[]string{"source", "outcome"},
	)

	SourceRecipes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipevoice_source_recipes_total",
			Help: "Total number of recipes returned per source",
		},
		[]string{"source"},
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "recipevoice_source_duration_seconds",
			Help: "Duration of recipe source searches in seconds",
		},
		[]string{"source"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipevoice_cache_lookups_total",
			Help: "Total number of recipe cache lookups by result",
		},
		[]string{"result"},
	)

	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipevoice_extractions_total",
			Help: "Total number of context extractions by outcome",
		},
		[]string{"outcome"},
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipevoice_http_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)
)

// Compile-time interface check.
var _ recipe.Observer = Recorder{}

// Recorder feeds aggregator outcomes into the collectors above.
type Recorder struct{}

// SourceDone records one source search.
func (Recorder) SourceDone(source string, found int, err error, took time.Duration) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case found == 0:
		outcome = "empty"
	}
	SourceSearches.WithLabelValues(source, outcome).Inc()
	SourceRecipes.WithLabelValues(source).Add(float64(found))
	SourceDuration.WithLabelValues(source).Observe(took.Seconds())
}

// CacheLookup records a cache hit or miss.
func (Recorder) CacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(route string, status int, took time.Duration) {
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

// ObserveExtraction records whether an extraction finished with questions
// still open.
func ObserveExtraction(questions int, err error) {
	switch {
	case err != nil:
		Extractions.WithLabelValues("error").Inc()
	case questions > 0:
		Extractions.WithLabelValues("clarify").Inc()
	default:
		Extractions.WithLabelValues("complete").Inc()
	}
}
