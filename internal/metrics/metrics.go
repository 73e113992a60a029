// Package metrics holds the Prometheus collectors for the alert pipeline.
//
// All recording methods are safe to call on a nil *Metrics, so components
// constructed without metrics (unit tests, one-shot CLI runs) need no guard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "theatre_alerts"

// Fetch outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Record pipeline stages
const (
	StageNormalized = "normalized"
	StageDeduped    = "deduped"
	StageFiltered   = "filtered"
	StageSkipped    = "skipped"
)

// Geocode outcomes
const (
	GeocodeHit   = "hit"
	GeocodeMiss  = "miss"
	GeocodeError = "error"
	GeocodeCache = "cache"
)

// Metrics holds the counters and histograms for one process
type Metrics struct {
	Fetches     *prometheus.CounterVec // labels: source, outcome
	Records     *prometheus.CounterVec // labels: source, stage
	Geocodes    *prometheus.CounterVec // labels: outcome
	RunDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Outbound fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Production records passing each pipeline stage.",
		}, []string{"source", "stage"}),
		Geocodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_total",
			Help:      "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete aggregation run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
	}

	if reg != nil {
		reg.MustRegister(m.Fetches, m.Records, m.Geocodes, m.RunDuration)
	}
	return m
}

// ObserveFetch counts one outbound request
func (m *Metrics) ObserveFetch(source string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.Fetches.WithLabelValues(source, outcome).Inc()
}

// AddRecords counts n records passing stage
func (m *Metrics) AddRecords(source, stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Records.WithLabelValues(source, stage).Add(float64(n))
}

// ObserveGeocode counts one geocoding lookup
func (m *Metrics) ObserveGeocode(outcome string) {
	if m == nil {
		return
	}
	m.Geocodes.WithLabelValues(outcome).Inc()
}

// ObserveRun records how long a run took
func (m *Metrics) ObserveRun(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(source).Observe(d.Seconds())
}
