// Package metrics exposes Prometheus instrumentation for urlguard's HTTP and
// NATS surfaces.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/c360studio/urlguard/urlsafety"
)

const namespace = "urlguard"

// Check names used as label values.
const (
	CheckLink     = "link"
	CheckImage    = "image"
	CheckSSRF     = "ssrf"
	CheckSanitize = "sanitize"
	CheckBatch    = "batch"
)

// Transport names used as label values.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

// Metrics holds the collectors. A nil *Metrics records nothing, so callers
// never need to guard their calls.
type Metrics struct {
	Verdicts        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ConfigReloads   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "URL verdicts by check, result and error code",
			},
			[]string{"check", "result", "code"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time spent handling a validation request",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"transport", "check"},
		),
		ConfigReloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Configuration reload attempts by result",
			},
			[]string{"result"},
		),
	}
}

// RecordVerdict counts one verdict. Accepted verdicts carry an empty code.
func (m *Metrics) RecordVerdict(check string, ok bool, code urlsafety.ErrorCode) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(check, resultLabel(ok), string(code)).Inc()
}

// RecordValidation counts a ValidationResult.
func (m *Metrics) RecordValidation(check string, res urlsafety.ValidationResult) {
	m.RecordVerdict(check, res.IsValid, res.ErrorCode)
}

// ObserveRequest records how long a request took.
func (m *Metrics) ObserveRequest(transport, check string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(transport, check).Observe(d.Seconds())
}

// RecordReload counts a configuration reload attempt.
func (m *Metrics) RecordReload(ok bool) {
	if m == nil {
		return
	}
	label := "success"
	if !ok {
		label = "failure"
	}
	m.ConfigReloads.WithLabelValues(label).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "allow"
	}
	return "deny"
}
