// Package metrics exposes evaluation pass measurements to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements engine.Observer on top of Prometheus collectors.
type Collector struct {
	passesTotal      *prometheus.CounterVec
	passDuration     *prometheus.HistogramVec
	fieldErrorsTotal *prometheus.CounterVec
	cyclesTotal      *prometheus.CounterVec
}

// New builds a collector and registers it on reg. A nil reg leaves the
// collectors unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		passesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexforms_evaluation_passes_total",
				Help: "Number of evaluation passes by form and outcome.",
			},
			[]string{"form", "outcome"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flexforms_evaluation_pass_duration_seconds",
				Help:    "Time taken to evaluate the modifiers of a form.",
				Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
			},
			[]string{"form"},
		),
		fieldErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexforms_field_errors_total",
				Help: "Number of recovered field errors by form and kind.",
			},
			[]string{"form", "kind"},
		),
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexforms_dependency_cycles_total",
				Help: "Number of forms rejected because of a modifier dependency cycle.",
			},
			[]string{"form"},
		),
	}
	if reg == nil {
		return c, nil
	}
	for _, collector := range []prometheus.Collector{c.passesTotal, c.passDuration, c.fieldErrorsTotal, c.cyclesTotal} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New that panics on registration errors.
func MustNew(reg prometheus.Registerer) *Collector {
	c, err := New(reg)
	if err != nil {
		panic(err)
	}
	return c
}

// ObservePass records one pass. Cycle outcomes carry no duration.
func (c *Collector) ObservePass(form, outcome string, elapsed time.Duration) {
	c.passesTotal.WithLabelValues(form, outcome).Inc()
	if outcome == "cycle" {
		c.cyclesTotal.WithLabelValues(form).Inc()
		return
	}
	c.passDuration.WithLabelValues(form).Observe(elapsed.Seconds())
}

// ObserveFieldError records a recovered field error.
func (c *Collector) ObserveFieldError(form, kind string) {
	c.fieldErrorsTotal.WithLabelValues(form, kind).Inc()
}
