package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// register registers c with the default registry, returning the collector
// already registered under the same descriptor if there is one.
func register[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// Gauge wraps prometheus.Gauge
type Gauge struct {
	gauge prometheus.Gauge
}

// newGauge creates and registers a gauge with constant labels.
func newGauge(name, help string, labels map[string]string) *Gauge {
	return &Gauge{gauge: register(prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}))}
}

// Set sets the gauge to the given value
func (g *Gauge) Set(v float64) {
	g.gauge.Set(v)
}

// Inc increments the gauge by 1
func (g *Gauge) Inc() {
	g.gauge.Inc()
}

// Dec decrements the gauge by 1
func (g *Gauge) Dec() {
	g.gauge.Dec()
}

// Collector exposes the underlying gauge, mainly for tests.
func (g *Gauge) Collector() prometheus.Gauge {
	return g.gauge
}

// NewInFlightGauge returns the gauge tracking requests being served.
func NewInFlightGauge() *Gauge {
	return newGauge("vidqa_http_in_flight_requests", "Requests currently being served", nil)
}

// SetBuildInfo publishes a constant 1 gauge labelled with build details.
func SetBuildInfo(version, commit, goVersion string) *Gauge {
	g := newGauge("vidqa_build_info", "Build information", map[string]string{
		"version":    version,
		"commit":     commit,
		"go_version": goVersion,
	})
	g.Set(1)
	return g
}
