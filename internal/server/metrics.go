package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Formulation outcomes used as metric labels.
const (
	outcomeOptimal    = "optimal"
	outcomeInfeasible = "infeasible"
	outcomeInvalid    = "invalid"
	outcomeTimeout    = "timeout"
	outcomeError      = "error"
)

// metrics holds the server's private Prometheus registry.
type metrics struct {
	registry      *prometheus.Registry
	formulations  *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	catalogFeeds  prometheus.Gauge
	buildInfo     *prometheus.GaugeVec
}

func newMetrics(version string) *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &metrics{registry: reg}
	m.formulations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tmr_formulations_total",
		Help: "Total number of ration formulations by outcome",
	}, []string{"source", "outcome"})
	m.solveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tmr_formulation_duration_seconds",
		Help:    "Formulation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"source"})
	m.catalogFeeds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tmr_catalog_feeds",
		Help: "Number of feeds in the session catalog",
	})
	m.buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tmr_build_info",
		Help: "Build information for the server",
	}, []string{"version"})
	reg.MustRegister(m.formulations, m.solveDuration, m.catalogFeeds, m.buildInfo)

	m.buildInfo.WithLabelValues(version).Set(1)
	return m
}

// observe records one formulation attempt.
func (m *metrics) observe(source string, elapsed time.Duration, err error) {
	m.formulations.WithLabelValues(source, outcome(err)).Inc()
	m.solveDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOptimal
	case errors.Is(err, domain.ErrInfeasible):
		return outcomeInfeasible
	case errors.Is(err, domain.ErrInvalidInput):
		return outcomeInvalid
	case errors.Is(err, domain.ErrSolverTimeout):
		return outcomeTimeout
	default:
		return outcomeError
	}
}

// statusFor maps a formulation error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInfeasible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSolverTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
