package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for sqlitedrop.
type Metrics struct {
	config MetricsConfig

	// Lifecycle metrics
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errors            *prometheus.CounterVec

	// Reporter metrics
	notices             *prometheus.CounterVec
	reportFieldFailures *prometheus.CounterVec

	// State gauges
	dropInPresent   prometheus.Gauge
	engineAvailable prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dropin",
				Name:      "operations_total",
				Help:      "Total number of drop-in lifecycle operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dropin",
				Name:      "operation_duration_seconds",
				Help:      "Duration of drop-in lifecycle operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dropin",
				Name:      "errors_total",
				Help:      "Total number of failed drop-in operations by error kind",
			},
			[]string{"operation", "kind"},
		),

		notices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notices_total",
				Help:      "Total number of admin notices emitted",
			},
			[]string{"code"},
		),
		reportFieldFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_field_failures_total",
				Help:      "Total number of diagnostics fields that could not be determined",
			},
			[]string{"field"},
		),

		dropInPresent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dropin",
				Name:      "present",
				Help:      "Whether the drop-in was present at the last check (1=present, 0=absent)",
			},
		),
		engineAvailable: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "engine_available",
				Help:      "Whether the SQLite engine was available at the last check",
			},
		),
	}

	registry.MustRegister(
		m.operations,
		m.operationDuration,
		m.errors,
		m.notices,
		m.reportFieldFailures,
		m.dropInPresent,
		m.engineAvailable,
	)

	return m, nil
}

// Lifecycle Metrics

// RecordOperation records a finished lifecycle operation with its outcome
// (installed, removed, skipped, failed) and duration.
func (m *Metrics) RecordOperation(operation, outcome string, duration time.Duration) {
	if m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordError records a failed lifecycle operation by error kind.
func (m *Metrics) RecordError(operation, kind string) {
	if m.errors == nil {
		return
	}
	m.errors.WithLabelValues(operation, kind).Inc()
}

// Reporter Metrics

// RecordNotice records an emitted admin notice.
func (m *Metrics) RecordNotice(code string) {
	if m.notices == nil {
		return
	}
	m.notices.WithLabelValues(code).Inc()
}

// RecordReportFieldFailure records a diagnostics field that degraded to nil.
func (m *Metrics) RecordReportFieldFailure(field string) {
	if m.reportFieldFailures == nil {
		return
	}
	m.reportFieldFailures.WithLabelValues(field).Inc()
}

// State Metrics

// SetDropInPresent records whether the drop-in exists.
func (m *Metrics) SetDropInPresent(present bool) {
	if m.dropInPresent == nil {
		return
	}
	m.dropInPresent.Set(boolToFloat(present))
}

// SetEngineAvailable records whether the engine prerequisite holds.
func (m *Metrics) SetEngineAvailable(available bool) {
	if m.engineAvailable == nil {
		return
	}
	m.engineAvailable.Set(boolToFloat(available))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Registry returns the underlying registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer binds the metrics endpoint and serves it until ctx is
// cancelled. It returns the bound address, which differs from the configured
// one when the port is 0.
func (m *Metrics) StartMetricsServer(ctx context.Context) (string, error) {
	if !m.config.Enabled {
		return "", nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	listener, err := net.Listen("tcp", m.config.ListenAddress)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", m.config.ListenAddress, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			FromContext(ctx).WithError(err).Error("metrics server stopped")
		}
	}()

	return listener.Addr().String(), nil
}
