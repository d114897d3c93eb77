// Package telemetry provides observability instrumentation for sqlitedrop.
//
// It combines structured logging (zerolog), tracing (OpenTelemetry),
// metrics (Prometheus) and lifecycle events into one Telemetry value that is
// built at startup and threaded through the plugin.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("installer")
//	logger.WithPath(path).Info("drop-in installed")
//
// Components that only need a zerolog.Logger receive tel.Logger.Zerolog().
//
// # Tracing
//
// One span is started per lifecycle operation and per report pass:
//
//	ctx, span := tel.Tracer.StartLifecycleSpan(ctx, "install", path)
//	defer span.End()
//
// Exporters: "stdout" (pretty JSON on stderr), "otlp" (gRPC) and "none".
//
// # Metrics
//
// All metrics live under the "sqlitedrop" namespace:
//
//   - dropin_operations_total{operation,outcome}
//   - dropin_operation_duration_seconds{operation}
//   - dropin_errors_total{operation,kind}
//   - notices_total{code}
//   - report_field_failures_total{field}
//   - dropin_present, engine_available
//
// StartMetricsServer exposes them over HTTP until its context is cancelled.
//
// # Events
//
// The EventPublisher delivers dropin.installed, dropin.removed,
// dropin.skipped, dropin.failed and notice.emitted events to subscribers,
// synchronously by default.
package telemetry
