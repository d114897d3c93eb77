package plugin

import (
	"io"

	"github.com/sqlitedrop/sqlitedrop/pkg/config"
	"github.com/sqlitedrop/sqlitedrop/pkg/telemetry"
)

// TelemetryConfig derives the telemetry settings from the loaded
// configuration. Logs go to logOutput; nil keeps stderr.
func TelemetryConfig(cfg *config.Config, version string, logOutput io.Writer) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version

	t := cfg.Telemetry
	if t.LogLevel != "" {
		tc.Logging.Level = t.LogLevel
	}
	if t.LogFormat != "" {
		tc.Logging.Format = t.LogFormat
	}
	tc.Logging.Writer = logOutput

	if t.MetricsAddr != "" {
		tc.Metrics.ListenAddress = t.MetricsAddr
	}

	if t.TracingExporter != "" {
		tc.Tracing.Exporter = t.TracingExporter
	}
	tc.Tracing.Endpoint = t.TracingEndpoint

	return tc
}
