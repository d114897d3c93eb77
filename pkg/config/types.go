package config

import (
	"time"
)

// Filesystem methods.
const (
	MethodDirect = "direct"
	MethodSFTP   = "sftp"
)

// Config holds all sqlitedrop configuration.
type Config struct {
	// ContentDir is the host content root that receives db.php.
	ContentDir string `koanf:"content_dir" validate:"required"`

	// PluginDir is the absolute plugin directory substituted into the template.
	PluginDir string `koanf:"plugin_dir" validate:"required"`

	// Template overrides the embedded drop-in template with a local file.
	Template string `koanf:"template"`

	// DatabaseType is the process-wide engine flag.
	DatabaseType DatabaseType `koanf:"-"`

	// DatabaseFile is the SQLite database reported in diagnostics.
	DatabaseFile string `koanf:"database_file" validate:"required"`

	// JournalFile is the local lifecycle journal. Empty disables the journal.
	JournalFile string `koanf:"journal_file"`

	Filesystem FilesystemConfig `koanf:"filesystem"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`

	// Source is the config file that was loaded, if any.
	Source string `koanf:"-"`
}

// DatabaseType is the configured database engine. Defined is false when no
// layer set it, which is different from it being set to an empty string.
type DatabaseType struct {
	Value   string
	Defined bool
}

// String returns the raw value, or "undefined".
func (d DatabaseType) String() string {
	if !d.Defined {
		return "undefined"
	}
	return d.Value
}

// FilesystemConfig selects how the content directory is reached.
type FilesystemConfig struct {
	Method string     `koanf:"method" validate:"required,oneof=direct sftp"`
	SFTP   SFTPConfig `koanf:"sftp" validate:"-"`
}

// SFTPConfig is used when Method is "sftp".
type SFTPConfig struct {
	Host                  string        `koanf:"host" validate:"required,hostname|ip"`
	Port                  int           `koanf:"port" validate:"min=1,max=65535"`
	User                  string        `koanf:"user" validate:"required"`
	Password              string        `koanf:"password"`
	PrivateKey            string        `koanf:"private_key" validate:"required_without=Password"`
	KnownHosts            string        `koanf:"known_hosts"`
	StrictHostKeyChecking bool          `koanf:"strict_host_key_checking"`
	Timeout               time.Duration `koanf:"timeout" validate:"min=0"`
}

// TelemetryConfig configures logging, metrics and tracing.
type TelemetryConfig struct {
	LogLevel        string `koanf:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat       string `koanf:"log_format" validate:"oneof=console json"`
	MetricsAddr     string `koanf:"metrics_addr"`
	TracingExporter string `koanf:"tracing_exporter" validate:"oneof=none stdout otlp"`
	TracingEndpoint string `koanf:"tracing_endpoint" validate:"required_if=TracingExporter otlp"`
}
