package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable; "__" separates nested keys,
// e.g. SQLITEDROP_FILESYSTEM__SFTP__HOST.
const EnvPrefix = "SQLITEDROP_"

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "sqlitedrop.yaml"

// Defaults.
const (
	DefaultSFTPPort    = 22
	DefaultSFTPTimeout = 30 * time.Second
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultExporter    = "none"
)

// flagKeys maps CLI flag names to config keys. Only flags listed here and
// explicitly set on the command line override other layers.
var flagKeys = map[string]string{
	"content-dir":      "content_dir",
	"plugin-dir":       "plugin_dir",
	"template":         "template",
	"database-type":    "database_type",
	"database-file":    "database_file",
	"journal-file":     "journal_file",
	"fs-method":        "filesystem.method",
	"log-level":        "telemetry.log_level",
	"log-format":       "telemetry.log_format",
	"metrics-addr":     "telemetry.metrics_addr",
	"tracing-exporter": "telemetry.tracing_exporter",
}

// Options control Load.
type Options struct {
	// File is an explicit config file. When empty, DefaultFile is used if present.
	File string

	// Flags are the command flags; only those explicitly set are applied.
	Flags *pflag.FlagSet
}

// Load builds the configuration from defaults, the config file, environment
// variables and flags, in increasing order of precedence. The merged document
// is checked against the CUE schema, decoded, resolved and validated.
func Load(opts Options) (*Config, error) {
	k, source, err := layers(opts)
	if err != nil {
		return nil, err
	}

	if err := NewSchemaRegistry().ValidateAgainstSchema(ConfigSchema, k.Raw()); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Source = source

	if k.Exists("database_type") {
		cfg.DatabaseType = DatabaseType{Value: k.String("database_type"), Defined: true}
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadJournal resolves only journal_file from the same layers as Load, so
// the journal can be read without a content directory. It returns "" when
// no journal is configured.
func LoadJournal(opts Options) (string, error) {
	k, _, err := layers(opts)
	if err != nil {
		return "", err
	}

	path := k.String("journal_file")
	if path == "" {
		return "", nil
	}
	abs, err := resolvePath(path, false)
	if err != nil {
		return "", fmt.Errorf("journal_file: %w", err)
	}
	return abs, nil
}

// layers merges defaults, the config file, env and flags.
func layers(opts Options) (*koanf.Koanf, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"plugin_dir":                               defaultPluginDir(),
		"filesystem.method":                        MethodDirect,
		"filesystem.sftp.port":                     DefaultSFTPPort,
		"filesystem.sftp.timeout":                  DefaultSFTPTimeout.String(),
		"filesystem.sftp.strict_host_key_checking": true,
		"telemetry.log_level":                      DefaultLogLevel,
		"telemetry.log_format":                     DefaultLogFormat,
		"telemetry.tracing_exporter":               DefaultExporter,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	source := findConfigFile(opts.File)
	if source != "" {
		if err := k.Load(file.Provider(source), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", source, err)
		}
	}

	// SQLITEDROP_FILESYSTEM__SFTP__HOST -> filesystem.sftp.host
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return k, source, nil
}

// findConfigFile returns the file to load, or "" when there is none.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// defaultPluginDir is the directory holding the running binary.
func defaultPluginDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// resolve makes local paths absolute and fills derived defaults. Remote
// paths must already be absolute since there is no remote working directory.
func (c *Config) resolve() error {
	remote := c.Filesystem.Method == MethodSFTP

	var err error
	if c.ContentDir, err = resolvePath(c.ContentDir, remote); err != nil {
		return fmt.Errorf("content_dir: %w", err)
	}
	if c.PluginDir, err = resolvePath(c.PluginDir, false); err != nil {
		return fmt.Errorf("plugin_dir: %w", err)
	}
	if c.Template != "" {
		if c.Template, err = resolvePath(c.Template, false); err != nil {
			return fmt.Errorf("template: %w", err)
		}
	}

	if c.DatabaseFile == "" {
		c.DatabaseFile = filepath.Join(c.ContentDir, "database", ".ht.sqlite")
	} else if c.DatabaseFile, err = resolvePath(c.DatabaseFile, remote); err != nil {
		return fmt.Errorf("database_file: %w", err)
	}

	if c.JournalFile != "" {
		if c.JournalFile, err = resolvePath(c.JournalFile, false); err != nil {
			return fmt.Errorf("journal_file: %w", err)
		}
	}

	if c.Filesystem.SFTP.PrivateKey != "" {
		if c.Filesystem.SFTP.PrivateKey, err = resolvePath(c.Filesystem.SFTP.PrivateKey, false); err != nil {
			return fmt.Errorf("private_key: %w", err)
		}
	}
	return nil
}

func resolvePath(p string, remote bool) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	if remote {
		return "", fmt.Errorf("remote path %q must be absolute", p)
	}
	return filepath.Abs(p)
}

// Validate checks the decoded configuration.
func (c *Config) Validate() error {
	v := validator.New()

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.Filesystem.Method == MethodSFTP {
		if err := v.Struct(c.Filesystem.SFTP); err != nil {
			return fmt.Errorf("sftp validation failed: %w", err)
		}
	}
	return nil
}
