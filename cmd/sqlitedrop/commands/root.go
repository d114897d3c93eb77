package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sqlitedrop/sqlitedrop/pkg/config"
	"github.com/sqlitedrop/sqlitedrop/pkg/plugin"
	"github.com/sqlitedrop/sqlitedrop/pkg/stores"
	"github.com/sqlitedrop/sqlitedrop/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	jsonOutput bool

	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	buildVersion = version

	rootCmd := &cobra.Command{
		Use:   "sqlitedrop",
		Short: "sqlitedrop - SQLite database drop-in manager",
		Long: `sqlitedrop installs and removes the db.php drop-in that makes a PHP host
load its SQLite database integration, and reports on its presence.

Features:
  - Idempotent install and removal of the drop-in
  - Local or SFTP-reachable content directories
  - Admin notices when the engine or the drop-in is missing
  - SQLite-aware diagnostics report
  - Prometheus metrics and OpenTelemetry tracing`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file path (default ./"+config.DefaultFile+")")
	flags.BoolVar(&jsonOutput, "json", false, "output in JSON format")

	flags.String("content-dir", "", "host content directory receiving db.php")
	flags.String("plugin-dir", "", "absolute plugin directory substituted into the template")
	flags.String("template", "", "drop-in template file (default embedded)")
	flags.String("database-type", "", "configured database engine (sqlite, mysql)")
	flags.String("database-file", "", "SQLite database file reported in diagnostics")
	flags.String("fs-method", "", "filesystem method (direct, sftp)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")
	flags.String("metrics-addr", "", "metrics listen address for watch")
	flags.String("tracing-exporter", "", "tracing exporter (none, stdout, otlp)")
	flags.String("journal-file", "", "SQLite file recording lifecycle events (default disabled)")

	rootCmd.AddCommand(newActivateCommand())
	rootCmd.AddCommand(newDeactivateCommand())
	rootCmd.AddCommand(newNoticesCommand())
	rootCmd.AddCommand(newDebugInfoCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}

// env is what every command works with once configuration is loaded.
type env struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	plugin  *plugin.Plugin
	journal *stores.SQLiteStore
}

// setup loads the configuration and builds telemetry and the plugin.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(config.Options{
		File:  configPath,
		Flags: cmd.Flags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log.Debug().
		Str("source", cfg.Source).
		Str("content_dir", cfg.ContentDir).
		Str("method", cfg.Filesystem.Method).
		Msg("Configuration loaded")

	tel, err := telemetry.NewTelemetry(plugin.TelemetryConfig(cfg, buildVersion, os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger := tel.Logger.NewComponentLogger("events")
	tel.Events.Subscribe(func(e telemetry.Event) {
		logger.WithFields(map[string]interface{}{
			"event_id": e.ID,
			"type":     e.Type,
			"path":     e.Path,
		}).Debug(e.Message)
	}, nil)

	e := &env{cfg: cfg, tel: tel}

	if cfg.JournalFile != "" {
		journal, err := stores.Open(cmd.Context(), cfg.JournalFile)
		if err != nil {
			_ = tel.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		e.journal = journal
		tel.Events.Subscribe(e.record, nil)
	}

	p, err := plugin.New(cfg, tel)
	if err != nil {
		e.close()
		return nil, err
	}
	e.plugin = p

	return e, nil
}

// record appends an event to the journal. A journal write failure never
// fails the command.
func (e *env) record(ev telemetry.Event) {
	details, err := json.Marshal(ev.Data)
	if err != nil || ev.Data == nil {
		details = []byte("{}")
	}

	entry := &stores.Entry{
		EventID:   ev.ID,
		Type:      ev.Type,
		Operation: ev.Operation,
		Path:      ev.Path,
		Level:     stores.EntryLevel(ev.Level),
		Message:   ev.Message,
		Details:   string(details),
		Timestamp: ev.Timestamp,
	}
	if err := e.journal.Append(context.Background(), entry); err != nil {
		log.Warn().Err(err).Str("event_id", ev.ID).Msg("Failed to record journal entry")
	}
}

// close flushes telemetry, then closes the journal; errors are only logged.
func (e *env) close() {
	if err := e.tel.Shutdown(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			log.Warn().Err(err).Msg("Journal close failed")
		}
	}
}
