package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlitedrop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("content-dir", "", "")
	fs.String("database-type", "", "")
	fs.String("fs-method", "", "")
	fs.String("log-level", "", "")
	fs.String("journal-file", "", "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
content_dir: /srv/www/wp-content
plugin_dir: /srv/app/plugin
database_type: sqlite
telemetry:
  log_level: debug
`)

	cfg, err := Load(Options{File: path})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "/srv/www/wp-content", cfg.ContentDir)
	assert.Equal(t, "/srv/app/plugin", cfg.PluginDir)
	assert.Equal(t, DatabaseType{Value: "sqlite", Defined: true}, cfg.DatabaseType)
	assert.Equal(t, "/srv/www/wp-content/database/.ht.sqlite", cfg.DatabaseFile)
	assert.Equal(t, MethodDirect, cfg.Filesystem.Method)
	assert.Equal(t, "debug", cfg.Telemetry.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.Telemetry.LogFormat)
	assert.Equal(t, DefaultSFTPPort, cfg.Filesystem.SFTP.Port)
	assert.Equal(t, DefaultSFTPTimeout, cfg.Filesystem.SFTP.Timeout)
}

func TestLoadDatabaseTypeUndefined(t *testing.T) {
	path := writeConfig(t, `
content_dir: /srv/www/wp-content
plugin_dir: /srv/app/plugin
`)

	cfg, err := Load(Options{File: path})
	require.NoError(t, err)

	assert.False(t, cfg.DatabaseType.Defined)
	assert.Equal(t, "undefined", cfg.DatabaseType.String())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
content_dir: /from/file
plugin_dir: /srv/app/plugin
database_type: mysql
telemetry:
  log_level: warn
`)
	t.Setenv("SQLITEDROP_CONTENT_DIR", "/from/env")
	t.Setenv("SQLITEDROP_DATABASE_TYPE", "sqlite")
	t.Setenv("SQLITEDROP_TELEMETRY__LOG_LEVEL", "error")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--content-dir=/from/flag", "--verbose"}))

	cfg, err := Load(Options{File: path, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", cfg.ContentDir, "explicit flag wins")
	assert.Equal(t, "sqlite", cfg.DatabaseType.Value, "env beats file")
	assert.Equal(t, "error", cfg.Telemetry.LogLevel, "nested env key")
}

func TestLoadUnsetFlagsDoNotOverride(t *testing.T) {
	path := writeConfig(t, `
content_dir: /from/file
plugin_dir: /srv/app/plugin
`)

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(Options{File: path, Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.ContentDir)
	assert.False(t, cfg.DatabaseType.Defined)
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	path := writeConfig(t, `
content_dir: wp-content
plugin_dir: plugin
template: custom/db.copy
journal_file: state/journal.db
`)

	cfg, err := Load(Options{File: path})
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "wp-content"), cfg.ContentDir)
	assert.Equal(t, filepath.Join(cwd, "plugin"), cfg.PluginDir)
	assert.Equal(t, filepath.Join(cwd, "custom", "db.copy"), cfg.Template)
	assert.Equal(t, filepath.Join(cwd, "state", "journal.db"), cfg.JournalFile)
	assert.True(t, filepath.IsAbs(cfg.DatabaseFile))
}

func TestLoadSFTP(t *testing.T) {
	path := writeConfig(t, `
content_dir: /var/www/wp-content
plugin_dir: /srv/app/plugin
filesystem:
  method: sftp
  sftp:
    host: web1.example.com
    user: deploy
    password: secret
`)
	t.Setenv("SQLITEDROP_FILESYSTEM__SFTP__PORT", "2222")
	t.Setenv("SQLITEDROP_FILESYSTEM__SFTP__TIMEOUT", "5s")

	cfg, err := Load(Options{File: path})
	require.NoError(t, err)

	assert.Equal(t, MethodSFTP, cfg.Filesystem.Method)
	assert.Equal(t, "web1.example.com", cfg.Filesystem.SFTP.Host)
	assert.Equal(t, 2222, cfg.Filesystem.SFTP.Port)
	assert.Equal(t, 5*time.Second, cfg.Filesystem.SFTP.Timeout)
	assert.True(t, cfg.Filesystem.SFTP.StrictHostKeyChecking)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing content dir",
			content: "plugin_dir: /srv/app/plugin\n",
			wantErr: "invalid configuration",
		},
		{
			name:    "unknown key",
			content: "content_dir: /a\nplugin_dir: /b\ncontent_directory: /c\n",
			wantErr: "invalid configuration",
		},
		{
			name: "sftp without credentials",
			content: `
content_dir: /var/www/wp-content
plugin_dir: /srv/app/plugin
filesystem:
  method: sftp
  sftp:
    host: web1
    user: deploy
`,
			wantErr: "sftp validation failed",
		},
		{
			name: "relative remote content dir",
			content: `
content_dir: wp-content
plugin_dir: /srv/app/plugin
filesystem:
  method: sftp
`,
			wantErr: "must be absolute",
		},
		{
			name: "otlp without endpoint",
			content: `
content_dir: /a
plugin_dir: /b
telemetry:
  tracing_exporter: otlp
`,
			wantErr: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Options{File: writeConfig(t, tt.content)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadJournalWithoutContentDir(t *testing.T) {
	dir := t.TempDir()
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--journal-file", filepath.Join(dir, "journal.db")}))

	_, err := Load(Options{File: writeConfig(t, "{}\n"), Flags: flags})
	require.Error(t, err, "full load still requires content_dir")

	path, err := LoadJournal(Options{File: writeConfig(t, "{}\n"), Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "journal.db"), path)
}

func TestLoadJournalUnset(t *testing.T) {
	path, err := LoadJournal(Options{File: writeConfig(t, "content_dir: /srv/www/wp-content\n")})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestLoadJournalResolvesRelativePath(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	path, err := LoadJournal(Options{File: writeConfig(t, "journal_file: state/journal.db\n")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "state", "journal.db"), path)
}
