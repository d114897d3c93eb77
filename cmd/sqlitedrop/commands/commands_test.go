package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlitedrop/sqlitedrop/pkg/health"
	"github.com/sqlitedrop/sqlitedrop/pkg/plugin"
	"github.com/sqlitedrop/sqlitedrop/pkg/stores"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand("test", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestActivateStatusDeactivate(t *testing.T) {
	contentDir := t.TempDir()
	common := []string{"--content-dir", contentDir, "--plugin-dir", "/srv/app/plugin", "--log-level", "error"}

	out, err := run(t, append([]string{"activate"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Drop-in installed at "+filepath.Join(contentDir, "db.php"))

	content, err := os.ReadFile(filepath.Join(contentDir, "db.php"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "/srv/app/plugin")

	out, err = run(t, append([]string{"status", "--json"}, common...)...)
	require.NoError(t, err)
	var st plugin.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.DropInPresent)
	assert.True(t, st.EngineAvailable)

	out, err = run(t, append([]string{"activate"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "already_installed")

	out, err = run(t, append([]string{"deactivate"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Drop-in removed from")

	out, err = run(t, append([]string{"notices", "--json"}, common...)...)
	require.NoError(t, err)
	var notices []health.Notice
	require.NoError(t, json.Unmarshal([]byte(out), &notices))
	require.Len(t, notices, 1)
	assert.Equal(t, health.CodeDropInMissing, notices[0].Code)

	_, err = run(t, append([]string{"notices", "--fail"}, common...)...)
	assert.Error(t, err)
}

func TestDebugInfoFiltersReport(t *testing.T) {
	contentDir := t.TempDir()
	report := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(report, []byte(`{
  "wp-database": {
    "label": "Database",
    "fields": {
      "database_host": {"label": "Server", "value": "localhost"},
      "database_name": {"label": "Database name", "value": "wordpress"}
    }
  }
}`), 0o644))

	out, err := run(t, "debug-info",
		"--content-dir", contentDir,
		"--plugin-dir", "/srv/app/plugin",
		"--database-type", "sqlite",
		"--log-level", "error",
		"--input", report,
		"--format", "json",
	)
	require.NoError(t, err)

	var info health.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))

	db := info[health.SectionDatabase]
	require.NotNil(t, db)
	assert.NotContains(t, db.Fields, "database_host")
	assert.NotContains(t, db.Fields, "database_name")
	assert.Equal(t, "SQLite", db.Fields[health.FieldDatabaseType].Value)
	assert.Equal(t, "sqlite", info[health.SectionConstants].Fields[health.FieldDatabaseTypeConstant].Value)
}

func TestDebugInfoRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "debug-info", "--format", "xml")
	assert.Error(t, err)
}

func TestJournalRecordsLifecycle(t *testing.T) {
	contentDir := t.TempDir()
	journal := filepath.Join(t.TempDir(), "journal.db")
	common := []string{
		"--content-dir", contentDir,
		"--plugin-dir", "/srv/app/plugin",
		"--journal-file", journal,
		"--log-level", "error",
	}

	_, err := run(t, append([]string{"activate"}, common...)...)
	require.NoError(t, err)
	_, err = run(t, append([]string{"activate"}, common...)...)
	require.NoError(t, err)
	_, err = run(t, append([]string{"deactivate"}, common...)...)
	require.NoError(t, err)

	out, err := run(t, "history", "--json", "--journal-file", journal, "--log-level", "error")
	require.NoError(t, err)

	var entries []stores.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "dropin.removed", entries[0].Type)
	assert.Equal(t, "dropin.skipped", entries[1].Type)
	assert.Equal(t, "dropin.installed", entries[2].Type)

	out, err = run(t, "history", "--json", "--operation", "remove", "--journal-file", journal)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(contentDir, "db.php"), entries[0].Path)

	out, err = run(t, "history", "--journal-file", journal)
	require.NoError(t, err)
	assert.Contains(t, out, "dropin.installed")
}

func TestHistoryRequiresJournal(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, "history", "--log-level", "error")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoJournal)
}

func TestHistoryWithoutContentDir(t *testing.T) {
	t.Chdir(t.TempDir())
	journal := filepath.Join(t.TempDir(), "journal.db")

	out, err := run(t, "history", "--journal-file", journal)
	require.NoError(t, err)
	assert.Contains(t, out, "No journal entries")
}

func TestDebugInfoNullSection(t *testing.T) {
	report := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(report, []byte(`{
  "wp-core": null,
  "wp-database": {"label": "Database", "fields": {"database_host": {"label": "Server", "value": "localhost"}}}
}`), 0o644))

	out, err := run(t, "debug-info",
		"--content-dir", t.TempDir(),
		"--plugin-dir", "/srv/app/plugin",
		"--database-type", "mysql",
		"--log-level", "error",
		"--input", report,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Database")
	assert.Contains(t, out, "localhost")
}

func TestPrintInfoSkipsNilSections(t *testing.T) {
	var buf bytes.Buffer
	assert.NotPanics(t, func() {
		printInfo(&buf, health.Info{"wp-core": nil})
	})
}
