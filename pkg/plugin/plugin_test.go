package plugin

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlitedrop/sqlitedrop/pkg/config"
	"github.com/sqlitedrop/sqlitedrop/pkg/dropin"
	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem/fstest"
	"github.com/sqlitedrop/sqlitedrop/pkg/health"
	"github.com/sqlitedrop/sqlitedrop/pkg/hooks"
	"github.com/sqlitedrop/sqlitedrop/pkg/telemetry"
)

type fakeEngine struct {
	fstest.Prerequisite
	version string
}

func (e *fakeEngine) Version(_ context.Context) (string, error) {
	if e.version == "" {
		return "", errors.New("no engine")
	}
	return e.version, nil
}

type recorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *recorder) record(e telemetry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	plugin *Plugin
	tel    *telemetry.Telemetry
	events *recorder
	logs   *bytes.Buffer
	cfg    *config.Config
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	contentDir := t.TempDir()
	return &config.Config{
		ContentDir:   contentDir,
		PluginDir:    "/srv/app/plugin",
		DatabaseFile: filepath.Join(contentDir, "database", ".ht.sqlite"),
		Filesystem:   config.FilesystemConfig{Method: config.MethodDirect},
	}
}

func newHarness(t *testing.T, cfg *config.Config, engine *fakeEngine, opts ...Option) *harness {
	t.Helper()

	logs := &bytes.Buffer{}
	tc := TelemetryConfig(cfg, "test", logs)
	tc.Logging.Format = "json"
	tc.Logging.Level = "debug"

	tel, err := telemetry.NewTelemetry(tc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	events := &recorder{}
	tel.Events.Subscribe(events.record, nil)

	p, err := New(cfg, tel, append([]Option{WithEngine(engine)}, opts...)...)
	require.NoError(t, err)

	return &harness{plugin: p, tel: tel, events: events, logs: logs, cfg: cfg}
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if matchLabels(m, labels) {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestRoundTripThroughHooks(t *testing.T) {
	cfg := newTestConfig(t)
	h := newHarness(t, cfg, &fakeEngine{Prerequisite: fstest.Prerequisite{OK: true}, version: "3.46.0"})
	ctx := context.Background()
	path := filepath.Join(cfg.ContentDir, dropin.FileName)

	require.NoError(t, h.plugin.Hooks().FireActivate(ctx))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "/srv/app/plugin")
	assert.Empty(t, h.plugin.Hooks().FireAdminNotices(ctx))

	require.NoError(t, h.plugin.Hooks().FireDeactivate(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	notices := h.plugin.Hooks().FireAdminNotices(ctx)
	require.Len(t, notices, 1)
	assert.Equal(t, health.CodeDropInMissing, notices[0].Code)
	assert.Contains(t, notices[0].Message, path)

	assert.Equal(t, []string{
		telemetry.EventTypeDropInInstalled,
		telemetry.EventTypeDropInRemoved,
		telemetry.EventTypeNoticeEmitted,
	}, h.events.types())

	reg := h.tel.Metrics.Registry()
	assert.Equal(t, 1.0, metricValue(t, reg, "sqlitedrop_dropin_operations_total",
		map[string]string{"operation": "install", "outcome": "installed"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "sqlitedrop_dropin_operations_total",
		map[string]string{"operation": "remove", "outcome": "removed"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "sqlitedrop_notices_total",
		map[string]string{"code": string(health.CodeDropInMissing)}))
	assert.Equal(t, 0.0, metricValue(t, reg, "sqlitedrop_dropin_present", nil))
}

func TestActivateSkipsWithoutEngine(t *testing.T) {
	cfg := newTestConfig(t)
	h := newHarness(t, cfg, &fakeEngine{})

	result, err := h.plugin.Activate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dropin.ReasonPrerequisiteMissing, result.Reason)

	_, err = os.Stat(filepath.Join(cfg.ContentDir, dropin.FileName))
	assert.True(t, os.IsNotExist(err))

	notices := h.plugin.Notices(context.Background())
	require.Len(t, notices, 1)
	assert.Equal(t, health.CodeEngineMissing, notices[0].Code)

	assert.Equal(t, []string{
		telemetry.EventTypeDropInSkipped,
		telemetry.EventTypeNoticeEmitted,
	}, h.events.types())
	assert.Equal(t, 0.0, metricValue(t, h.tel.Metrics.Registry(), "sqlitedrop_engine_available", nil))
}

func TestActivateFailureIsRecorded(t *testing.T) {
	mem := fstest.New()
	mem.FailWrite = errors.New("disk full")

	cfg := newTestConfig(t)
	h := newHarness(t, cfg, &fakeEngine{Prerequisite: fstest.Prerequisite{OK: true}}, WithBackend(mem))

	err := h.plugin.Hooks().FireActivate(context.Background())
	require.Error(t, err)
	assert.True(t, dropin.IsKind(err, dropin.KindWriteFailed))

	require.Equal(t, []string{telemetry.EventTypeDropInFailed}, h.events.types())
	assert.Equal(t, string(dropin.KindWriteFailed), h.events.events[0].Data["kind"])

	assert.Equal(t, 1.0, metricValue(t, h.tel.Metrics.Registry(), "sqlitedrop_dropin_errors_total",
		map[string]string{"operation": "install", "kind": string(dropin.KindWriteFailed)}))
	assert.Contains(t, h.logs.String(), "drop-in operation failed")
}

func TestDebugInformationWhenSQLiteActive(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DatabaseType = config.DatabaseType{Value: "sqlite", Defined: true}
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DatabaseFile), 0o755))
	require.NoError(t, os.WriteFile(cfg.DatabaseFile, make([]byte, 4096), 0o644))

	h := newHarness(t, cfg, &fakeEngine{Prerequisite: fstest.Prerequisite{OK: true}, version: "3.46.0"})

	info := h.plugin.Hooks().ApplyDebugInformation(context.Background(), health.Info{})

	db := info[health.SectionDatabase]
	require.NotNil(t, db)
	assert.Equal(t, "4 KB", db.Fields[health.FieldDatabaseSize].Value)
	assert.Equal(t, "3.46.0", db.Fields[health.FieldDatabaseVersion].Value)
	assert.Equal(t, cfg.DatabaseFile, db.Fields[health.FieldDatabaseFile].Value)
}

func TestDebugInformationFieldFailureIsCounted(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DatabaseType = config.DatabaseType{Value: "sqlite", Defined: true}

	h := newHarness(t, cfg, &fakeEngine{Prerequisite: fstest.Prerequisite{OK: true}, version: "3.46.0"})

	info := h.plugin.DebugInformation(context.Background(), nil)
	assert.Nil(t, info[health.SectionDatabase].Fields[health.FieldDatabaseSize].Value)

	assert.Equal(t, 1.0, metricValue(t, h.tel.Metrics.Registry(), "sqlitedrop_report_field_failures_total",
		map[string]string{"field": health.FieldDatabaseSize}))
}

func TestDebugInformationUntouchedForMySQL(t *testing.T) {
	cfg := newTestConfig(t)
	h := newHarness(t, cfg, &fakeEngine{Prerequisite: fstest.Prerequisite{OK: true}})

	info := health.Info{}
	out := h.plugin.DebugInformation(context.Background(), info)
	assert.Empty(t, out)
}

func TestHooksRegistered(t *testing.T) {
	h := newHarness(t, newTestConfig(t), &fakeEngine{})

	for _, hook := range []string{hooks.Activate, hooks.Deactivate, hooks.AdminNotices, hooks.DebugInformation} {
		assert.Equal(t, 1, h.plugin.Hooks().Count(hook), hook)
	}
}

func TestWatchRequiresLocalFilesystem(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Filesystem.Method = config.MethodSFTP

	h := newHarness(t, cfg, &fakeEngine{}, WithBackend(fstest.New()))

	_, err := h.plugin.Watch(context.Background(), 0, func([]health.Notice) {})
	assert.Error(t, err)
}

func TestSSHConfigMapping(t *testing.T) {
	sc := sshConfig(config.SFTPConfig{
		Host:       "web.example.com",
		User:       "deploy",
		PrivateKey: "/home/deploy/.ssh/id_ed25519",
		KnownHosts: "/etc/ssh/known_hosts",
	})
	assert.Equal(t, 22, sc.Port)
	assert.Equal(t, "key", string(sc.AuthMethod))
	assert.Equal(t, "/home/deploy/.ssh/id_ed25519", sc.PrivateKeyPath)
	assert.Equal(t, "/etc/ssh/known_hosts", sc.KnownHostsPath)
	assert.False(t, sc.StrictHostKeyChecking)

	sc = sshConfig(config.SFTPConfig{Host: "h", User: "u", Password: "p", Port: 2222})
	assert.Equal(t, "password", string(sc.AuthMethod))
	assert.Equal(t, 2222, sc.Port)
}

func TestStatus(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DatabaseType = config.DatabaseType{Value: "sqlite", Defined: true}
	h := newHarness(t, cfg, &fakeEngine{Prerequisite: fstest.Prerequisite{OK: true}, version: "3.46.0"})
	ctx := context.Background()

	st, err := h.plugin.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.DropInPresent)
	assert.True(t, st.EngineAvailable)
	assert.Equal(t, "3.46.0", st.EngineVersion)
	assert.Equal(t, health.EngineSQLite, st.ActiveEngine)
	assert.Equal(t, filepath.Join(cfg.ContentDir, dropin.FileName), st.DropInPath)

	_, err = h.plugin.Activate(ctx)
	require.NoError(t, err)

	st, err = h.plugin.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.DropInPresent)
}

func TestStatusExistenceFailure(t *testing.T) {
	mem := fstest.New()
	mem.FailExists = errors.New("permission denied")

	h := newHarness(t, newTestConfig(t), &fakeEngine{}, WithBackend(mem))

	st, err := h.plugin.Status(context.Background())
	require.Error(t, err)
	assert.False(t, st.EngineAvailable)
	assert.Equal(t, "undefined", st.DatabaseType)
	assert.Equal(t, health.EngineMySQL, st.ActiveEngine)
}
