package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/sqlitedrop/sqlitedrop/pkg/config"
	"github.com/sqlitedrop/sqlitedrop/pkg/dropin"
	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
	"github.com/sqlitedrop/sqlitedrop/pkg/health"
	"github.com/sqlitedrop/sqlitedrop/pkg/hooks"
	"github.com/sqlitedrop/sqlitedrop/pkg/sqlite"
	"github.com/sqlitedrop/sqlitedrop/pkg/telemetry"
	sshtransport "github.com/sqlitedrop/sqlitedrop/pkg/transports/ssh"
)

// Backend reaches the content directory.
type Backend interface {
	filesystem.Acquirer
	filesystem.Inspector
}

// Engine answers whether SQLite is usable and which version it is.
type Engine interface {
	dropin.Prerequisite
	health.VersionSource
}

// Option customizes a Plugin.
type Option func(*Plugin)

// WithBackend replaces the backend selected by the filesystem method.
func WithBackend(b Backend) Option {
	return func(p *Plugin) {
		p.backend = b
	}
}

// WithEngine replaces the SQLite runtime probe.
func WithEngine(e Engine) Option {
	return func(p *Plugin) {
		p.engine = e
	}
}

// Plugin wires installer, remover, notices and debug data to hooks.
type Plugin struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	logger  zerolog.Logger
	backend Backend
	engine  Engine

	installer *dropin.Installer
	remover   *dropin.Remover
	notices   *health.Notices
	debug     *health.DebugData
	hooks     *hooks.Registry
}

// New builds a plugin from cfg and registers its callbacks on a fresh hook
// registry.
func New(cfg *config.Config, tel *telemetry.Telemetry, opts ...Option) (*Plugin, error) {
	if cfg == nil || tel == nil {
		return nil, fmt.Errorf("config and telemetry are required")
	}

	p := &Plugin{
		cfg:    cfg,
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("plugin").Zerolog(),
		hooks:  hooks.NewRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.engine == nil {
		p.engine = sqlite.NewRuntime(p.logger)
	}
	if p.backend == nil {
		backend, err := newBackend(cfg, p.logger)
		if err != nil {
			return nil, err
		}
		p.backend = backend
	}

	var tmpl *dropin.Template
	if cfg.Template != "" {
		tmpl = dropin.TemplateFromFile(cfg.Template)
	}

	deps := dropin.Dependencies{
		Prerequisite: p.engine,
		Inspector:    p.backend,
		Acquirer:     p.backend,
		Logger:       p.logger,
	}

	var err error
	if p.installer, err = dropin.NewInstaller(cfg.ContentDir, cfg.PluginDir, tmpl, deps); err != nil {
		return nil, fmt.Errorf("failed to create installer: %w", err)
	}
	if p.remover, err = dropin.NewRemover(cfg.ContentDir, deps); err != nil {
		return nil, fmt.Errorf("failed to create remover: %w", err)
	}

	p.notices = health.NewNotices(cfg.ContentDir, p.engine, p.backend, p.logger)

	p.debug, err = health.NewDebugData(health.DebugDataOptions{
		Flag: health.Flag{
			Value:   cfg.DatabaseType.Value,
			Defined: cfg.DatabaseType.Defined,
		},
		DatabaseFile:   cfg.DatabaseFile,
		Prerequisite:   p.engine,
		Versions:       p.engine,
		Inspector:      p.backend,
		OnFieldFailure: p.fieldFailed,
		Logger:         p.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create debug data: %w", err)
	}

	p.register()
	return p, nil
}

func (p *Plugin) register() {
	p.hooks.OnActivate(func(ctx context.Context) error {
		_, err := p.Activate(ctx)
		return err
	})
	p.hooks.OnDeactivate(func(ctx context.Context) error {
		_, err := p.Deactivate(ctx)
		return err
	})
	p.hooks.OnAdminNotices(p.Notices)
	p.hooks.OnDebugInformation(p.DebugInformation)
}

// newBackend selects the filesystem backend for cfg.Filesystem.Method.
func newBackend(cfg *config.Config, logger zerolog.Logger) (Backend, error) {
	switch cfg.Filesystem.Method {
	case config.MethodDirect, "":
		return filesystem.NewLocal(logger), nil
	case config.MethodSFTP:
		client, err := sshtransport.NewClient(sshConfig(cfg.Filesystem.SFTP), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create sftp client: %w", err)
		}
		return sshtransport.NewFilesystem(client, logger), nil
	default:
		return nil, fmt.Errorf("unsupported filesystem method: %s", cfg.Filesystem.Method)
	}
}

func sshConfig(c config.SFTPConfig) *sshtransport.Config {
	sc := sshtransport.DefaultConfig(c.Host, c.User)
	if c.Port != 0 {
		sc.Port = c.Port
	}
	if c.PrivateKey != "" {
		sc.AuthMethod = sshtransport.AuthMethodKey
		sc.PrivateKeyPath = c.PrivateKey
	} else {
		sc.AuthMethod = sshtransport.AuthMethodPassword
		sc.Password = c.Password
	}
	if c.KnownHosts != "" {
		sc.KnownHostsPath = c.KnownHosts
	}
	sc.StrictHostKeyChecking = c.StrictHostKeyChecking
	if c.Timeout > 0 {
		sc.ConnectionTimeout = c.Timeout
	}
	return sc
}

// Hooks returns the registry the plugin's callbacks are registered on.
func (p *Plugin) Hooks() *hooks.Registry {
	return p.hooks
}

// Config returns the configuration the plugin was built from.
func (p *Plugin) Config() *config.Config {
	return p.cfg
}

// Activate installs the drop-in.
func (p *Plugin) Activate(ctx context.Context) (dropin.Result, error) {
	return p.run(ctx, dropin.OpInstall, p.installer.Path(), p.installer.Install)
}

// Deactivate removes the drop-in.
func (p *Plugin) Deactivate(ctx context.Context) (dropin.Result, error) {
	return p.run(ctx, dropin.OpRemove, p.remover.Path(), p.remover.Remove)
}

func (p *Plugin) run(ctx context.Context, op, path string, fn func(context.Context) (dropin.Result, error)) (dropin.Result, error) {
	ctx, span := p.tel.Tracer.StartLifecycleSpan(ctx, op, path)
	defer span.End()

	logger := p.tel.Logger.WithOperation(op).WithPath(path)
	if sc := span.SpanContext(); sc.IsValid() {
		logger = logger.WithField("trace_id", sc.TraceID().String())
	}

	timer := telemetry.NewTimer()
	result, err := fn(ctx)
	duration := timer.Duration()

	if err != nil {
		kind := string(dropin.KindOf(err))
		span.SetAttributes(telemetry.AttrErrorKind.String(kind))
		telemetry.RecordError(span, err)

		p.tel.Metrics.RecordOperation(op, "failed", duration)
		p.tel.Metrics.RecordError(op, kind)
		logger.WithError(err).WithFields(map[string]interface{}{
			"kind":      kind,
			"retryable": dropin.IsRetryable(err),
		}).Error("drop-in operation failed")
		p.publish(p.tel.Events.PublishFailed(op, path, kind, err))
		return result, err
	}

	p.recordResult(span, op, result, duration)
	logger.WithFields(map[string]interface{}{
		"outcome":     string(result.Outcome),
		"reason":      string(result.Reason),
		"duration_ms": duration.Milliseconds(),
	}).Info("drop-in operation finished")
	return result, nil
}

func (p *Plugin) recordResult(span trace.Span, op string, result dropin.Result, duration time.Duration) {
	span.SetAttributes(
		telemetry.AttrOutcome.String(string(result.Outcome)),
		telemetry.AttrReason.String(string(result.Reason)),
	)
	telemetry.RecordSuccess(span)

	p.tel.Metrics.RecordOperation(op, string(result.Outcome), duration)

	switch {
	case result.Outcome == dropin.OutcomeInstalled:
		p.tel.Metrics.SetDropInPresent(true)
		p.publish(p.tel.Events.PublishInstalled(result.Path, result.BytesWritten))
	case result.Outcome == dropin.OutcomeRemoved:
		p.tel.Metrics.SetDropInPresent(false)
		p.publish(p.tel.Events.PublishRemoved(result.Path))
	default:
		switch result.Reason {
		case dropin.ReasonAlreadyInstalled:
			p.tel.Metrics.SetDropInPresent(true)
		case dropin.ReasonNotInstalled:
			p.tel.Metrics.SetDropInPresent(false)
		case dropin.ReasonPrerequisiteMissing:
			p.tel.Metrics.SetEngineAvailable(false)
		}
		p.publish(p.tel.Events.PublishSkipped(op, result.Path, string(result.Reason)))
	}
}

// Notices returns the warnings to show while the plugin is active.
func (p *Plugin) Notices(ctx context.Context) []health.Notice {
	ctx, span := p.tel.Tracer.StartReportSpan(ctx, "notices")
	defer span.End()

	notices := p.notices.Emit(ctx)
	p.recordNotices(notices)

	span.SetAttributes(telemetry.AttrNotices.Int(len(notices)))
	telemetry.RecordSuccess(span)
	return notices
}

func (p *Plugin) recordNotices(notices []health.Notice) {
	engineAvailable, present := true, true
	for _, n := range notices {
		switch n.Code {
		case health.CodeEngineMissing:
			// The drop-in is not checked without the engine.
			engineAvailable = false
		case health.CodeDropInMissing:
			present = false
		}
		p.tel.Metrics.RecordNotice(string(n.Code))
		p.publish(p.tel.Events.PublishNotice(string(n.Code), n.Message))
	}

	p.tel.Metrics.SetEngineAvailable(engineAvailable)
	if engineAvailable {
		p.tel.Metrics.SetDropInPresent(present)
	}
}

// DebugInformation filters the diagnostics report.
func (p *Plugin) DebugInformation(ctx context.Context, info health.Info) health.Info {
	ctx, span := p.tel.Tracer.StartReportSpan(ctx, "debug_information")
	defer span.End()

	info = p.debug.Augment(ctx, info)
	telemetry.RecordSuccess(span)
	return info
}

func (p *Plugin) fieldFailed(field string, err error) {
	p.tel.Metrics.RecordReportFieldFailure(field)
	p.logger.Warn().Err(err).Str("field", field).Msg("diagnostics field unavailable")
}

// Watch re-emits notices whenever the drop-in changes in a local content
// directory. It is not available over SFTP.
func (p *Plugin) Watch(ctx context.Context, debounce time.Duration, fn func([]health.Notice)) (*health.Watcher, error) {
	if p.cfg.Filesystem.Method == config.MethodSFTP {
		return nil, fmt.Errorf("watching is only supported for the %s filesystem method", config.MethodDirect)
	}

	w := health.NewWatcher(p.cfg.ContentDir, p.notices, debounce, p.logger)
	err := w.Watch(ctx, func(notices []health.Notice) {
		p.recordNotices(notices)
		fn(notices)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (p *Plugin) publish(err error) {
	if err != nil {
		p.logger.Debug().Err(err).Msg("failed to publish event")
	}
}
