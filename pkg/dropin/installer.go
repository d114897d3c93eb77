package dropin

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
)

// Installer materializes the drop-in on activation.
type Installer struct {
	path         string
	pluginDir    string
	template     *Template
	prerequisite Prerequisite
	inspector    filesystem.Inspector
	acquirer     filesystem.Acquirer
	logger       zerolog.Logger
}

// NewInstaller creates an installer that writes <contentDir>/db.php from
// tmpl, substituting pluginDir for the placeholder.
func NewInstaller(contentDir, pluginDir string, tmpl *Template, deps Dependencies) (*Installer, error) {
	if contentDir == "" {
		return nil, fmt.Errorf("content directory is required")
	}
	if !filepath.IsAbs(pluginDir) {
		return nil, fmt.Errorf("plugin directory must be absolute: %q", pluginDir)
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}

	return &Installer{
		path:         Path(contentDir),
		pluginDir:    pluginDir,
		template:     tmpl,
		prerequisite: deps.Prerequisite,
		inspector:    deps.Inspector,
		acquirer:     deps.Acquirer,
		logger:       deps.Logger.With().Str("component", "installer").Logger(),
	}, nil
}

// Path returns the drop-in path this installer manages.
func (i *Installer) Path() string {
	return i.path
}

// Install creates the drop-in unless the engine is unavailable or a drop-in
// is already present. An existing file is never overwritten.
//
// When the file was created but its content could not be produced or
// written, the empty file is removed again so the host keeps loading its
// default driver.
func (i *Installer) Install(ctx context.Context) (Result, error) {
	if !i.prerequisite.Available(ctx) {
		i.logger.Warn().Str("path", i.path).Msg("sqlite engine unavailable, skipping drop-in install")
		return skipped(i.path, ReasonPrerequisiteMissing), nil
	}

	exists, err := i.inspector.Exists(ctx, i.path)
	if err != nil {
		return Result{Path: i.path}, newError(OpInstall, KindStatFailed, i.path, err)
	}
	if exists {
		i.logger.Info().Str("path", i.path).Msg("drop-in already present, leaving it untouched")
		return skipped(i.path, ReasonAlreadyInstalled), nil
	}

	session, err := i.acquirer.Acquire(ctx)
	if err != nil {
		return Result{Path: i.path}, newError(OpInstall, KindCreateFailed, i.path,
			fmt.Errorf("failed to acquire filesystem: %w", err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			i.logger.Warn().Err(cerr).Msg("failed to close filesystem session")
		}
	}()

	if err := session.Touch(ctx, i.path); err != nil {
		return Result{Path: i.path}, newError(OpInstall, KindCreateFailed, i.path, err)
	}

	content, err := i.template.Render(i.pluginDir)
	if err != nil {
		return Result{Path: i.path}, i.rollback(ctx, session, newError(OpInstall, KindTemplateFailed, i.path, err))
	}

	if err := session.Write(ctx, i.path, content); err != nil {
		return Result{Path: i.path}, i.rollback(ctx, session, newError(OpInstall, KindWriteFailed, i.path, err))
	}

	i.logger.Info().
		Str("path", i.path).
		Str("template", i.template.Source()).
		Int("bytes", len(content)).
		Msg("drop-in installed")

	return Result{
		Outcome:      OutcomeInstalled,
		Path:         i.path,
		BytesWritten: len(content),
	}, nil
}

// rollback removes a partially installed drop-in and records any failure on e.
func (i *Installer) rollback(ctx context.Context, fs filesystem.Filesystem, e *Error) error {
	if err := fs.Delete(ctx, i.path); err != nil {
		e.Rollback = err
		i.logger.Error().Err(err).Str("path", i.path).Msg("failed to remove partial drop-in")
		return e
	}
	i.logger.Warn().Str("path", i.path).Str("kind", string(e.Kind)).Msg("removed partial drop-in")
	return e
}

func (d Dependencies) validate() error {
	if d.Prerequisite == nil {
		return fmt.Errorf("engine prerequisite is required")
	}
	if d.Inspector == nil {
		return fmt.Errorf("filesystem inspector is required")
	}
	if d.Acquirer == nil {
		return fmt.Errorf("filesystem acquirer is required")
	}
	return nil
}
