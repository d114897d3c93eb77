package dropin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
)

// Remover deletes the drop-in on deactivation.
type Remover struct {
	path      string
	inspector filesystem.Inspector
	acquirer  filesystem.Acquirer
	logger    zerolog.Logger
}

// NewRemover creates a remover for <contentDir>/db.php. The prerequisite in
// deps is not consulted: a drop-in is removed even if the engine went away.
func NewRemover(contentDir string, deps Dependencies) (*Remover, error) {
	if contentDir == "" {
		return nil, fmt.Errorf("content directory is required")
	}
	if deps.Inspector == nil || deps.Acquirer == nil {
		return nil, fmt.Errorf("filesystem inspector and acquirer are required")
	}

	return &Remover{
		path:      Path(contentDir),
		inspector: deps.Inspector,
		acquirer:  deps.Acquirer,
		logger:    deps.Logger.With().Str("component", "remover").Logger(),
	}, nil
}

// Path returns the drop-in path this remover manages.
func (r *Remover) Path() string {
	return r.path
}

// Remove deletes the drop-in if it is present.
func (r *Remover) Remove(ctx context.Context) (Result, error) {
	exists, err := r.inspector.Exists(ctx, r.path)
	if err != nil {
		return Result{Path: r.path}, newError(OpRemove, KindStatFailed, r.path, err)
	}
	if !exists {
		r.logger.Debug().Str("path", r.path).Msg("no drop-in to remove")
		return skipped(r.path, ReasonNotInstalled), nil
	}

	session, err := r.acquirer.Acquire(ctx)
	if err != nil {
		return Result{Path: r.path}, newError(OpRemove, KindDeleteFailed, r.path,
			fmt.Errorf("failed to acquire filesystem: %w", err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Warn().Err(cerr).Msg("failed to close filesystem session")
		}
	}()

	if err := session.Delete(ctx, r.path); err != nil {
		return Result{Path: r.path}, newError(OpRemove, KindDeleteFailed, r.path, err)
	}

	r.logger.Info().Str("path", r.path).Msg("drop-in removed")
	return Result{Outcome: OutcomeRemoved, Path: r.path}, nil
}
