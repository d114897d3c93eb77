package health

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sqlitedrop/sqlitedrop/pkg/dropin"
	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
)

// Code identifies an operator warning.
type Code string

const (
	// CodeEngineMissing means the SQLite engine is not available in-process.
	CodeEngineMissing Code = "engine_missing"

	// CodeDropInMissing means the engine is available but db.php is absent.
	CodeDropInMissing Code = "dropin_missing"
)

// Severity of a notice.
type Severity string

// SeverityError is the only severity the reporter emits.
const SeverityError Severity = "error"

// Notice is an operator-visible warning.
type Notice struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

const (
	engineMissingMessage = "The SQLite integration is active, but the SQLite engine is missing from this build. " +
		"Please make sure SQLite support is enabled."
	dropInMissingMessage = "The SQLite integration is active, but the %s file is missing. " +
		"Please deactivate the plugin and try again."
)

// Notices computes the warnings shown while the plugin is active.
type Notices struct {
	path         string
	prerequisite dropin.Prerequisite
	inspector    filesystem.Inspector
	logger       zerolog.Logger
}

// NewNotices creates a warning emitter for the drop-in in contentDir.
func NewNotices(contentDir string, prerequisite dropin.Prerequisite, inspector filesystem.Inspector, logger zerolog.Logger) *Notices {
	return &Notices{
		path:         dropin.Path(contentDir),
		prerequisite: prerequisite,
		inspector:    inspector,
		logger:       logger.With().Str("component", "notices").Logger(),
	}
}

// Emit returns at most one notice. A missing engine takes precedence and
// suppresses the drop-in check entirely.
func (n *Notices) Emit(ctx context.Context) []Notice {
	if !n.prerequisite.Available(ctx) {
		return []Notice{{
			Code:     CodeEngineMissing,
			Severity: SeverityError,
			Message:  engineMissingMessage,
		}}
	}

	exists, err := n.inspector.Exists(ctx, n.path)
	if err != nil {
		// Advisory only: an unreadable drop-in is as good as a missing one.
		n.logger.Debug().Err(err).Str("path", n.path).Msg("drop-in existence check failed")
		exists = false
	}
	if exists {
		return nil
	}

	return []Notice{{
		Code:     CodeDropInMissing,
		Severity: SeverityError,
		Message:  fmt.Sprintf(dropInMissingMessage, n.path),
	}}
}
