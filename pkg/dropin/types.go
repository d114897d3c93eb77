package dropin

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
)

// FileName is the host-recognized name of the database drop-in.
const FileName = "db.php"

// Path returns the drop-in location inside a content directory.
func Path(contentDir string) string {
	return filepath.Join(contentDir, FileName)
}

// Outcome is what a lifecycle operation did.
type Outcome string

const (
	OutcomeInstalled Outcome = "installed"
	OutcomeRemoved   Outcome = "removed"
	OutcomeSkipped   Outcome = "skipped"
)

// Reason explains a skipped outcome.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonPrerequisiteMissing Reason = "prerequisite_missing"
	ReasonAlreadyInstalled    Reason = "already_installed"
	ReasonNotInstalled        Reason = "not_installed"
)

// Result describes the outcome of Install or Remove.
type Result struct {
	Outcome      Outcome `json:"outcome"`
	Reason       Reason  `json:"reason,omitempty"`
	Path         string  `json:"path"`
	BytesWritten int     `json:"bytes_written,omitempty"`
}

// Skipped reports whether the operation performed no filesystem change.
func (r Result) Skipped() bool {
	return r.Outcome == OutcomeSkipped
}

func skipped(path string, reason Reason) Result {
	return Result{Outcome: OutcomeSkipped, Reason: reason, Path: path}
}

// Prerequisite reports whether the alternate engine can be used in this process.
type Prerequisite interface {
	Available(ctx context.Context) bool
}

// Dependencies are the collaborators shared by Installer and Remover.
type Dependencies struct {
	// Prerequisite gates installation on engine availability.
	Prerequisite Prerequisite

	// Inspector checks for the drop-in without acquiring a session.
	Inspector filesystem.Inspector

	// Acquirer provides a mutating session, only when one is needed.
	Acquirer filesystem.Acquirer

	// Logger receives lifecycle logs.
	Logger zerolog.Logger
}
