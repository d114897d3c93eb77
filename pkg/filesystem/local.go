package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Local implements Filesystem and Acquirer on top of the os package.
type Local struct {
	logger zerolog.Logger
	mode   os.FileMode
}

// NewLocal creates a local filesystem. New files are created with mode 0644.
func NewLocal(logger zerolog.Logger) *Local {
	return &Local{
		logger: logger.With().Str("component", "fs-local").Logger(),
		mode:   0o644,
	}
}

// Acquire returns the local filesystem itself; there is no connection to set up.
func (l *Local) Acquire(_ context.Context) (Session, error) {
	return localSession{l}, nil
}

// Exists reports whether path exists.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// Size returns the size of the file at path.
func (l *Local) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Touch creates path if missing, otherwise bumps its timestamps.
func (l *Local) Touch(_ context.Context, path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, l.mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("failed to update times on %s: %w", path, err)
	}

	l.logger.Debug().Str("path", path).Msg("touched file")
	return nil
}

// Write replaces the contents of path.
func (l *Local) Write(_ context.Context, path string, data []byte) error {
	if err := os.WriteFile(path, data, l.mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	l.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("wrote file")
	return nil
}

// Delete removes path.
func (l *Local) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}

	l.logger.Debug().Str("path", path).Msg("deleted file")
	return nil
}

type localSession struct {
	*Local
}

func (localSession) Close() error { return nil }
