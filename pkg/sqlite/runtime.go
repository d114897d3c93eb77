package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// DriverName is the database/sql name registered by modernc.org/sqlite.
const DriverName = "sqlite"

const defaultProbeTimeout = 2 * time.Second

// Runtime answers questions about the SQLite engine. Every call probes afresh;
// nothing is cached between calls.
type Runtime struct {
	driver  string
	timeout time.Duration
	logger  zerolog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithDriver overrides the database/sql driver name that is probed.
func WithDriver(name string) Option {
	return func(r *Runtime) { r.driver = name }
}

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRuntime creates an engine probe.
func NewRuntime(logger zerolog.Logger, opts ...Option) *Runtime {
	r := &Runtime{
		driver:  DriverName,
		timeout: defaultProbeTimeout,
		logger:  logger.With().Str("component", "sqlite").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registered reports whether the driver is linked into the process.
func (r *Runtime) Registered() bool {
	return slices.Contains(sql.Drivers(), r.driver)
}

// Available reports whether the engine can be used right now.
func (r *Runtime) Available(ctx context.Context) bool {
	if _, err := r.Version(ctx); err != nil {
		r.logger.Debug().Err(err).Msg("sqlite engine unavailable")
		return false
	}
	return true
}

// Version returns the engine's library version, e.g. "3.50.4".
func (r *Runtime) Version(ctx context.Context) (string, error) {
	if !r.Registered() {
		return "", fmt.Errorf("database driver %q is not registered", r.driver)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	db, err := sql.Open(r.driver, ":memory:")
	if err != nil {
		return "", fmt.Errorf("failed to open in-memory database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query sqlite version: %w", err)
	}
	return version, nil
}
