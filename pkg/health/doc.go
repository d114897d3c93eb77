// Package health reports on the presence of the SQLite drop-in.
//
// Notices produces the operator warnings shown while the plugin is active:
// one for a missing engine, one for a missing drop-in, never both.
// DebugData augments the host's diagnostics report with engine details when
// SQLite is the configured database type, and leaves it untouched otherwise.
//
// Both are read-only with respect to the drop-in and recompute everything on
// each call.
package health
