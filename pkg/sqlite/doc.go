// Package sqlite probes the in-process SQLite engine.
//
// The engine is available when the modernc.org/sqlite database/sql driver is
// linked into the binary and answers a trivial query on an in-memory
// database. Building with -tags nosqlite leaves the driver out, which is how
// the "engine missing" path is exercised end to end.
package sqlite
