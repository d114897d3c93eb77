// Package stores persists the lifecycle journal: one row per drop-in
// install, removal, skip, failure or notice, in a SQLite database managed
// with embedded migrations.
package stores
