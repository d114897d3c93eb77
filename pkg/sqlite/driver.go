//go:build !nosqlite

package sqlite

import (
	// SQLite driver
	_ "modernc.org/sqlite"
)
