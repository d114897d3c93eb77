package filesystem

import (
	"context"
	"io"
)

// Inspector answers read-only questions about paths.
type Inspector interface {
	// Exists reports whether a file is present at path.
	// A missing file is not an error.
	Exists(ctx context.Context, path string) (bool, error)

	// Size returns the size in bytes of the file at path.
	Size(ctx context.Context, path string) (int64, error)
}

// Filesystem is the mutating capability used by the installer and remover.
type Filesystem interface {
	Inspector

	// Touch creates an empty file at path, or updates its timestamps if it
	// already exists.
	Touch(ctx context.Context, path string) error

	// Write replaces the contents of the file at path.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error
}

// Session is an acquired Filesystem that must be closed after use.
type Session interface {
	Filesystem
	io.Closer
}

// Acquirer hands out filesystem sessions on demand.
type Acquirer interface {
	Acquire(ctx context.Context) (Session, error)
}

// Method names the backend used to reach the content directory.
type Method string

const (
	// MethodDirect uses the local filesystem.
	MethodDirect Method = "direct"

	// MethodSFTP reaches the content directory over SFTP.
	MethodSFTP Method = "sftp"
)
