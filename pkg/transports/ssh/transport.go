// Package ssh reaches a remote content directory over SSH and SFTP.
package ssh

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh/knownhosts"
)

// TransportError represents an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed (e.g., "connect", "sftp-write")
	Op string

	// Err is the underlying error
	Err error

	// IsTemporary indicates if the error is temporary and can be retried
	IsTemporary bool

	// IsAuthError indicates if the error is related to authentication
	IsAuthError bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return e.IsTemporary
}

// classify wraps err in a TransportError for op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	te := &TransportError{Op: op, Err: err}

	var keyErr *knownhosts.KeyError
	switch {
	case errors.As(err, &keyErr), strings.Contains(err.Error(), "unable to authenticate"):
		te.IsAuthError = true
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, sftp.ErrSSHFxConnectionLost),
		errors.Is(err, sftp.ErrSSHFxNoConnection):
		te.IsTemporary = true
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			te.IsTemporary = true
		}
	}

	return te
}
