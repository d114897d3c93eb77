package dropin

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed filesystem step of a lifecycle operation.
type ErrorKind string

const (
	// KindStatFailed means the presence of the drop-in could not be determined.
	KindStatFailed ErrorKind = "stat_failed"

	// KindCreateFailed means the drop-in could not be created (touch), including
	// failing to acquire the filesystem in the first place.
	KindCreateFailed ErrorKind = "create_failed"

	// KindTemplateFailed means the template could not be read or rendered.
	KindTemplateFailed ErrorKind = "template_failed"

	// KindWriteFailed means the rendered content could not be written.
	KindWriteFailed ErrorKind = "write_failed"

	// KindDeleteFailed means the drop-in could not be removed.
	KindDeleteFailed ErrorKind = "delete_failed"
)

// Operation names used in errors, logs and metrics.
const (
	OpInstall = "install"
	OpRemove  = "remove"
)

// Error is returned when a lifecycle operation fails on the filesystem.
type Error struct {
	// Op is the lifecycle operation (install, remove).
	Op string `json:"op"`

	// Kind classifies the failed step.
	Kind ErrorKind `json:"kind"`

	// Path is the drop-in path the operation targeted.
	Path string `json:"path"`

	// Err is the underlying error.
	Err error `json:"-"`

	// Rollback is set when removing a partially installed file also failed.
	Rollback error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s (path=%s)", e.Op, e.Kind, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Rollback != nil {
		msg += "; rollback failed: " + e.Rollback.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &dropin.Error{Kind: dropin.KindWriteFailed}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Op == "" || t.Op == e.Op)
}

// Temporary reports whether the underlying failure is expected to clear on
// retry, as signalled by transport errors.
func (e *Error) Temporary() bool {
	var t interface{ Temporary() bool }
	if errors.As(e.Err, &t) {
		return t.Temporary()
	}
	return false
}

func newError(op string, kind ErrorKind, path string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: kind,
		Path: path,
		Err:  err,
	}
}

// IsKind returns true if err is a drop-in error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable returns true if err is a drop-in error whose cause is temporary.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Temporary()
	}
	return false
}

// KindOf returns the kind of a drop-in error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
