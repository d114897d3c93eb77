package dropin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type temporaryError struct{ temporary bool }

func (e temporaryError) Error() string   { return "transport hiccup" }
func (e temporaryError) Temporary() bool { return e.temporary }

func TestErrorClassification(t *testing.T) {
	err := newError(OpInstall, KindWriteFailed, testPath, temporaryError{temporary: true})

	assert.True(t, IsKind(err, KindWriteFailed))
	assert.False(t, IsKind(err, KindDeleteFailed))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, KindWriteFailed, KindOf(err))

	assert.True(t, errors.Is(err, &Error{Kind: KindWriteFailed}))
	assert.True(t, errors.Is(err, &Error{Kind: KindWriteFailed, Op: OpInstall}))
	assert.False(t, errors.Is(err, &Error{Kind: KindWriteFailed, Op: OpRemove}))

	assert.Equal(t, "install write_failed (path=/srv/www/wp-content/db.php): transport hiccup", err.Error())
}

func TestErrorNotRetryable(t *testing.T) {
	assert.False(t, IsRetryable(newError(OpRemove, KindDeleteFailed, testPath, temporaryError{})))
	assert.False(t, IsRetryable(newError(OpRemove, KindDeleteFailed, testPath, errors.New("nope"))))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}
