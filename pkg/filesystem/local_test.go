package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "db.php")

	local := NewLocal(zerolog.Nop())
	session, err := local.Acquire(ctx)
	require.NoError(t, err)
	defer session.Close()

	exists, err := session.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, session.Touch(ctx, path))
	size, err := session.Size(ctx, path)
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, session.Write(ctx, path, []byte("<?php\n")))
	size, err = session.Size(ctx, path)
	require.NoError(t, err)
	assert.EqualValues(t, 6, size)

	// Touching an existing file keeps its contents.
	require.NoError(t, session.Touch(ctx, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<?php\n", string(data))

	require.NoError(t, session.Delete(ctx, path))
	exists, err = session.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	local := NewLocal(zerolog.Nop())

	missingDir := filepath.Join(dir, "missing", "db.php")

	assert.Error(t, local.Touch(ctx, missingDir))
	assert.Error(t, local.Delete(ctx, filepath.Join(dir, "nope")))

	_, err := local.Size(ctx, filepath.Join(dir, "nope"))
	assert.Error(t, err)
}
