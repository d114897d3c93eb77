package dropin

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRenderFromFile(t *testing.T) {
	tmpl := TemplateFromFile(filepath.Join("testdata", "db.copy"))

	out, err := tmpl.Render("/srv/app/plugin")
	require.NoError(t, err)

	assert.Contains(t, string(out), "/srv/app/plugin")
	assert.Zero(t, bytes.Count(out, []byte(Placeholder)))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "render_custom_template", out)
}

func TestTemplateRenderEmbedded(t *testing.T) {
	tmpl := DefaultTemplate()
	assert.Equal(t, "embedded", tmpl.Source())

	out, err := tmpl.Render("/opt/sqlite-plugin")
	require.NoError(t, err)

	assert.Contains(t, string(out), "realpath( '/opt/sqlite-plugin' )")
	assert.NotContains(t, string(out), Placeholder)
	assert.True(t, bytes.HasPrefix(out, []byte("<?php")))
}

func TestTemplateRenderMissingFile(t *testing.T) {
	tmpl := TemplateFromFile(filepath.Join(t.TempDir(), "absent.copy"))

	_, err := tmpl.Render("/srv/app/plugin")
	assert.Error(t, err)
}
