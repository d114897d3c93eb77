package dropin

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
)

// Placeholder is replaced with the plugin directory when rendering a template.
const Placeholder = "DB_PLUGIN_DIR"

//go:embed templates/db.copy
var defaultTemplate []byte

// Template produces drop-in content. It is read on every render and never
// modified.
type Template struct {
	path string
}

// DefaultTemplate returns the template bundled with the binary.
func DefaultTemplate() *Template {
	return &Template{}
}

// TemplateFromFile returns a template read from path at render time.
func TemplateFromFile(path string) *Template {
	return &Template{path: path}
}

// Source describes where the template is read from.
func (t *Template) Source() string {
	if t.path == "" {
		return "embedded"
	}
	return t.path
}

// Render returns the template content with every placeholder replaced by
// pluginDir.
func (t *Template) Render(pluginDir string) ([]byte, error) {
	raw := defaultTemplate
	if t.path != "" {
		data, err := os.ReadFile(t.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		raw = data
	}

	return bytes.ReplaceAll(raw, []byte(Placeholder), []byte(pluginDir)), nil
}
