package health

// Section keys in the diagnostics report.
const (
	SectionConstants = "wp-constants"
	SectionDatabase  = "wp-database"
)

// Info is the diagnostics report: section key to section.
type Info map[string]*Section

// Section is one group of report fields.
type Section struct {
	Label       string           `json:"label,omitempty" yaml:"label,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Private     bool             `json:"private,omitempty" yaml:"private,omitempty"`
	Fields      map[string]Field `json:"fields" yaml:"fields"`
}

// Field is a single report entry. Value is nil when it could not be
// determined. Debug, when set, is the untranslated value used in copied
// reports.
type Field struct {
	Label   string `json:"label" yaml:"label"`
	Value   any    `json:"value" yaml:"value"`
	Debug   any    `json:"debug,omitempty" yaml:"debug,omitempty"`
	Private bool   `json:"private,omitempty" yaml:"private,omitempty"`
}

// section returns the section for key, creating it if needed.
func (i Info) section(key string) *Section {
	s, ok := i[key]
	if !ok || s == nil {
		s = &Section{}
		i[key] = s
	}
	if s.Fields == nil {
		s.Fields = make(map[string]Field)
	}
	return s
}

// Redacted returns a deep copy without private sections or private fields,
// suitable for sharing outside the host.
func (i Info) Redacted() Info {
	out := make(Info, len(i))
	for key, s := range i {
		if s == nil || s.Private {
			continue
		}
		cp := &Section{
			Label:       s.Label,
			Description: s.Description,
			Fields:      make(map[string]Field, len(s.Fields)),
		}
		for name, f := range s.Fields {
			if f.Private {
				continue
			}
			cp.Fields[name] = f
		}
		out[key] = cp
	}
	return out
}
