package plugin

import (
	"context"
	"fmt"

	"github.com/sqlitedrop/sqlitedrop/pkg/dropin"
	"github.com/sqlitedrop/sqlitedrop/pkg/health"
	"github.com/sqlitedrop/sqlitedrop/pkg/telemetry"
)

// Status is a one-shot summary of the integration state.
type Status struct {
	Method          string `json:"method" yaml:"method"`
	ContentDir      string `json:"content_dir" yaml:"content_dir"`
	DropInPath      string `json:"dropin_path" yaml:"dropin_path"`
	DropInPresent   bool   `json:"dropin_present" yaml:"dropin_present"`
	EngineAvailable bool   `json:"engine_available" yaml:"engine_available"`
	EngineVersion   string `json:"engine_version,omitempty" yaml:"engine_version,omitempty"`
	DatabaseType    string `json:"database_type" yaml:"database_type"`
	ActiveEngine    string `json:"active_engine" yaml:"active_engine"`
}

// Status reports engine availability and drop-in presence. Only a failed
// existence check is an error; a missing version is left empty.
func (p *Plugin) Status(ctx context.Context) (Status, error) {
	ctx, span := p.tel.Tracer.StartReportSpan(ctx, "status")
	defer span.End()

	flag := health.Flag{Value: p.cfg.DatabaseType.Value, Defined: p.cfg.DatabaseType.Defined}
	st := Status{
		Method:       p.cfg.Filesystem.Method,
		ContentDir:   p.cfg.ContentDir,
		DropInPath:   dropin.Path(p.cfg.ContentDir),
		DatabaseType: p.cfg.DatabaseType.String(),
		ActiveEngine: flag.ActiveEngine(),
	}

	st.EngineAvailable = p.engine.Available(ctx)
	p.tel.Metrics.SetEngineAvailable(st.EngineAvailable)
	if st.EngineAvailable {
		if v, err := p.engine.Version(ctx); err == nil {
			st.EngineVersion = v
		} else {
			p.logger.Debug().Err(err).Msg("engine version unavailable")
		}
	}

	present, err := p.backend.Exists(ctx, st.DropInPath)
	if err != nil {
		telemetry.RecordError(span, err)
		return st, fmt.Errorf("failed to check %s: %w", st.DropInPath, err)
	}
	st.DropInPresent = present
	p.tel.Metrics.SetDropInPresent(present)

	return st, nil
}
