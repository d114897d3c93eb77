// Package plugin assembles the drop-in lifecycle, the presence reporter and
// telemetry into one unit and registers it on a hook registry.
//
// A Plugin is built from a loaded config.Config:
//
//	p, err := plugin.New(cfg, tel)
//	if err != nil {
//		return err
//	}
//	err = p.Hooks().FireActivate(ctx)
//
// Every lifecycle operation gets a span, duration and outcome metrics and a
// lifecycle event. Failures are logged and returned to the dispatcher.
package plugin
