// Package hooks is a typed registry for the host lifecycle and report hooks.
//
// Callbacks are registered at startup and dispatched in registration order.
// Lifecycle errors are collected with errors.Join so that one failing
// callback does not prevent the others from running.
package hooks

import (
	"context"
	"errors"
	"sync"

	"github.com/sqlitedrop/sqlitedrop/pkg/health"
)

// Hook names.
const (
	Activate         = "activate"
	Deactivate       = "deactivate"
	AdminNotices     = "admin_notices"
	DebugInformation = "debug_information"
)

// LifecycleFunc runs on activation or deactivation.
type LifecycleFunc func(ctx context.Context) error

// NoticesFunc contributes admin notices.
type NoticesFunc func(ctx context.Context) []health.Notice

// DebugInfoFunc filters the diagnostics report.
type DebugInfoFunc func(ctx context.Context, info health.Info) health.Info

// Registry holds the registered callbacks.
type Registry struct {
	mu         sync.RWMutex
	activate   []LifecycleFunc
	deactivate []LifecycleFunc
	notices    []NoticesFunc
	debugInfo  []DebugInfoFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// OnActivate registers fn for the activate hook.
func (r *Registry) OnActivate(fn LifecycleFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activate = append(r.activate, fn)
}

// OnDeactivate registers fn for the deactivate hook.
func (r *Registry) OnDeactivate(fn LifecycleFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivate = append(r.deactivate, fn)
}

// OnAdminNotices registers fn for the admin_notices hook.
func (r *Registry) OnAdminNotices(fn NoticesFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, fn)
}

// OnDebugInformation registers fn for the debug_information filter.
func (r *Registry) OnDebugInformation(fn DebugInfoFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugInfo = append(r.debugInfo, fn)
}

// FireActivate runs every activate callback.
func (r *Registry) FireActivate(ctx context.Context) error {
	r.mu.RLock()
	fns := append([]LifecycleFunc(nil), r.activate...)
	r.mu.RUnlock()
	return runLifecycle(ctx, fns)
}

// FireDeactivate runs every deactivate callback.
func (r *Registry) FireDeactivate(ctx context.Context) error {
	r.mu.RLock()
	fns := append([]LifecycleFunc(nil), r.deactivate...)
	r.mu.RUnlock()
	return runLifecycle(ctx, fns)
}

// FireAdminNotices collects the notices of every callback.
func (r *Registry) FireAdminNotices(ctx context.Context) []health.Notice {
	r.mu.RLock()
	fns := append([]NoticesFunc(nil), r.notices...)
	r.mu.RUnlock()

	var out []health.Notice
	for _, fn := range fns {
		out = append(out, fn(ctx)...)
	}
	return out
}

// ApplyDebugInformation passes info through every filter in turn.
func (r *Registry) ApplyDebugInformation(ctx context.Context, info health.Info) health.Info {
	r.mu.RLock()
	fns := append([]DebugInfoFunc(nil), r.debugInfo...)
	r.mu.RUnlock()

	for _, fn := range fns {
		info = fn(ctx, info)
	}
	return info
}

// Count returns the number of callbacks registered for a hook.
func (r *Registry) Count(hook string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch hook {
	case Activate:
		return len(r.activate)
	case Deactivate:
		return len(r.deactivate)
	case AdminNotices:
		return len(r.notices)
	case DebugInformation:
		return len(r.debugInfo)
	default:
		return 0
	}
}

func runLifecycle(ctx context.Context, fns []LifecycleFunc) error {
	var errs []error
	for _, fn := range fns {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
