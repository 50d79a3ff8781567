// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about overlay processing and background stream access.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetOverlayHooks(&myOverlayHooks{})
//	    observability.SetSourceHooks(&mySourceHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Overlay().OnEventStart(ctx, run, evt)
//	// ... overlay background ...
//	observability.Overlay().OnEventComplete(ctx, run, evt, transferred, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Overlay Hooks
// =============================================================================

// OverlayHooks receives events from the per-event overlay loop.
type OverlayHooks interface {
	// OnEventStart records the start of overlay for a primary event.
	OnEventStart(ctx context.Context, run, event int)

	// OnEventComplete records the end of overlay for a primary event.
	// transferred is the number of layered records moved into the event.
	OnEventComplete(ctx context.Context, run, event, transferred int, duration time.Duration, err error)

	// OnEventSkipped records a primary event that could not be overlaid.
	OnEventSkipped(ctx context.Context, run, event int, reason string)
}

// =============================================================================
// Source Hooks
// =============================================================================

// SourceHooks receives events from the background source pool.
type SourceHooks interface {
	// OnDraw records a sample read from a stream.
	OnDraw(ctx context.Context, stream int, location string)

	// OnReopen records a stream being rewound after reaching its end.
	OnReopen(ctx context.Context, stream int, location string)

	// OnExhausted records a stream that yielded nothing even after reopening.
	OnExhausted(ctx context.Context, stream int, location string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopOverlayHooks is a no-op implementation of OverlayHooks.
type NoopOverlayHooks struct{}

func (NoopOverlayHooks) OnEventStart(context.Context, int, int) {}
func (NoopOverlayHooks) OnEventComplete(context.Context, int, int, int, time.Duration, error) {
}
func (NoopOverlayHooks) OnEventSkipped(context.Context, int, int, string) {}

// NoopSourceHooks is a no-op implementation of SourceHooks.
type NoopSourceHooks struct{}

func (NoopSourceHooks) OnDraw(context.Context, int, string)      {}
func (NoopSourceHooks) OnReopen(context.Context, int, string)    {}
func (NoopSourceHooks) OnExhausted(context.Context, int, string) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	overlayHooks OverlayHooks = NoopOverlayHooks{}
	sourceHooks  SourceHooks  = NoopSourceHooks{}
	hooksMu      sync.RWMutex
)

// SetOverlayHooks registers custom overlay hooks.
// This should be called once at application startup before any events are processed.
func SetOverlayHooks(h OverlayHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		overlayHooks = h
	}
}

// SetSourceHooks registers custom source hooks.
// This should be called once at application startup before any streams are opened.
func SetSourceHooks(h SourceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sourceHooks = h
	}
}

// Overlay returns the registered overlay hooks.
func Overlay() OverlayHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return overlayHooks
}

// Source returns the registered source hooks.
func Source() SourceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sourceHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	overlayHooks = NoopOverlayHooks{}
	sourceHooks = NoopSourceHooks{}
}
