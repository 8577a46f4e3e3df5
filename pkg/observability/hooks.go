// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about block placement and persistence.
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
//	    observability.SetPlacementHooks(&myPlacementHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Placement().OnSpawn(asset, replicas)
//	// ... descend ...
//	observability.Placement().OnSettle(id, asset, x, y, relocated)
//
// Package [github.com/matzehuels/coinstack/pkg/observability/metrics] turns
// the events into Prometheus metrics.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Placement Hooks
// =============================================================================

// PlacementHooks receives events from the placement engine.
//
// Hooks are invoked while the engine holds its lock; implementations must not
// call back into the engine.
type PlacementHooks interface {
	// OnSpawn records an Add that produced replicas falling blocks.
	OnSpawn(asset string, replicas int)

	// OnSettle records a block committing to the grid. relocated is true when
	// the block could not stay where it stopped and was moved by the search.
	OnSettle(blockID, asset string, x, y int, relocated bool)

	// OnOverflow records a block pinned at top-center because no column fit.
	OnOverflow(blockID, asset string)

	// OnRemove records a block removal.
	OnRemove(blockID, asset string)

	// OnReorganize records a completed reorganization pass.
	OnReorganize(blocks, overflow int, duration time.Duration)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from portfolio persistence.
type StoreHooks interface {
	// OnLoad records a restore attempt.
	OnLoad(ctx context.Context, backend string, records, skipped int, err error)

	// OnSave records a save.
	OnSave(ctx context.Context, backend string, records int, size int, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPlacementHooks is a no-op implementation of PlacementHooks.
type NoopPlacementHooks struct{}

func (NoopPlacementHooks) OnSpawn(string, int)                     {}
func (NoopPlacementHooks) OnSettle(string, string, int, int, bool) {}
func (NoopPlacementHooks) OnOverflow(string, string)               {}
func (NoopPlacementHooks) OnRemove(string, string)                 {}
func (NoopPlacementHooks) OnReorganize(int, int, time.Duration)    {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnLoad(context.Context, string, int, int, error) {}
func (NoopStoreHooks) OnSave(context.Context, string, int, int, error) {}

// Hooks receives both placement and store events.
type Hooks interface {
	PlacementHooks
	StoreHooks
}

// =============================================================================
// Fan-out
// =============================================================================

// PlacementFanout forwards placement events to each hook in order.
type PlacementFanout []PlacementHooks

func (f PlacementFanout) OnSpawn(asset string, replicas int) {
	for _, h := range f {
		h.OnSpawn(asset, replicas)
	}
}

func (f PlacementFanout) OnSettle(blockID, asset string, x, y int, relocated bool) {
	for _, h := range f {
		h.OnSettle(blockID, asset, x, y, relocated)
	}
}

func (f PlacementFanout) OnOverflow(blockID, asset string) {
	for _, h := range f {
		h.OnOverflow(blockID, asset)
	}
}

func (f PlacementFanout) OnRemove(blockID, asset string) {
	for _, h := range f {
		h.OnRemove(blockID, asset)
	}
}

func (f PlacementFanout) OnReorganize(blocks, overflow int, duration time.Duration) {
	for _, h := range f {
		h.OnReorganize(blocks, overflow, duration)
	}
}

// StoreFanout forwards store events to each hook in order.
type StoreFanout []StoreHooks

func (f StoreFanout) OnLoad(ctx context.Context, backend string, records, skipped int, err error) {
	for _, h := range f {
		h.OnLoad(ctx, backend, records, skipped, err)
	}
}

func (f StoreFanout) OnSave(ctx context.Context, backend string, records int, size int, err error) {
	for _, h := range f {
		h.OnSave(ctx, backend, records, size, err)
	}
}

// SetHooks registers every h for both event categories. A single hook is
// registered as is; several are wrapped in fan-outs.
func SetHooks(hooks ...Hooks) {
	switch len(hooks) {
	case 0:
		return
	case 1:
		SetPlacementHooks(hooks[0])
		SetStoreHooks(hooks[0])
		return
	}
	placement := make(PlacementFanout, len(hooks))
	stores := make(StoreFanout, len(hooks))
	for i, h := range hooks {
		placement[i] = h
		stores[i] = h
	}
	SetPlacementHooks(placement)
	SetStoreHooks(stores)
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	placementHooks PlacementHooks = NoopPlacementHooks{}
	storeHooks     StoreHooks     = NoopStoreHooks{}
	hooksMu        sync.RWMutex
)

// SetPlacementHooks registers custom placement hooks.
// This should be called once at application startup before any engine operations.
func SetPlacementHooks(h PlacementHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		placementHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Placement returns the registered placement hooks.
func Placement() PlacementHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return placementHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	placementHooks = NoopPlacementHooks{}
	storeHooks = NoopStoreHooks{}
}
