// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about stage execution, cache
// operations, and remote API calls.
//
// The package uses a simple hooks pattern: hook interfaces per event
// category, no-op default implementations, and a registry populated by
// main. Libraries never import an observability framework directly.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetStageHooks(&myStageHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// StageHooks receives events from the pipeline runner.
type StageHooks interface {
	// OnStageStart records a stage entering the running state.
	OnStageStart(ctx context.Context, stageID string)

	// OnStageComplete records a stage reaching a terminal state.
	OnStageComplete(ctx context.Context, stageID string, duration time.Duration, err error)

	// OnStageProgress records incremental progress within a stage.
	OnStageProgress(ctx context.Context, stageID string, current, total int)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit for a key kind.
	OnCacheHit(ctx context.Context, kind string)

	// OnCacheMiss records a cache miss for a key kind.
	OnCacheMiss(ctx context.Context, kind string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, kind string, size int)
}

// RemoteHooks receives events from the GitHub client.
type RemoteHooks interface {
	// OnRequest records an outgoing API request against a quota regime.
	OnRequest(ctx context.Context, regime, operation string)

	// OnResponse records a completed API request.
	OnResponse(ctx context.Context, regime, operation string, statusCode int, duration time.Duration)

	// OnRetry records a retry attempt after a transient failure.
	OnRetry(ctx context.Context, regime, operation string, attempt int)
}

// NoopStageHooks is a no-op implementation of StageHooks.
type NoopStageHooks struct{}

func (NoopStageHooks) OnStageStart(context.Context, string)                          {}
func (NoopStageHooks) OnStageComplete(context.Context, string, time.Duration, error) {}
func (NoopStageHooks) OnStageProgress(context.Context, string, int, int)             {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopRemoteHooks is a no-op implementation of RemoteHooks.
type NoopRemoteHooks struct{}

func (NoopRemoteHooks) OnRequest(context.Context, string, string)                      {}
func (NoopRemoteHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopRemoteHooks) OnRetry(context.Context, string, string, int)                   {}

var (
	stageHooks  StageHooks  = NoopStageHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	remoteHooks RemoteHooks = NoopRemoteHooks{}
	hooksMu     sync.RWMutex
)

// SetStageHooks registers custom stage hooks.
// Call once at application startup before any pipeline operations.
func SetStageHooks(h StageHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		stageHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetRemoteHooks registers custom remote-API hooks.
func SetRemoteHooks(h RemoteHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		remoteHooks = h
	}
}

// Stage returns the registered stage hooks.
func Stage() StageHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return stageHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Remote returns the registered remote hooks.
func Remote() RemoteHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return remoteHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	stageHooks = NoopStageHooks{}
	cacheHooks = NoopCacheHooks{}
	remoteHooks = NoopRemoteHooks{}
}
