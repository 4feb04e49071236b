// Package dispatch decouples API-facing share operations from the
// long-running provisioning work. The API enqueues a handler invocation
// and returns; the handler runs in a goroutine or a separate worker
// process depending on deployment.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/lakegate/lakegate/internal/logger"
)

// Handler names understood by the worker entrypoint.
const (
	HandlerApprove = "share.approve"
	HandlerRevoke  = "share.revoke"
	HandlerVerify  = "share.verify"
	HandlerReapply = "share.reapply"
	HandlerCleanup = "share.cleanup"
)

// Environment variables passed to worker subprocesses.
const (
	EnvHandler  = "LAKEGATE_HANDLER"
	EnvShareURI = "LAKEGATE_SHARE_URI"
)

// HandlerFunc executes one share run to completion.
type HandlerFunc func(ctx context.Context, shareURI string) error

// Dispatcher hands a share run to the execution backend. Dispatch returns
// as soon as the run is accepted; completion is observed through the share
// object's status.
type Dispatcher interface {
	Dispatch(ctx context.Context, handler, shareURI string) error
}

// Registry maps handler names to functions. Shared by the local dispatcher
// and the worker entrypoint.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler name to its function.
func (r *Registry) Register(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Get returns the function bound to a handler name.
func (r *Registry) Get(name string) (HandlerFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown dispatch handler: %s", name)
	}
	return fn, nil
}

// LocalDispatcher runs handlers in goroutines within the API process.
// Suited for single-node deployments and tests.
type LocalDispatcher struct {
	registry *Registry
	wg       sync.WaitGroup
}

// NewLocalDispatcher returns a dispatcher executing against the given
// registry.
func NewLocalDispatcher(registry *Registry) *LocalDispatcher {
	return &LocalDispatcher{registry: registry}
}

// Dispatch runs the handler in a new goroutine. The run gets a fresh
// context so it survives the HTTP request that triggered it.
func (d *LocalDispatcher) Dispatch(ctx context.Context, handler, shareURI string) error {
	fn, err := d.registry.Get(handler)
	if err != nil {
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		runCtx := logger.WithContext(context.Background(), &logger.LogContext{
			ShareURI: shareURI,
			Task:     handler,
		})
		if err := fn(runCtx, shareURI); err != nil {
			logger.ErrorCtx(runCtx, "share run failed", logger.KeyError, err.Error())
		}
	}()
	return nil
}

// Wait blocks until every dispatched run has finished. Used on shutdown
// and in tests.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
