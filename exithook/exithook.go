// Package exithook is a process-wide registry of shutdown hooks. The crash
// handler runs the hooks synchronously with a synthetic exit status before
// the process terminates.
package exithook

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/tombergan/cstack/diag"
)

// Func is a shutdown hook. status is the exit status the process is about
// to terminate with.
type Func func(ctx context.Context, status int) error

type hook struct {
	name string
	fn   Func
}

// Registry holds hooks in registration order.
type Registry struct {
	mu    sync.Mutex
	hooks []hook
}

// Default is the registry used by the crash handler unless another one is
// configured.
var Default = &Registry{}

// Register adds a hook to r.
func (r *Registry) Register(name string, fn Func) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.hooks = append(r.hooks, hook{name, fn})
	r.mu.Unlock()
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Run invokes every hook in registration order. A failing or panicking hook
// does not stop the remaining ones; all failures are returned together.
func (r *Registry) Run(ctx context.Context, status int) error {
	r.mu.Lock()
	hooks := append([]hook(nil), r.hooks...)
	r.mu.Unlock()

	var result *multierror.Error
	for _, h := range hooks {
		if err := runOne(ctx, h, status); err != nil {
			diag.Logger("exithook").WithField("hook", h.name).WithError(err).Warn("exit hook failed")
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func runOne(ctx context.Context, h hook, status int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook %s panicked: %v", h.name, r)
		}
	}()
	if err := h.fn(ctx, status); err != nil {
		return errors.Wrapf(err, "hook %s", h.name)
	}
	return nil
}

// Register adds a hook to the default registry.
func Register(name string, fn Func) {
	Default.Register(name, fn)
}

// Run runs the hooks of the default registry.
func Run(ctx context.Context, status int) error {
	return Default.Run(ctx, status)
}
