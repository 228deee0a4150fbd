package binder

import (
	"context"
	"reflect"
	"sync/atomic"
)

// resolution is one link of a call path. Each nested resolution points at the
// resolution that requested it, so cycle detection only sees the keys of the
// current call and independent calls never interfere.
//
// A resolution is also the Container handed to factories. Once the factory
// returns, the view detaches and behaves like the root container, so a
// captured view never reports a cycle for keys that are no longer being built.
type resolution struct {
	root     *containerImpl
	ctx      context.Context
	key      BindingKey
	reg      *registration
	parent   *resolution
	detached atomic.Bool
}

// newRootResolution returns the empty call path every top-level request
// starts from.
func newRootResolution(c *containerImpl) *resolution {
	return &resolution{root: c, ctx: context.Background()}
}

// isRoot reports whether r is the empty call path.
func (r *resolution) isRoot() bool {
	return r.parent == nil
}

// child extends the call path with key, built by reg.
func (r *resolution) child(ctx context.Context, key BindingKey, reg *registration) *resolution {
	return &resolution{root: r.root, ctx: ctx, key: key, reg: reg, parent: r}
}

func (r *resolution) detach() {
	r.detached.Store(true)
}

// active returns the call path a request through r must extend.
func (r *resolution) active() *resolution {
	if r.detached.Load() {
		return r.root.base
	}
	return r
}

// visiting reports whether key is already being built on this call path.
func (r *resolution) visiting(key BindingKey) bool {
	for n := r; !n.isRoot(); n = n.parent {
		if n.key == key {
			return true
		}
	}
	return false
}

// building reports whether reg is already running on this call path. A
// registration shared by several services can be re-entered under another
// key, which visiting cannot see.
func (r *resolution) building(reg *registration) bool {
	for n := r; !n.isRoot(); n = n.parent {
		if n.reg == reg {
			return true
		}
	}
	return false
}

// cycle lists the path from the outermost request down to the revisited key.
func (r *resolution) cycle(key BindingKey) []string {
	var path []string
	for n := r; !n.isRoot(); n = n.parent {
		path = append(path, n.key.String())
	}

	chain := make([]string, 0, len(path)+1)
	for i := len(path) - 1; i >= 0; i-- {
		chain = append(chain, path[i])
	}
	return append(chain, key.String())
}

// Get implements Container.
func (r *resolution) Get(service reflect.Type, key string) (any, error) {
	return r.root.get(r.active(), BindingKey{Service: service, Key: key})
}

// GetAll implements Container.
func (r *resolution) GetAll(service reflect.Type, key string) ([]any, error) {
	return r.root.getAll(r.active(), BindingKey{Service: service, Key: key})
}

// GetTypeOrAll implements Container.
func (r *resolution) GetTypeOrAll(service reflect.Type, key string) (any, error) {
	return r.root.getTypeOrAll(r.active(), BindingKey{Service: service, Key: key})
}

// Has implements Container.
func (r *resolution) Has(service reflect.Type, key string) bool {
	return r.root.Has(service, key)
}

// BuildUp implements Container.
func (r *resolution) BuildUp(target any) error {
	return r.root.buildUp(r.active(), target)
}

// Registrations implements Container.
func (r *resolution) Registrations() []RegistrationInfo {
	return r.root.Registrations()
}

// ID implements Container.
func (r *resolution) ID() string {
	return r.root.ID()
}

// Dispose implements Container.
func (r *resolution) Dispose() error {
	return r.root.Dispose()
}
