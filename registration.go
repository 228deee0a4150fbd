package binder

import (
	"sync"
	"sync/atomic"
)

// registration binds a key to a creator and a lifetime. The generator is
// compiled lazily and memoized; singleton instances are cached once created.
//
// buildMu serializes singleton construction and is held while the generator
// runs. mu only guards the cached instance and is never held across user code.
type registration struct {
	key                  BindingKey
	creator              creator
	scope                Scope
	disposeWithContainer bool
	specialized          bool

	genMu     sync.RWMutex
	generator generator

	buildMu  sync.Mutex
	mu       sync.RWMutex
	instance any
	created  atomic.Bool
}

func newRegistration(key BindingKey, cr creator, scope Scope, disposeWithContainer bool) *registration {
	return &registration{
		key:                  key,
		creator:              cr,
		scope:                scope,
		disposeWithContainer: disposeWithContainer,
	}
}

// newInstanceRegistration creates a singleton registration that already
// holds its instance.
func newInstanceRegistration(key BindingKey, instance any, disposeWithContainer bool) *registration {
	reg := newRegistration(key, &instanceCreator{instance: instance}, Singleton, disposeWithContainer)
	reg.store(instance)
	return reg
}

// cached returns the singleton instance if it was created.
func (reg *registration) cached() (any, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	if !reg.created.Load() {
		return nil, false
	}
	return reg.instance, true
}

func (reg *registration) store(instance any) {
	reg.mu.Lock()
	reg.instance = instance
	reg.created.Store(true)
	reg.mu.Unlock()
}

// release drops the cached instance so a disposed container keeps nothing
// alive.
func (reg *registration) release() {
	reg.mu.Lock()
	reg.instance = nil
	reg.created.Store(false)
	reg.mu.Unlock()
}

// getGenerator returns the memoized generator, compiling it on first use.
// A failed compilation is not cached.
func (reg *registration) getGenerator(c *containerImpl) (generator, error) {
	reg.genMu.RLock()
	gen := reg.generator
	reg.genMu.RUnlock()

	if gen != nil {
		return gen, nil
	}

	reg.genMu.Lock()
	defer reg.genMu.Unlock()

	if reg.generator != nil {
		return reg.generator, nil
	}

	gen, err := reg.creator.compile(c)
	if err != nil {
		return nil, err
	}

	reg.generator = gen

	return gen, nil
}

// resolve produces an instance for r. Transient registrations run the
// generator every time; singletons run it at most once per container.
func (reg *registration) resolve(r *resolution) (any, error) {
	c := r.root

	if reg.scope == Transient {
		gen, err := reg.getGenerator(c)
		if err != nil {
			return nil, err
		}
		return gen(r)
	}

	// Fast path: already created
	if instance, ok := reg.cached(); ok {
		return instance, nil
	}

	// Slow path: one construction at a time
	reg.buildMu.Lock()
	defer reg.buildMu.Unlock()

	// Double-check after acquiring the construction lock
	if instance, ok := reg.cached(); ok {
		return instance, nil
	}

	gen, err := reg.getGenerator(c)
	if err != nil {
		return nil, err
	}

	instance, err := gen(r)
	if err != nil {
		return nil, err
	}

	// adopt publishes the instance, or disposes it when the container is gone
	if err := c.adopt(reg, instance); err != nil {
		return nil, err
	}

	return instance, nil
}

// info returns diagnostic information for the registration under key.
func (reg *registration) info(key BindingKey) RegistrationInfo {
	return RegistrationInfo{
		Key:            key,
		Implementation: reg.creator.implementation(),
		Scope:          reg.scope,
		Creator:        reg.creator.kind(),
		Specialized:    reg.specialized,
		Created:        reg.created.Load(),
	}
}
