package binder

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Lazy wraps a dependency that is resolved on first access.
// This is useful for breaking circular dependencies or deferring
// resolution of expensive services until they're actually needed.
//
// A constructor parameter or inject field of type *Lazy[T] is filled by the
// container without resolving T.
type Lazy[T any] struct {
	container Container
	key       string
	once      sync.Once
	value     T
	err       error
	resolved  atomic.Bool
}

// NewLazy creates a new lazy dependency wrapper.
func NewLazy[T any](c Container, key string) *Lazy[T] {
	return &Lazy[T]{
		container: c,
		key:       key,
	}
}

// Get resolves the dependency and returns it.
// The resolution happens only once; subsequent calls return the cached value.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.value, l.err = GetKeyed[T](l.container, l.key)
		if l.err == nil {
			l.resolved.Store(true)
		}
	})

	return l.value, l.err
}

// MustGet resolves the dependency and returns it, panicking on error.
func (l *Lazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("lazy dependency %s failed: %v", KeyOf[T](l.key), err))
	}

	return value
}

// IsResolved returns true if the dependency has been resolved.
func (l *Lazy[T]) IsResolved() bool {
	return l.resolved.Load()
}

// Key returns the binding key of the dependency.
func (l *Lazy[T]) Key() BindingKey {
	return KeyOf[T](l.key)
}

func (l *Lazy[T]) deferredTarget() (reflect.Type, bool) {
	return ReflectTypeOf[T](), false
}

func (l *Lazy[T]) bindDeferred(c Container, key string) {
	l.container, l.key = c, key
}

// OptionalLazy wraps an optional dependency that is resolved on first access.
// Returns the zero value without error if the dependency is not registered.
type OptionalLazy[T any] struct {
	container Container
	key       string
	once      sync.Once
	value     T
	err       error
	resolved  atomic.Bool
	found     atomic.Bool
}

// NewOptionalLazy creates a new optional lazy dependency wrapper.
func NewOptionalLazy[T any](c Container, key string) *OptionalLazy[T] {
	return &OptionalLazy[T]{
		container: c,
		key:       key,
	}
}

// Get resolves the dependency and returns it.
// Returns the zero value without error if the dependency is not registered.
func (l *OptionalLazy[T]) Get() (T, error) {
	l.once.Do(func() {
		if !l.container.Has(ReflectTypeOf[T](), l.key) {
			l.resolved.Store(true)
			return
		}

		l.value, l.err = GetKeyed[T](l.container, l.key)
		if l.err == nil {
			l.resolved.Store(true)
			l.found.Store(true)
		}
	})

	return l.value, l.err
}

// MustGet resolves the dependency and returns it, panicking on error.
// Returns the zero value if the dependency is not registered (does not panic).
func (l *OptionalLazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("optional lazy dependency %s failed: %v", KeyOf[T](l.key), err))
	}

	return value
}

// IsResolved returns true if the dependency has been resolved.
func (l *OptionalLazy[T]) IsResolved() bool {
	return l.resolved.Load()
}

// IsFound returns true if the dependency was found (only valid after resolution).
func (l *OptionalLazy[T]) IsFound() bool {
	return l.found.Load()
}

// Key returns the binding key of the dependency.
func (l *OptionalLazy[T]) Key() BindingKey {
	return KeyOf[T](l.key)
}

func (l *OptionalLazy[T]) deferredTarget() (reflect.Type, bool) {
	return ReflectTypeOf[T](), true
}

func (l *OptionalLazy[T]) bindDeferred(c Container, key string) {
	l.container, l.key = c, key
}

// Provider wraps a dependency that is resolved again on each access.
// Each call resolves through the container, so transient bindings yield a
// fresh instance every time while singletons keep their identity.
type Provider[T any] struct {
	container Container
	key       string
}

// NewProvider creates a new provider.
func NewProvider[T any](c Container, key string) *Provider[T] {
	return &Provider[T]{
		container: c,
		key:       key,
	}
}

// Provide resolves and returns an instance of the dependency.
func (p *Provider[T]) Provide() (T, error) {
	return GetKeyed[T](p.container, p.key)
}

// MustProvide resolves and returns an instance, panicking on error.
func (p *Provider[T]) MustProvide() T {
	value, err := p.Provide()
	if err != nil {
		panic(fmt.Sprintf("provider %s failed: %v", KeyOf[T](p.key), err))
	}

	return value
}

// Key returns the binding key of the dependency.
func (p *Provider[T]) Key() BindingKey {
	return KeyOf[T](p.key)
}

func (p *Provider[T]) deferredTarget() (reflect.Type, bool) {
	return ReflectTypeOf[T](), false
}

func (p *Provider[T]) bindDeferred(c Container, key string) {
	p.container, p.key = c, key
}

// deferredBinder is implemented by the pointer types the container can
// synthesize for an unregistered dependency.
type deferredBinder interface {
	deferredTarget() (target reflect.Type, optional bool)
	bindDeferred(c Container, key string)
}

var deferredBinderType = ReflectTypeOf[deferredBinder]()

// deferredShape describes a type the container resolves lazily: an automatic
// factory function or one of the deferredBinder wrappers.
type deferredShape struct {
	target   reflect.Type
	optional bool
	function bool
	withErr  bool
}

// deferredShapeOf recognizes func() T, func() (T, error), *Lazy[T],
// *OptionalLazy[T] and *Provider[T].
func deferredShapeOf(t reflect.Type) (deferredShape, bool) {
	switch {
	case t.Kind() == reflect.Func:
		if t.NumIn() != 0 || t.IsVariadic() {
			return deferredShape{}, false
		}
		switch {
		case t.NumOut() == 1 && t.Out(0) != errorType:
			return deferredShape{target: t.Out(0), function: true}, true
		case t.NumOut() == 2 && t.Out(0) != errorType && t.Out(1) == errorType:
			return deferredShape{target: t.Out(0), function: true, withErr: true}, true
		}

	case t.Kind() == reflect.Pointer && t.Implements(deferredBinderType):
		target, optional := reflect.New(t.Elem()).Interface().(deferredBinder).deferredTarget()
		return deferredShape{target: target, optional: optional}, true
	}

	return deferredShape{}, false
}

// synthesize builds a deferred resolver for key when its service type is a
// deferred shape whose target can be resolved. Synthesized resolvers go
// through the root container with a fresh call path every time they run.
func (c *containerImpl) synthesize(key BindingKey) (any, bool) {
	shape, ok := deferredShapeOf(key.Service)
	if !ok {
		return nil, false
	}
	if !shape.optional && !c.canResolve(shape.target, key.Key) {
		return nil, false
	}

	if !shape.function {
		v := reflect.New(key.Service.Elem())
		v.Interface().(deferredBinder).bindDeferred(c, key.Key)
		return v.Interface(), true
	}

	fn := reflect.MakeFunc(key.Service, func([]reflect.Value) []reflect.Value {
		instance, err := c.Get(shape.target, key.Key)
		if !shape.withErr {
			if err != nil {
				panic(err)
			}
			return []reflect.Value{valueOf(shape.target, instance)}
		}

		if err != nil {
			return []reflect.Value{reflect.Zero(shape.target), reflect.ValueOf(&err).Elem()}
		}
		return []reflect.Value{valueOf(shape.target, instance), reflect.Zero(errorType)}
	})

	return fn.Interface(), true
}
