// Package binder is a dependency-injection container. A Builder collects
// declarative bindings from services to implementations, factories or
// instances, validates them and compiles them into an immutable Container
// that builds object graphs on demand.
//
//	b := binder.NewBuilder()
//	b.Bind(binder.TypeOf[Greeter]()).To(binder.TypeOf[*englishGreeter]()).InSingletonScope()
//	b.Bind(binder.TypeOf[*Shell]()).ToSelf()
//
//	c, err := b.Build()
//	if err != nil {
//	    return err
//	}
//	defer c.Dispose()
//
//	shell, err := binder.Get[*Shell](c)
package binder

import (
	"fmt"
	"reflect"

	"github.com/xraph/go-utils/di"
)

// Container resolves services from the bindings it was built with.
// It is safe for concurrent use.
type Container interface {
	// Get resolves exactly one instance for service and key.
	Get(service reflect.Type, key string) (any, error)

	// GetAll resolves every registration for service and key, in
	// registration order. It returns an empty slice if nothing matches.
	GetAll(service reflect.Type, key string) ([]any, error)

	// GetTypeOrAll behaves like GetAll on the element type when service is
	// a slice type without a registration of its own, and like Get otherwise.
	GetTypeOrAll(service reflect.Type, key string) (any, error)

	// Has reports whether service and key can be resolved.
	Has(service reflect.Type, key string) bool

	// BuildUp assigns every inject-tagged field of target, which must be a
	// non-nil pointer to a struct.
	BuildUp(target any) error

	// Registrations returns diagnostic information about every registration.
	Registrations() []RegistrationInfo

	// ID identifies the container in logs and diagnostics.
	ID() string

	// Dispose disposes owned singletons in reverse creation order. Every
	// later operation fails with ErrDisposed.
	Dispose() error
}

// Factory creates a service instance. The container passed in resolves
// dependencies as part of the current resolution.
type Factory func(c Container) (any, error)

// Disposable is implemented by instances the container disposes with itself.
// io.Closer is honoured as well.
type Disposable = di.Disposable

var containerType = ReflectTypeOf[Container]()

// Scope is the lifetime policy of a registration.
type Scope int

const (
	// Transient creates a new instance on every resolution.
	Transient Scope = iota

	// Singleton creates one instance per container, owned and disposed by it.
	Singleton
)

// String returns the lowercase scope name.
func (s Scope) String() string {
	switch s {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScope parses "transient" or "singleton".
func ParseScope(s string) (Scope, error) {
	switch s {
	case "transient":
		return Transient, nil
	case "singleton":
		return Singleton, nil
	default:
		return Transient, fmt.Errorf("unknown scope %q", s)
	}
}

// RegistrationInfo contains diagnostic information about a registration.
type RegistrationInfo struct {
	Key            BindingKey
	Implementation string
	Scope          Scope
	Creator        string
	Specialized    bool
	Created        bool
}
