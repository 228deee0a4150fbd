package binder

// Module groups related bindings so they can be added to a builder in one
// call.
type Module interface {
	Load(b *Builder) error
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(b *Builder) error

// Load implements Module.
func (f ModuleFunc) Load(b *Builder) error {
	return f(b)
}

// AddModules loads every module in order. It stops at the first module that
// returns an error.
//
// Example:
//
//	err := b.AddModules(
//	    storage.Module,
//	    binder.ModuleFunc(func(b *binder.Builder) error {
//	        b.Bind(binder.TypeOf[*Shell]()).ToSelf()
//	        return nil
//	    }),
//	)
func (b *Builder) AddModules(modules ...Module) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m.Load(b); err != nil {
			return err
		}
	}
	return nil
}

// ServiceBinding describes one binding for batch registration.
type ServiceBinding struct {
	Service TypeDescriptor
	Key     string
	Factory Factory
	Scope   Scope
}

// Service creates a ServiceBinding backed by a factory.
// This is a convenience function for BindServices.
//
// Example:
//
//	binder.BindServices(b,
//	    binder.Service(binder.TypeOf[*Database](), newDatabase, binder.Singleton),
//	    binder.Service(binder.TypeOf[*Cache](), newCache, binder.Singleton),
//	)
func Service(service TypeDescriptor, factory Factory, scope Scope) ServiceBinding {
	return ServiceBinding{
		Service: service,
		Factory: factory,
		Scope:   scope,
	}
}

// KeyedService creates a ServiceBinding in the slot named by key.
func KeyedService[T any](key ServiceKey[T], factory func(Container) (T, error), scope Scope) ServiceBinding {
	return ServiceBinding{
		Service: TypeOf[T](),
		Key:     key.Name(),
		Factory: FactoryOf(factory),
		Scope:   scope,
	}
}

// BindServices binds multiple factories in a single call. Invalid bindings
// are reported by Build like any other binding.
func BindServices(b *Builder, services ...ServiceBinding) {
	for _, svc := range services {
		bb := b.Bind(svc.Service).ToFactory(svc.Factory).WithKey(svc.Key)
		if svc.Scope == Singleton {
			bb.InSingletonScope()
		} else {
			bb.InTransientScope()
		}
	}
}
