package binder

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// Builder collects bindings and compiles them into a Container. Bindings
// may be declared in any order; they are validated by Build.
type Builder struct {
	bindings     []*BindingBuilder
	constructors []any
	options      builderOptions
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Builder{options: options}
}

// Bind starts a binding for service, which may be a closed type or an
// unbound generic family.
func (b *Builder) Bind(service TypeDescriptor) *BindingBuilder {
	bb := &BindingBuilder{
		services: []TypeDescriptor{service},
		dispose:  true,
	}
	b.bindings = append(b.bindings, bb)
	return bb
}

// Constructors registers constructor functions of the form
// func(deps...) T or func(deps...) (T, error). Types bound with ToSelf or
// To are built through the constructor with the most resolvable parameters.
func (b *Builder) Constructors(constructors ...any) *Builder {
	b.constructors = append(b.constructors, constructors...)
	return b
}

// implementationKind is the terminal choice of a binding.
type implementationKind int

const (
	implNone implementationKind = iota
	implSelf
	implType
	implFactory
	implInstance
)

// BindingBuilder is a binding in progress. It must be completed with
// exactly one of ToSelf, To, ToFactory or ToInstance.
type BindingBuilder struct {
	services []TypeDescriptor
	kind     implementationKind
	impl     TypeDescriptor
	factory  Factory
	instance any
	scope    Scope
	scopeSet bool
	key      string
	dispose  bool
	problems []string
}

// And adds another service served by the same registration. With a
// singleton scope all services share one instance.
func (bb *BindingBuilder) And(service TypeDescriptor) *BindingBuilder {
	bb.services = append(bb.services, service)
	return bb
}

// ToSelf binds the service to itself; it must be concrete.
func (bb *BindingBuilder) ToSelf() *BindingBuilder {
	return bb.terminate(implSelf)
}

// To binds the service to a concrete implementation type.
func (bb *BindingBuilder) To(impl TypeDescriptor) *BindingBuilder {
	bb.impl = impl
	return bb.terminate(implType)
}

// ToFactory binds the service to a factory function.
func (bb *BindingBuilder) ToFactory(factory Factory) *BindingBuilder {
	bb.factory = factory
	return bb.terminate(implFactory)
}

// ToInstance binds the service to a pre-built instance. Instances are
// always singletons and are disposed with the container unless
// DisposeWithContainer(false) is set.
func (bb *BindingBuilder) ToInstance(instance any) *BindingBuilder {
	bb.instance = instance
	return bb.terminate(implInstance)
}

// InSingletonScope makes the binding create one instance per container.
func (bb *BindingBuilder) InSingletonScope() *BindingBuilder {
	bb.scope, bb.scopeSet = Singleton, true
	return bb
}

// InTransientScope makes the binding create a new instance per resolution.
func (bb *BindingBuilder) InTransientScope() *BindingBuilder {
	bb.scope, bb.scopeSet = Transient, true
	return bb
}

// WithKey places the binding in the slot disambiguated by key.
func (bb *BindingBuilder) WithKey(key string) *BindingBuilder {
	bb.key = key
	return bb
}

// DisposeWithContainer controls whether singleton and instance bindings
// are disposed with the container. It defaults to true.
func (bb *BindingBuilder) DisposeWithContainer(dispose bool) *BindingBuilder {
	bb.dispose = dispose
	return bb
}

func (bb *BindingBuilder) terminate(kind implementationKind) *BindingBuilder {
	if bb.kind != implNone {
		bb.problems = append(bb.problems, "binding already has an implementation")
	}
	bb.kind = kind
	return bb
}

func (bb *BindingBuilder) name() string {
	names := make([]string, len(bb.services))
	for i, svc := range bb.services {
		names[i] = svc.String()
	}
	return strings.Join(names, ", ")
}

// Build validates every binding and compiles them into a Container. It
// fails with the first violation found, walking constructors in
// registration order and bindings in declaration order.
func (b *Builder) Build() (Container, error) {
	c := newContainerImpl(b.options)

	for _, fn := range b.constructors {
		ctor, err := analyzeConstructor(fn)
		if err != nil {
			return nil, NewBindingError(fmt.Sprintf("%T", fn), err.Error())
		}
		c.constructors[ctor.result] = append(c.constructors[ctor.result], ctor)
	}

	seen := make(map[duplicateKey]struct{})
	for _, bb := range b.bindings {
		if err := bb.validate(); err != nil {
			return nil, err
		}
		if err := bb.register(c, seen, b.options.defaultScope); err != nil {
			return nil, err
		}
	}

	if b.options.verify {
		if err := Verify(c); err != nil {
			return nil, err
		}
	}

	b.options.logger.Debug("container built",
		zap.String("container", c.id),
		zap.Int("bindings", len(b.bindings)),
		zap.Int("services", len(c.keys)),
		zap.Int("unbound", len(c.unbound)),
	)

	return c, nil
}

// validate checks the binding structurally.
func (bb *BindingBuilder) validate() error {
	if len(bb.problems) > 0 {
		return NewBindingError(bb.name(), bb.problems[0])
	}

	for _, svc := range bb.services {
		if svc.err != "" {
			return NewBindingError(svc.String(), svc.err)
		}
	}

	unbound := bb.services[0].IsUnbound()
	for _, svc := range bb.services[1:] {
		if svc.IsUnbound() != unbound {
			return NewBindingError(bb.name(), "cannot mix unbound generic and closed services in one binding")
		}
	}

	switch bb.kind {
	case implNone:
		return NewBindingError(bb.name(), "binding has no implementation; call ToSelf, To, ToFactory or ToInstance")

	case implSelf:
		if len(bb.services) > 1 {
			return NewBindingError(bb.name(), "ToSelf cannot be combined with And")
		}
		return validateImplementation(bb.services[0], bb.services[0])

	case implType:
		if bb.impl.err != "" {
			return NewBindingError(bb.name(), bb.impl.err)
		}
		for _, svc := range bb.services {
			if err := validateImplementation(svc, bb.impl); err != nil {
				return err
			}
		}

	case implFactory:
		if bb.factory == nil {
			return NewBindingError(bb.name(), "factory cannot be nil")
		}
		if unbound {
			return NewBindingError(bb.name(), "factories cannot be bound to unbound generic services")
		}

	case implInstance:
		if bb.instance == nil {
			return NewBindingError(bb.name(), "instance cannot be nil")
		}
		if unbound {
			return NewBindingError(bb.name(), "instances cannot be bound to unbound generic services")
		}
		instanceType := reflect.TypeOf(bb.instance)
		for _, svc := range bb.services {
			if !instanceType.AssignableTo(svc.typ) {
				return NewBindingError(svc.String(),
					fmt.Sprintf("instance of type %s is not assignable to %s", instanceType, svc))
			}
		}
	}

	return nil
}

// validateImplementation checks that impl can serve svc.
func validateImplementation(svc, impl TypeDescriptor) error {
	if !impl.IsConcrete() {
		return NewBindingError(svc.String(), fmt.Sprintf("implementation %s is not concrete", impl))
	}

	switch {
	case svc.IsUnbound() && !impl.IsUnbound():
		return NewBindingError(svc.String(),
			fmt.Sprintf("unbound generic service cannot be bound to closed implementation %s", impl))
	case !svc.IsUnbound() && impl.IsUnbound():
		return NewBindingError(svc.String(),
			fmt.Sprintf("closed service cannot be bound to unbound generic implementation %s", impl))
	}

	if !svc.IsUnbound() {
		if !impl.AssignableTo(svc) {
			return NewBindingError(svc.String(), fmt.Sprintf("%s does not implement %s", impl, svc))
		}
		return nil
	}

	if svc.Arity() != impl.Arity() {
		return NewBindingError(svc.String(),
			fmt.Sprintf("implementation %s has %d type parameters, service has %d", impl, impl.Arity(), svc.Arity()))
	}

	// Instantiations sharing type arguments on both sides are checked now;
	// the rest are checked on specialization.
	for i, member := range impl.family.members {
		if svcMember, ok := svc.family.member(impl.family.args[i]); ok && !member.AssignableTo(svcMember) {
			return NewBindingError(svc.String(), fmt.Sprintf("%s does not implement %s", member, svcMember))
		}
	}

	return nil
}

// duplicateKey identifies a (service, key, implementation) triple. Service
// and implementation hold a reflect.Type or a familyID.
type duplicateKey struct {
	service any
	key     string
	impl    any
}

// register adds the validated binding to c.
func (bb *BindingBuilder) register(c *containerImpl, seen map[duplicateKey]struct{}, defaultScope Scope) error {
	scope := defaultScope
	if bb.scopeSet {
		scope = bb.scope
	}

	impl := bb.impl
	if bb.kind == implSelf {
		impl = bb.services[0]
	}

	if bb.services[0].IsUnbound() {
		shared := newUnboundRegistration(impl.family, bb.key, scope, bb.dispose)
		for _, svc := range bb.services {
			dup := duplicateKey{service: svc.family.id, key: bb.key, impl: impl.family.id}
			if _, ok := seen[dup]; ok {
				return NewBindingError(svc.String(), fmt.Sprintf("%s is bound more than once", impl))
			}
			seen[dup] = struct{}{}

			c.addUnbound(unboundSlot{family: svc.family.id, key: bb.key}, shared)
		}
		return nil
	}

	key := BindingKey{Service: bb.services[0].typ, Key: bb.key}

	var reg *registration
	switch bb.kind {
	case implSelf, implType:
		reg = newRegistration(key, &constructorCreator{typ: impl.typ}, scope, bb.dispose)
	case implFactory:
		reg = newRegistration(key, &factoryCreator{fn: bb.factory}, scope, bb.dispose)
	case implInstance:
		reg = newInstanceRegistration(key, bb.instance, bb.dispose)
		if bb.dispose && isDisposable(bb.instance) {
			c.disposables = append(c.disposables, ownedInstance{key: key, instance: bb.instance})
		}
	}

	for _, svc := range bb.services {
		if bb.kind == implSelf || bb.kind == implType {
			dup := duplicateKey{service: svc.typ, key: bb.key, impl: impl.typ}
			if _, ok := seen[dup]; ok {
				return NewBindingError(svc.String(), fmt.Sprintf("%s is bound more than once", impl))
			}
			seen[dup] = struct{}{}
		}

		c.addRegistration(BindingKey{Service: svc.typ, Key: bb.key}, reg)
	}

	return nil
}

// BindType starts a binding for the closed type T.
func BindType[T any](b *Builder) *BindingBuilder {
	return b.Bind(TypeOf[T]())
}
