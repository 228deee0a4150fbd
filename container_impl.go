package binder

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// containerImpl implements Container.
type containerImpl struct {
	id           string
	collections  map[BindingKey][]*registration
	keys         []BindingKey
	unbound      map[unboundSlot][]*unboundRegistration
	constructors map[reflect.Type][]*constructorInfo
	middleware   *middlewareChain
	logger       *zap.Logger
	base         *resolution
	mu           sync.RWMutex

	disposed    atomic.Bool
	disposeMu   sync.Mutex
	disposables []ownedInstance
}

// ownedInstance is a disposable singleton owned by the container.
type ownedInstance struct {
	key      BindingKey
	instance any
}

// newContainerImpl creates an empty container. The builder fills it before
// handing it out.
func newContainerImpl(opts builderOptions) *containerImpl {
	c := &containerImpl{
		id:           uuid.NewString(),
		collections:  make(map[BindingKey][]*registration),
		unbound:      make(map[unboundSlot][]*unboundRegistration),
		constructors: make(map[reflect.Type][]*constructorInfo),
		middleware:   newMiddlewareChain(opts.middleware...),
		logger:       opts.logger,
	}
	c.base = newRootResolution(c)
	return c
}

// ID implements Container.
func (c *containerImpl) ID() string {
	return c.id
}

// Get implements Container.
func (c *containerImpl) Get(service reflect.Type, key string) (any, error) {
	return c.get(c.base, BindingKey{Service: service, Key: key})
}

// GetAll implements Container.
func (c *containerImpl) GetAll(service reflect.Type, key string) ([]any, error) {
	return c.getAll(c.base, BindingKey{Service: service, Key: key})
}

// GetTypeOrAll implements Container.
func (c *containerImpl) GetTypeOrAll(service reflect.Type, key string) (any, error) {
	return c.getTypeOrAll(c.base, BindingKey{Service: service, Key: key})
}

// BuildUp implements Container.
func (c *containerImpl) BuildUp(target any) error {
	return c.buildUp(c.base, target)
}

// Has implements Container.
func (c *containerImpl) Has(service reflect.Type, key string) bool {
	if c.disposed.Load() || service == nil {
		return false
	}
	return c.canResolve(service, key)
}

// Registrations implements Container. Entries are ordered by binding key,
// then by registration order within a key.
func (c *containerImpl) Registrations() []RegistrationInfo {
	entries := c.snapshot()
	infos := make([]RegistrationInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, entry.reg.info(entry.key))
	}

	slices.SortStableFunc(infos, func(a, b RegistrationInfo) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})

	return infos
}

// checkRequest validates a request before it touches any registration.
func (c *containerImpl) checkRequest(key BindingKey) error {
	if c.disposed.Load() {
		return ErrDisposed
	}
	if key.Service == nil {
		return NewBindingError("<nil>", "service type cannot be nil")
	}
	return nil
}

// get performs a single resolution of key on the call path parent.
func (c *containerImpl) get(parent *resolution, key BindingKey) (any, error) {
	if err := c.checkRequest(key); err != nil {
		return nil, err
	}

	if key.Service == containerType && key.Key == "" {
		return Container(c), nil
	}

	ctx, err := c.middleware.beforeResolve(parent.ctx, key)
	if err != nil {
		return nil, err
	}

	instance, err := c.resolveSingle(parent, ctx, key)

	if mwErr := c.middleware.afterResolve(ctx, key, instance, err); mwErr != nil {
		return nil, mwErr
	}

	return instance, err
}

func (c *containerImpl) resolveSingle(parent *resolution, ctx context.Context, key BindingKey) (any, error) {
	if parent.visiting(key) {
		return nil, ErrCircularDependencyFor(parent.cycle(key))
	}

	regs, err := c.lookup(key)
	if err != nil {
		return nil, err
	}

	switch len(regs) {
	case 0:
		if instance, ok := c.synthesize(key); ok {
			return instance, nil
		}
		return nil, ErrNotRegisteredFor(key)
	case 1:
		return c.instantiate(parent, ctx, key, regs[0])
	default:
		return nil, ErrAmbiguousFor(key, len(regs))
	}
}

// getAll resolves every registration for key in registration order.
func (c *containerImpl) getAll(parent *resolution, key BindingKey) ([]any, error) {
	if err := c.checkRequest(key); err != nil {
		return nil, err
	}

	ctx, err := c.middleware.beforeResolve(parent.ctx, key)
	if err != nil {
		return nil, err
	}

	instances, err := c.resolveAll(parent, ctx, key)

	var result any
	if err == nil {
		result = instances
	}
	if mwErr := c.middleware.afterResolve(ctx, key, result, err); mwErr != nil {
		return nil, mwErr
	}

	return instances, err
}

func (c *containerImpl) resolveAll(parent *resolution, ctx context.Context, key BindingKey) ([]any, error) {
	if parent.visiting(key) {
		return nil, ErrCircularDependencyFor(parent.cycle(key))
	}

	regs, err := c.lookup(key)
	if err != nil {
		return nil, err
	}

	instances := make([]any, 0, len(regs))
	for _, reg := range regs {
		instance, err := c.instantiate(parent, ctx, key, reg)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// getTypeOrAll resolves a slice type without a registration of its own as the
// collection of its element type.
func (c *containerImpl) getTypeOrAll(parent *resolution, key BindingKey) (any, error) {
	if err := c.checkRequest(key); err != nil {
		return nil, err
	}

	if key.Service.Kind() != reflect.Slice || c.hasRegistrations(key) {
		return c.get(parent, key)
	}

	items, err := c.getAll(parent, BindingKey{Service: key.Service.Elem(), Key: key.Key})
	if err != nil {
		return nil, err
	}

	return sliceOf(key.Service, items).Interface(), nil
}

// instantiate runs reg with a child resolution that is detached once the
// registration returns.
func (c *containerImpl) instantiate(parent *resolution, ctx context.Context, key BindingKey, reg *registration) (any, error) {
	if parent.building(reg) {
		return nil, ErrCircularDependencyFor(parent.cycle(key))
	}

	r := parent.child(ctx, key, reg)
	defer r.detach()

	instance, err := reg.resolve(r)
	if err != nil {
		return nil, err
	}

	if instance != nil && !reflect.TypeOf(instance).AssignableTo(key.Service) {
		return nil, NewBindingError(key.String(),
			fmt.Sprintf("%s produced %T, which is not assignable to %s", reg.creator.implementation(), instance, key.Service))
	}

	return instance, nil
}

// resolveDependency resolves a constructor parameter, param-object field or
// inject field of type t.
func (c *containerImpl) resolveDependency(r *resolution, t reflect.Type, key string) (reflect.Value, error) {
	bk := BindingKey{Service: t, Key: key}

	if t.Kind() == reflect.Slice && !c.hasRegistrations(bk) {
		items, err := c.getAll(r, BindingKey{Service: t.Elem(), Key: key})
		if err != nil {
			return reflect.Value{}, err
		}
		return sliceOf(t, items), nil
	}

	instance, err := c.get(r, bk)
	if err != nil {
		return reflect.Value{}, err
	}

	return valueOf(t, instance), nil
}

// resolveInStruct fills a param object, skipping optional fields that cannot
// be resolved.
func (c *containerImpl) resolveInStruct(r *resolution, param paramInfo) (reflect.Value, error) {
	t := param.typ
	pointer := t.Kind() == reflect.Pointer
	if pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Elem()
	for _, field := range param.inFields {
		if field.optional && !c.canResolve(field.typ, field.key) {
			continue
		}

		value, err := c.resolveDependency(r, field.typ, field.key)
		if err != nil {
			return reflect.Value{}, err
		}
		v.Field(field.index).Set(value)
	}

	if pointer {
		return v.Addr(), nil
	}
	return v, nil
}

// injectInto assigns the inject-tagged fields of instance. Struct values are
// copied so the assigned copy is returned.
func (c *containerImpl) injectInto(r *resolution, instance reflect.Value, fields []fieldInfo) (reflect.Value, error) {
	target := instance
	if target.Kind() == reflect.Pointer {
		if target.IsNil() {
			return instance, nil
		}
		target = target.Elem()
	} else {
		addressable := reflect.New(target.Type()).Elem()
		addressable.Set(target)
		target, instance = addressable, addressable
	}

	for _, field := range fields {
		value, err := c.resolveDependency(r, field.typ, field.key)
		if err != nil {
			return reflect.Value{}, err
		}

		dst, err := target.FieldByIndexErr(field.index)
		if err != nil {
			return reflect.Value{}, NewBindingError(target.Type().String(),
				fmt.Sprintf("field %s: %v", field.name, err))
		}
		dst.Set(value)
	}

	return instance, nil
}

func (c *containerImpl) buildUp(parent *resolution, target any) error {
	if c.disposed.Load() {
		return ErrDisposed
	}

	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return NewBindingError(fmt.Sprintf("%T", target), "BuildUp needs a non-nil pointer to a struct")
	}

	fields, err := injectFields(v.Type())
	if err != nil {
		return NewBindingError(v.Type().String(), err.Error())
	}

	_, err = c.injectInto(parent, v, fields)
	return err
}

// canResolve reports whether a dependency of type t would resolve. It mirrors
// resolveDependency without creating anything.
func (c *containerImpl) canResolve(t reflect.Type, key string) bool {
	if t == containerType && key == "" {
		return true
	}
	if c.hasRegistrations(BindingKey{Service: t, Key: key}) {
		return true
	}
	if shape, ok := deferredShapeOf(t); ok {
		return shape.optional || c.canResolve(shape.target, key)
	}
	if t.Kind() == reflect.Slice {
		return c.canResolve(t.Elem(), key)
	}
	return false
}

// dependencyFor returns the graph edge for a dependency of type t. It reports
// false for dependencies on the container itself.
func (c *containerImpl) dependencyFor(t reflect.Type, key string) (Dependency, bool) {
	if t == containerType && key == "" {
		return Dependency{}, false
	}

	bk := BindingKey{Service: t, Key: key}
	if c.hasRegistrations(bk) {
		return Dependency{Key: bk}, true
	}
	if shape, ok := deferredShapeOf(t); ok {
		return Dependency{Key: BindingKey{Service: shape.target, Key: key}, Deferred: true}, true
	}
	if t.Kind() == reflect.Slice {
		return Dependency{Key: BindingKey{Service: t.Elem(), Key: key}}, true
	}
	return Dependency{Key: bk}, true
}

// adopt publishes a freshly created singleton on reg and takes ownership of
// it. A singleton finished after disposal began is disposed at once and the
// caller gets ErrDisposed.
func (c *containerImpl) adopt(reg *registration, instance any) error {
	c.disposeMu.Lock()
	defer c.disposeMu.Unlock()

	if c.disposed.Load() {
		if reg.disposeWithContainer {
			if err := dispose(instance); err != nil {
				c.logger.Warn("failed to dispose instance created during disposal",
					zap.String("container", c.id),
					zap.Stringer("service", reg.key),
					zap.Error(err),
				)
			}
		}
		return ErrDisposed
	}

	if reg.disposeWithContainer && isDisposable(instance) {
		c.disposables = append(c.disposables, ownedInstance{key: reg.key, instance: instance})
	}
	reg.store(instance)

	return nil
}

// Dispose implements Container.
func (c *containerImpl) Dispose() error {
	c.disposeMu.Lock()
	if c.disposed.Load() {
		c.disposeMu.Unlock()
		return nil
	}
	c.disposed.Store(true)
	owned := c.disposables
	c.disposables = nil
	c.disposeMu.Unlock()

	// No singleton can be published from here on
	for _, entry := range c.snapshot() {
		entry.reg.release()
	}

	c.logger.Debug("disposing container",
		zap.String("container", c.id),
		zap.Int("instances", len(owned)),
	)

	var errs error
	for i := len(owned) - 1; i >= 0; i-- {
		if err := dispose(owned[i].instance); err != nil {
			err = fmt.Errorf("dispose %s: %w", owned[i].key, err)
			c.logger.Warn("failed to dispose instance",
				zap.String("container", c.id),
				zap.Stringer("service", owned[i].key),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func isDisposable(instance any) bool {
	switch instance.(type) {
	case Disposable, io.Closer:
		return true
	default:
		return false
	}
}

func dispose(instance any) error {
	switch d := instance.(type) {
	case Disposable:
		return d.Dispose()
	case io.Closer:
		return d.Close()
	default:
		return nil
	}
}

// valueOf converts a resolved instance to a value usable as type t.
func valueOf(t reflect.Type, instance any) reflect.Value {
	v := reflect.New(t).Elem()
	if instance != nil {
		v.Set(reflect.ValueOf(instance))
	}
	return v
}

// sliceOf builds a typed slice of sliceType from resolved instances.
func sliceOf(sliceType reflect.Type, items []any) reflect.Value {
	s := reflect.MakeSlice(sliceType, 0, len(items))
	for _, item := range items {
		s = reflect.Append(s, valueOf(sliceType.Elem(), item))
	}
	return s
}
