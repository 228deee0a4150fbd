package binder

import (
	"fmt"
	"reflect"
	"slices"
)

// generator performs one instantiation, resolving dependencies through r.
type generator func(r *resolution) (any, error)

// creator is a strategy producing one instance of a concrete type. Creators
// hold no lifetime state.
type creator interface {
	// implementation names what the creator produces, for diagnostics.
	implementation() string

	// kind is "constructor", "factory" or "instance".
	kind() string

	// compile builds the generator. It runs at most once per registration.
	compile(c *containerImpl) (generator, error)

	// dependencies lists the keys the generator resolves when it runs.
	dependencies(c *containerImpl) ([]Dependency, error)
}

// constructorCreator builds a concrete type through the constructor with the
// most resolvable parameters, then assigns inject-tagged fields.
type constructorCreator struct {
	typ reflect.Type
}

func (cc *constructorCreator) implementation() string { return cc.typ.String() }

func (cc *constructorCreator) kind() string { return "constructor" }

func (cc *constructorCreator) compile(c *containerImpl) (generator, error) {
	ctor, err := c.selectConstructor(cc.typ)
	if err != nil {
		return nil, err
	}

	fields, err := injectFields(cc.typ)
	if err != nil {
		return nil, NewBindingError(cc.typ.String(), err.Error())
	}

	return func(r *resolution) (any, error) {
		args := make([]reflect.Value, len(ctor.params))
		for i, param := range ctor.params {
			var (
				arg reflect.Value
				err error
			)
			if param.isIn {
				arg, err = r.root.resolveInStruct(r, param)
			} else {
				arg, err = r.root.resolveDependency(r, param.typ, param.key)
			}
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}

		instance, err := ctor.call(args)
		if err != nil {
			return nil, err
		}

		if len(fields) > 0 {
			instance, err = r.root.injectInto(r, instance, fields)
			if err != nil {
				return nil, err
			}
		}

		return instance.Interface(), nil
	}, nil
}

func (cc *constructorCreator) dependencies(c *containerImpl) ([]Dependency, error) {
	ctor, err := c.selectConstructor(cc.typ)
	if err != nil {
		return nil, err
	}

	var deps []Dependency
	for _, param := range ctor.params {
		if param.isIn {
			for _, field := range param.inFields {
				if dep, ok := c.dependencyFor(field.typ, field.key); ok {
					deps = append(deps, dep)
				}
			}
			continue
		}
		if dep, ok := c.dependencyFor(param.typ, param.key); ok {
			deps = append(deps, dep)
		}
	}

	fields, err := injectFields(cc.typ)
	if err != nil {
		return nil, NewBindingError(cc.typ.String(), err.Error())
	}
	for _, field := range fields {
		if dep, ok := c.dependencyFor(field.typ, field.key); ok {
			deps = append(deps, dep)
		}
	}

	return deps, nil
}

// factoryCreator wraps a user supplied factory function.
type factoryCreator struct {
	fn Factory
}

func (fc *factoryCreator) implementation() string { return "factory" }

func (fc *factoryCreator) kind() string { return "factory" }

func (fc *factoryCreator) compile(*containerImpl) (generator, error) {
	return func(r *resolution) (any, error) {
		instance, err := fc.fn(r)
		if err != nil {
			return nil, err
		}

		if instance != nil && !reflect.TypeOf(instance).AssignableTo(r.key.Service) {
			return nil, NewBindingError(r.key.String(),
				fmt.Sprintf("factory returned %T, which is not assignable to %s", instance, r.key.Service))
		}

		return instance, nil
	}, nil
}

func (fc *factoryCreator) dependencies(*containerImpl) ([]Dependency, error) {
	return nil, nil
}

// instanceCreator hands out one pre-built value.
type instanceCreator struct {
	instance any
}

func (ic *instanceCreator) implementation() string { return fmt.Sprintf("%T", ic.instance) }

func (ic *instanceCreator) kind() string { return "instance" }

func (ic *instanceCreator) compile(*containerImpl) (generator, error) {
	return func(*resolution) (any, error) {
		return ic.instance, nil
	}, nil
}

func (ic *instanceCreator) dependencies(*containerImpl) ([]Dependency, error) {
	return nil, nil
}

// selectConstructor picks the constructor of t with the most parameters that
// can all be resolved. Ties go to the constructor registered first; the
// implicit zero-value constructor comes after every registered one.
func (c *containerImpl) selectConstructor(t reflect.Type) (*constructorInfo, error) {
	candidates := slices.Clone(c.constructors[t])
	if implicit, ok := implicitConstructor(t); ok {
		candidates = append(candidates, implicit)
	}

	if len(candidates) == 0 {
		return nil, NewBindingError(t.String(), "no constructor registered and the type is not a struct")
	}

	slices.SortStableFunc(candidates, func(a, b *constructorInfo) int {
		return b.arity() - a.arity()
	})

	for _, ctor := range candidates {
		if c.canSatisfy(ctor) {
			return ctor, nil
		}
	}

	return nil, NewBindingError(t.String(), "no constructor has all of its parameters resolvable")
}

// canSatisfy reports whether every parameter of ctor can be resolved.
func (c *containerImpl) canSatisfy(ctor *constructorInfo) bool {
	for _, param := range ctor.params {
		if !param.isIn {
			if !c.canResolve(param.typ, param.key) {
				return false
			}
			continue
		}
		for _, field := range param.inFields {
			if !field.optional && !c.canResolve(field.typ, field.key) {
				return false
			}
		}
	}
	return true
}
