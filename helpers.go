package binder

import (
	"fmt"
)

// Get resolves the unkeyed T with type safety.
func Get[T any](c Container) (T, error) {
	return GetKeyed[T](c, "")
}

// GetKeyed resolves T registered under key with type safety.
func GetKeyed[T any](c Container, key string) (T, error) {
	var zero T

	instance, err := c.Get(ReflectTypeOf[T](), key)
	if err != nil {
		return zero, err
	}

	return cast[T](instance, key)
}

// MustGet resolves or panics - use only during startup.
func MustGet[T any](c Container) T {
	instance, err := Get[T](c)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", KeyOf[T](""), err))
	}

	return instance
}

// GetAll resolves every unkeyed registration of T in registration order.
func GetAll[T any](c Container) ([]T, error) {
	return GetAllKeyed[T](c, "")
}

// GetAllKeyed resolves every registration of T under key in registration order.
func GetAllKeyed[T any](c Container, key string) ([]T, error) {
	instances, err := c.GetAll(ReflectTypeOf[T](), key)
	if err != nil {
		return nil, err
	}

	typed := make([]T, 0, len(instances))
	for _, instance := range instances {
		v, err := cast[T](instance, key)
		if err != nil {
			return nil, err
		}
		typed = append(typed, v)
	}

	return typed, nil
}

// FactoryOf adapts a typed factory for BindingBuilder.ToFactory.
//
// Usage:
//
//	b.Bind(binder.TypeOf[*Client]()).ToFactory(binder.FactoryOf(func(c binder.Container) (*Client, error) {
//	    cfg, err := binder.Get[*Config](c)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewClient(cfg), nil
//	}))
func FactoryOf[T any](factory func(Container) (T, error)) Factory {
	if factory == nil {
		return nil
	}

	return func(c Container) (any, error) {
		return factory(c)
	}
}

func cast[T any](instance any, key string) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, NewBindingError(KeyOf[T](key).String(),
			fmt.Sprintf("resolved instance of type %T is not assignable", instance))
	}

	return typed, nil
}
