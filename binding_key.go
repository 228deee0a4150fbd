package binder

import (
	"fmt"
	"reflect"
)

// BindingKey identifies a registration slot: a service type plus an
// optional disambiguating key. The empty key is the unkeyed slot.
type BindingKey struct {
	Service reflect.Type
	Key     string
}

// String returns a human-readable representation of the binding key.
func (k BindingKey) String() string {
	if k.Key == "" {
		return k.serviceName()
	}
	return fmt.Sprintf("%s[key=%s]", k.serviceName(), k.Key)
}

func (k BindingKey) serviceName() string {
	if k.Service == nil {
		return "<nil>"
	}
	return k.Service.String()
}

// KeyOf returns the binding key for T with the given key.
func KeyOf[T any](key string) BindingKey {
	return BindingKey{Service: ReflectTypeOf[T](), Key: key}
}

// ReflectTypeOf returns the reflect.Type of T, including interface types.
func ReflectTypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
