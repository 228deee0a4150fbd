package binder

// ServiceKey provides type-safe service identification.
// Use NewServiceKey to create typed keys for your services.
type ServiceKey[T any] struct {
	name string
}

// NewServiceKey creates a new typed service key.
// The type parameter T ensures type safety when binding and resolving services.
//
// Example:
//
//	var PrimaryDB = NewServiceKey[*Database]("primary")
//	var ReplicaDB = NewServiceKey[*Database]("replica")
func NewServiceKey[T any](name string) ServiceKey[T] {
	return ServiceKey[T]{name: name}
}

// Name returns the string name of the service key.
func (k ServiceKey[T]) Name() string {
	return k.name
}

// BindingKey returns the untyped binding key.
func (k ServiceKey[T]) BindingKey() BindingKey {
	return KeyOf[T](k.name)
}

// BindKey starts a binding for T in the slot named by key.
//
// Example:
//
//	binder.BindKey(b, PrimaryDB).ToFactory(newPrimary).InSingletonScope()
func BindKey[T any](b *Builder, key ServiceKey[T]) *BindingBuilder {
	return b.Bind(TypeOf[T]()).WithKey(key.name)
}

// GetKey resolves a service using a typed service key.
//
// Example:
//
//	db, err := GetKey(c, PrimaryDB)
func GetKey[T any](c Container, key ServiceKey[T]) (T, error) {
	return GetKeyed[T](c, key.name)
}

// MustGetKey resolves a service using a typed service key and panics on error.
//
// Example:
//
//	db := MustGetKey(c, PrimaryDB)
func MustGetKey[T any](c Container, key ServiceKey[T]) T {
	result, err := GetKey(c, key)
	if err != nil {
		panic(err)
	}
	return result
}

// HasKey checks if a service can be resolved using a typed service key.
func HasKey[T any](c Container, key ServiceKey[T]) bool {
	return c.Has(ReflectTypeOf[T](), key.name)
}

// GetAllKey resolves every registration in the slot named by key.
func GetAllKey[T any](c Container, key ServiceKey[T]) ([]T, error) {
	return GetAllKeyed[T](c, key.name)
}
