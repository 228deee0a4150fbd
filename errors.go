package binder

import (
	"fmt"
	"strings"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeBinding indicates a structural misconfiguration of the bindings
	CodeBinding = "BINDING_ERROR"

	// CodeNotRegistered indicates no registration matched a single resolution
	CodeNotRegistered = "NOT_REGISTERED"

	// CodeAmbiguousRegistration indicates a single resolution matched several registrations
	CodeAmbiguousRegistration = "AMBIGUOUS_REGISTRATION"

	// CodeCircularDependency indicates a resolution path revisited a key under construction
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"

	// CodeDisposed indicates an operation on a disposed container
	CodeDisposed = "CONTAINER_DISPOSED"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrBinding is a sentinel for binding errors (for error checking).
var ErrBinding = errs.NewError(CodeBinding, "invalid binding", nil)

// ErrNotRegistered is a sentinel for missing registrations (for error checking).
var ErrNotRegistered = errs.NewError(CodeNotRegistered, "service not registered", nil)

// ErrAmbiguousRegistration is a sentinel for ambiguous registrations (for error checking).
var ErrAmbiguousRegistration = errs.NewError(CodeAmbiguousRegistration, "ambiguous registration", nil)

// ErrCircularDependency is a sentinel for circular dependencies (for error checking).
var ErrCircularDependency = errs.NewError(CodeCircularDependency, "circular dependency", nil)

// ErrDisposed is returned by every operation on a container after Dispose has begun.
var ErrDisposed = errs.NewError(CodeDisposed, "container has been disposed", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// NewBindingError creates an error for an invalid binding of service.
func NewBindingError(service, reason string) *errs.Error {
	return errs.NewError(
		CodeBinding,
		fmt.Sprintf("binding for '%s': %s", service, reason),
		nil,
	).WithContext("service", service).
		WithContext("reason", reason).(*errs.Error)
}

// ErrNotRegisteredFor creates an error for a key with no matching registration.
func ErrNotRegisteredFor(key BindingKey) *errs.Error {
	return errs.NewError(
		CodeNotRegistered,
		fmt.Sprintf("no registrations for service '%s'", key),
		nil,
	).WithContext("service", key.serviceName()).
		WithContext("key", key.Key).(*errs.Error)
}

// ErrAmbiguousFor creates an error for a single resolution matching count registrations.
func ErrAmbiguousFor(key BindingKey, count int) *errs.Error {
	return errs.NewError(
		CodeAmbiguousRegistration,
		fmt.Sprintf("%d registrations for service '%s', expected exactly one", count, key),
		nil,
	).WithContext("service", key.serviceName()).
		WithContext("key", key.Key).
		WithContext("count", count).(*errs.Error)
}

// ErrCircularDependencyFor creates an error for a dependency cycle.
// The cycle lists keys from the outermost request to the revisited key.
func ErrCircularDependencyFor(cycle []string) *errs.Error {
	return errs.NewError(
		CodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
		nil,
	).WithContext("cycle", cycle).(*errs.Error)
}
