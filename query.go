package binder

import "reflect"

// RegistrationQuery defines criteria for querying registrations.
type RegistrationQuery struct {
	// Service filters by service type.
	// nil matches all services.
	Service reflect.Type

	// Key filters by binding key name.
	// nil matches every key, including the unkeyed slot.
	Key *string

	// Scope filters by scope name (transient, singleton).
	// Empty string matches all scopes.
	Scope string

	// Creator filters by creator kind (constructor, factory, instance).
	// Empty string matches all creators.
	Creator string

	// Created filters by whether a singleton instance exists.
	// nil matches all registrations.
	Created *bool
}

// Query returns detailed information about registrations matching the query
// criteria, in the order returned by Container.Registrations.
//
// Example:
//
//	// Find all singleton registrations that were already built
//	created := true
//	results := binder.Query(c, binder.RegistrationQuery{
//	    Scope:   "singleton",
//	    Created: &created,
//	})
func Query(c Container, query RegistrationQuery) []RegistrationInfo {
	var results []RegistrationInfo

	for _, info := range c.Registrations() {
		// Filter by service
		if query.Service != nil && info.Key.Service != query.Service {
			continue
		}

		// Filter by key
		if query.Key != nil && info.Key.Key != *query.Key {
			continue
		}

		// Filter by scope
		if query.Scope != "" && info.Scope.String() != query.Scope {
			continue
		}

		// Filter by creator
		if query.Creator != "" && info.Creator != query.Creator {
			continue
		}

		// Filter by created status
		if query.Created != nil && info.Created != *query.Created {
			continue
		}

		results = append(results, info)
	}

	return results
}

// QueryKeys returns the distinct binding keys of registrations matching the
// query criteria.
func QueryKeys(c Container, query RegistrationQuery) []BindingKey {
	results := Query(c, query)
	seen := make(map[BindingKey]bool, len(results))
	keys := make([]BindingKey, 0, len(results))
	for _, info := range results {
		if !seen[info.Key] {
			seen[info.Key] = true
			keys = append(keys, info.Key)
		}
	}
	return keys
}

// FindByScope returns all registrations with a specific scope.
func FindByScope(c Container, scope Scope) []RegistrationInfo {
	return Query(c, RegistrationQuery{Scope: scope.String()})
}

// FindByService returns all registrations of a service type, under any key.
func FindByService(c Container, service reflect.Type) []RegistrationInfo {
	return Query(c, RegistrationQuery{Service: service})
}

// FindCreated returns all singleton registrations whose instance exists.
func FindCreated(c Container) []RegistrationInfo {
	created := true
	return Query(c, RegistrationQuery{Created: &created})
}

// FindNotCreated returns all registrations without a cached instance.
func FindNotCreated(c Container) []RegistrationInfo {
	created := false
	return Query(c, RegistrationQuery{Created: &created})
}
