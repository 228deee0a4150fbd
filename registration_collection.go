package binder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// unboundSlot identifies the registrations of an unbound generic service.
type unboundSlot struct {
	family familyID
	key    string
}

// unboundRegistration binds an unbound generic service to an unbound
// implementation family. It is specialized into a closed registration the
// first time a matching closed service is requested. Every service of one
// binding shares the same unboundRegistration, so they share specializations.
type unboundRegistration struct {
	impl                 *genericFamily
	key                  string
	scope                Scope
	disposeWithContainer bool

	mu          sync.Mutex
	specialized map[string]*registration
}

func newUnboundRegistration(impl *genericFamily, key string, scope Scope, disposeWithContainer bool) *unboundRegistration {
	return &unboundRegistration{
		impl:                 impl,
		key:                  key,
		scope:                scope,
		disposeWithContainer: disposeWithContainer,
		specialized:          make(map[string]*registration),
	}
}

// specialize returns the closed registration for the type arguments args,
// checked against service. It reports false when the implementation family
// has no instantiation for those arguments. Services of the same binding
// requesting the same arguments receive the same registration.
func (u *unboundRegistration) specialize(service reflect.Type, args []string) (*registration, bool, error) {
	member, ok := u.impl.member(args)
	if !ok {
		return nil, false, nil
	}

	if !member.AssignableTo(service) {
		return nil, false, NewBindingError(service.String(),
			fmt.Sprintf("%s does not implement %s", member, service))
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	id := strings.Join(args, ",")
	if reg, ok := u.specialized[id]; ok {
		return reg, true, nil
	}

	reg := newRegistration(BindingKey{Service: service, Key: u.key}, &constructorCreator{typ: member}, u.scope, u.disposeWithContainer)
	reg.specialized = true
	u.specialized[id] = reg

	return reg, true, nil
}

// addRegistration appends reg to the collection for key. Only the builder
// calls it, before the container is published.
func (c *containerImpl) addRegistration(key BindingKey, reg *registration) {
	if _, ok := c.collections[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.collections[key] = append(c.collections[key], reg)
}

// addUnbound records an unbound registration. Only the builder calls it.
func (c *containerImpl) addUnbound(slot unboundSlot, u *unboundRegistration) {
	c.unbound[slot] = append(c.unbound[slot], u)
}

// lookup returns the registrations for key in registration order. Closed
// registrations shadow unbound ones; an unbound match is specialized and
// published so later requests reuse the same registrations.
func (c *containerImpl) lookup(key BindingKey) ([]*registration, error) {
	c.mu.RLock()
	regs, ok := c.collections[key]
	c.mu.RUnlock()

	if ok {
		return regs, nil
	}

	id, args, generic := parseGeneric(key.Service)
	if !generic {
		return nil, nil
	}

	unbound := c.unbound[unboundSlot{family: id, key: key.Key}]
	if len(unbound) == 0 {
		return nil, nil
	}

	specialized := make([]*registration, 0, len(unbound))
	for _, u := range unbound {
		reg, ok, err := u.specialize(key.Service, args)
		if err != nil {
			return nil, err
		}
		if ok {
			specialized = append(specialized, reg)
		}
	}

	if len(specialized) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another resolution may have published first; keep its registrations
	if existing, ok := c.collections[key]; ok {
		return existing, nil
	}

	c.collections[key] = specialized
	c.keys = append(c.keys, key)

	c.logger.Debug("specialized unbound generic binding",
		zap.String("container", c.id),
		zap.Stringer("service", key),
		zap.Int("registrations", len(specialized)),
	)

	return specialized, nil
}

// hasRegistrations reports whether lookup would find at least one
// registration for key.
func (c *containerImpl) hasRegistrations(key BindingKey) bool {
	regs, err := c.lookup(key)
	return err == nil && len(regs) > 0
}
