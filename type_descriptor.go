package binder

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// TypeDescriptor describes a service or implementation type. It is either a
// closed type backed by a reflect.Type, or an unbound generic family.
//
// Go has no runtime value for an uninstantiated generic type, so an unbound
// family is declared through instantiations of it. Services usually need a
// single instantiation to name the family:
//
//	binder.Unbound(binder.ReflectTypeOf[Repository[any]]())
//
// Implementations list every instantiation the container may specialize to:
//
//	binder.Unbound(
//	    binder.ReflectTypeOf[*memoryRepository[int]](),
//	    binder.ReflectTypeOf[*memoryRepository[string]](),
//	)
type TypeDescriptor struct {
	typ    reflect.Type
	family *genericFamily
	err    string
}

// familyID identifies a generic type family independently of its type arguments.
type familyID struct {
	pkgPath string
	base    string
	pointer bool
	arity   int
}

func (id familyID) String() string {
	var b strings.Builder
	if id.pointer {
		b.WriteByte('*')
	}
	if id.pkgPath != "" {
		b.WriteString(id.pkgPath[strings.LastIndexByte(id.pkgPath, '/')+1:])
		b.WriteByte('.')
	}
	b.WriteString(id.base)
	b.WriteByte('[')
	for i := 0; i < id.arity; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('_')
	}
	b.WriteByte(']')
	return b.String()
}

// genericFamily is an unbound generic type known through its instantiations.
type genericFamily struct {
	id      familyID
	members []reflect.Type
	args    [][]string
}

// member returns the instantiation whose type arguments equal args.
func (f *genericFamily) member(args []string) (reflect.Type, bool) {
	for i, a := range f.args {
		if slices.Equal(a, args) {
			return f.members[i], true
		}
	}
	return nil, false
}

// Type describes the closed type t.
func Type(t reflect.Type) TypeDescriptor {
	if t == nil {
		return TypeDescriptor{err: "type cannot be nil"}
	}
	return TypeDescriptor{typ: t}
}

// TypeOf describes the closed type T.
func TypeOf[T any]() TypeDescriptor {
	return Type(ReflectTypeOf[T]())
}

// Unbound describes the unbound generic family the given instantiations
// belong to. All instantiations must share package, name, pointer-ness and
// arity; violations are reported by Builder.Build.
func Unbound(instantiations ...reflect.Type) TypeDescriptor {
	if len(instantiations) == 0 {
		return TypeDescriptor{err: "unbound generic needs at least one instantiation"}
	}

	family := &genericFamily{}
	for i, t := range instantiations {
		if t == nil {
			return TypeDescriptor{err: "unbound generic instantiation cannot be nil"}
		}

		id, args, ok := parseGeneric(t)
		if !ok {
			return TypeDescriptor{err: fmt.Sprintf("%s is not an instantiated generic type", t)}
		}

		if i == 0 {
			family.id = id
		} else if id != family.id {
			return TypeDescriptor{err: fmt.Sprintf("%s does not belong to generic family %s", t, family.id)}
		}

		family.members = append(family.members, t)
		family.args = append(family.args, args)
	}

	return TypeDescriptor{family: family}
}

// IsUnbound reports whether d is an unbound generic family.
func (d TypeDescriptor) IsUnbound() bool {
	return d.family != nil
}

// Type returns the closed reflect.Type, or nil for unbound families.
func (d TypeDescriptor) Type() reflect.Type {
	return d.typ
}

// Arity returns the number of type parameters. Non-generic types have arity 0.
func (d TypeDescriptor) Arity() int {
	if d.family != nil {
		return d.family.id.arity
	}
	if d.typ == nil {
		return 0
	}
	if id, _, ok := parseGeneric(d.typ); ok {
		return id.arity
	}
	return 0
}

// IsConcrete reports whether d can be instantiated: it is not an interface
// and, for families, none of the instantiations is an interface.
func (d TypeDescriptor) IsConcrete() bool {
	if d.family != nil {
		for _, m := range d.family.members {
			if !isConcrete(m) {
				return false
			}
		}
		return true
	}
	return isConcrete(d.typ)
}

// AssignableTo reports whether values of the closed type d can be used as
// the closed service type. It is always false for unbound families.
func (d TypeDescriptor) AssignableTo(service TypeDescriptor) bool {
	if d.typ == nil || service.typ == nil {
		return false
	}
	return d.typ.AssignableTo(service.typ)
}

// String returns a readable name for the descriptor.
func (d TypeDescriptor) String() string {
	switch {
	case d.family != nil:
		return d.family.id.String()
	case d.typ != nil:
		return d.typ.String()
	default:
		return "<invalid>"
	}
}

func isConcrete(t reflect.Type) bool {
	return t != nil && t.Kind() != reflect.Interface
}

// parseGeneric splits an instantiated generic type such as *pkg.Repo[int]
// into its family identity and its type arguments as reflect prints them.
func parseGeneric(t reflect.Type) (familyID, []string, bool) {
	pointer := false
	if t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
		pointer = true
	}

	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return familyID{}, nil, false
	}

	args := splitTypeArgs(name[open+1 : len(name)-1])

	return familyID{
		pkgPath: t.PkgPath(),
		base:    name[:open],
		pointer: pointer,
		arity:   len(args),
	}, args, true
}

// splitTypeArgs splits a type argument list on top-level commas.
func splitTypeArgs(s string) []string {
	var args []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(args, strings.TrimSpace(s[start:]))
}
