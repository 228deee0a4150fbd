package binder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// In is a marker type that should be embedded in structs to indicate
// they are parameter objects. Fields of the struct will be treated as
// dependencies to inject.
//
// Example:
//
//	type ServiceParams struct {
//	    binder.In
//
//	    DB      *Database
//	    Logger  *Logger  `optional:"true"`
//	    Cache   Cache    `key:"redis"`
//	    Plugins []Plugin
//	}
type In struct{}

var (
	inType    = reflect.TypeOf(In{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// constructorInfo holds analyzed constructor metadata
type constructorInfo struct {
	fn       reflect.Value
	fnType   reflect.Type
	result   reflect.Type
	params   []paramInfo
	hasError bool
	implicit bool // zero-value construction of a struct or pointer to struct
}

// paramInfo describes a constructor parameter or a param object field
type paramInfo struct {
	typ      reflect.Type
	key      string      // From `key:"..."` tag
	optional bool        // From `optional:"true"` tag
	index    int         // Position in function parameters or struct field index
	isIn     bool        // Whether this is an In struct (expanded into multiple deps)
	inFields []paramInfo // Expanded fields if isIn is true
}

// fieldInfo describes an exported struct field tagged for injection
type fieldInfo struct {
	name  string
	index []int
	typ   reflect.Type
	key   string
}

// analyzeConstructor inspects a constructor function and extracts its
// dependencies and the single type it constructs.
func analyzeConstructor(constructor any) (*constructorInfo, error) {
	if constructor == nil {
		return nil, errors.New("constructor cannot be nil")
	}

	fnValue := reflect.ValueOf(constructor)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", fnType)
	}
	if fnType.IsVariadic() {
		return nil, errors.New("constructor cannot be variadic")
	}

	info := &constructorInfo{
		fn:     fnValue,
		fnType: fnType,
	}

	for i := 0; i < fnType.NumIn(); i++ {
		param, err := analyzeParam(fnType.In(i), i)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		info.params = append(info.params, param)
	}

	switch fnType.NumOut() {
	case 1:
		info.result = fnType.Out(0)
	case 2:
		if fnType.Out(1) != errorType {
			return nil, errors.New("second return value must be error")
		}
		info.result = fnType.Out(0)
		info.hasError = true
	default:
		return nil, fmt.Errorf("constructor must return (T) or (T, error), got %d return values", fnType.NumOut())
	}

	if info.result == errorType {
		return nil, errors.New("constructor must return a non-error value")
	}

	return info, nil
}

// implicitConstructor returns the zero-parameter constructor available for
// structs and pointers to structs.
func implicitConstructor(t reflect.Type) (*constructorInfo, bool) {
	switch {
	case t.Kind() == reflect.Struct:
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
	default:
		return nil, false
	}
	return &constructorInfo{result: t, implicit: true}, true
}

// arity counts the dependencies of a constructor, expanding param objects.
func (ci *constructorInfo) arity() int {
	n := 0
	for _, p := range ci.params {
		if p.isIn {
			n += len(p.inFields)
		} else {
			n++
		}
	}
	return n
}

// call invokes the constructor with resolved arguments.
func (ci *constructorInfo) call(args []reflect.Value) (reflect.Value, error) {
	if ci.implicit {
		if ci.result.Kind() == reflect.Pointer {
			return reflect.New(ci.result.Elem()), nil
		}
		return reflect.New(ci.result).Elem(), nil
	}

	results := ci.fn.Call(args)
	if ci.hasError && !results[1].IsNil() {
		return reflect.Value{}, results[1].Interface().(error)
	}
	return results[0], nil
}

// analyzeParam analyzes a single parameter type
func analyzeParam(t reflect.Type, index int) (paramInfo, error) {
	param := paramInfo{
		typ:   t,
		index: index,
	}

	if isInStruct(t) {
		param.isIn = true
		fields, err := expandInStruct(t)
		if err != nil {
			return param, err
		}
		param.inFields = fields
	}

	return param, nil
}

// isInStruct checks if a type embeds binder.In
func isInStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == inType {
			return true
		}
		if field.Anonymous && isInStruct(field.Type) {
			return true
		}
	}
	return false
}

// expandInStruct expands an In struct into its field dependencies
func expandInStruct(t reflect.Type) ([]paramInfo, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	var params []paramInfo

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous && (field.Type == inType || isInStruct(field.Type)) {
			continue
		}

		if !field.IsExported() {
			continue
		}

		param := paramInfo{
			typ:   field.Type,
			key:   field.Tag.Get("key"),
			index: i,
		}

		if tag := field.Tag.Get("optional"); strings.ToLower(tag) == "true" {
			param.optional = true
		}

		if isInStruct(field.Type) {
			return nil, fmt.Errorf("field %s: param objects cannot be nested", field.Name)
		}

		params = append(params, param)
	}

	return params, nil
}

// injectFields lists the fields of a struct (or pointer to struct) tagged
// with `inject`. The tag value, if any, is the binding key.
func injectFields(t reflect.Type) ([]fieldInfo, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}

	var fields []fieldInfo
	for _, field := range reflect.VisibleFields(t) {
		key, ok := field.Tag.Lookup("inject")
		if !ok {
			continue
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("field %s is tagged inject but is not exported", field.Name)
		}
		fields = append(fields, fieldInfo{
			name:  field.Name,
			index: field.Index,
			typ:   field.Type,
			key:   key,
		})
	}
	return fields, nil
}
