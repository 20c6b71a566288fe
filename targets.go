package fntrace

import (
	"errors"
	"fmt"
	"reflect"

	"fntrace/internal/patch"
	"fntrace/internal/registry"
	"fntrace/internal/supplier"
)

type instanceTarget struct{ v any }

type limitTarget struct {
	target     any
	additional int
}

type namespaceTarget struct{ ns map[string]any }

type methodsTarget struct{ typ reflect.Type }

type patchTarget struct{ ptr any }

// Instance marks v, a non-nil pointer whose type declares Call, Invoke or
// ServeHTTP, as a callable of its own. Other instances of the type stay
// untraced.
func Instance(v any) any {
	return instanceTarget{v: v}
}

// Limit traces target and at most additional levels of traced calls beneath
// it. Limit(f, 0) shows f alone.
func Limit(target any, additional int) any {
	return limitTarget{target: target, additional: additional}
}

// Namespace traces every function and operator instance in ns.
// Members whose name signals non-public intent need WithIncludeHidden.
func Namespace(ns map[string]any) any {
	return namespaceTarget{ns: ns}
}

// Methods traces the methods declared on T and *T, except String, GoString,
// Error and Format.
func Methods[T any]() any {
	return methodsTarget{typ: reflect.TypeFor[T]()}
}

// Patch traces calls made through the function variable *ptr by replacing
// it with a proxy for the session's lifetime. Stop restores it.
func Patch(ptr any) any {
	return patchTarget{ptr: ptr}
}

// expander registers session targets.
type expander struct {
	reg           *registry.Registry
	patches       *patch.Table
	includeHidden bool
	skipped       []error
}

func (x *expander) add(candidate any, opts ...registry.RegisterOption) {
	switch t := candidate.(type) {
	case instanceTarget:
		x.register(t.v, opts...)
	case limitTarget:
		x.add(t.target, append(opts, registry.WithDepth(t.additional))...)
	case namespaceTarget:
		for _, c := range supplier.Namespace(t.ns, x.includeHidden) {
			x.register(c.Value, opts...)
		}
	case methodsTarget:
		for _, c := range supplier.Methods(t.typ, x.includeHidden) {
			x.register(c.Value, opts...)
		}
	case patchTarget:
		x.patch(t.ptr, opts...)
	default:
		x.register(candidate, opts...)
	}
}

func (x *expander) register(candidate any, opts ...registry.RegisterOption) {
	if _, err := x.reg.Register(candidate, opts...); err != nil {
		x.skipped = append(x.skipped, err)
	}
}

func (x *expander) patch(ptr any, opts ...registry.RegisterOption) {
	pv := reflect.ValueOf(ptr)
	if pv.Kind() != reflect.Pointer || pv.IsNil() || pv.Elem().Kind() != reflect.Func || pv.Elem().IsNil() {
		x.skipped = append(x.skipped, &registry.ResolutionError{Candidate: fmt.Sprintf("%T", ptr), Reason: "Patch needs a pointer to a non-nil func variable"})
		return
	}
	// copy the func out of the variable: the proxy must not read it back once patched
	original := reflect.ValueOf(pv.Elem().Interface())
	if _, err := x.reg.Register(original.Interface(), opts...); err != nil {
		x.skipped = append(x.skipped, err)
		return
	}
	if err := x.patches.Add(ptr, wrapValue(original).Interface()); err != nil {
		x.skipped = append(x.skipped, err)
	}
}

// skippedErr joins the candidates that could not be registered.
func (x *expander) skippedErr() error {
	return errors.Join(x.skipped...)
}
