// Package supplier enumerates traceable callables from a namespace or a type.
//
// Self-representation methods (String, GoString, Error, Format) are never
// supplied: the trace formatter calls them while rendering arguments, so
// tracing them would recurse without bound.
package supplier

import (
	"reflect"
	"runtime"
	"sort"
	"unicode"
	"unicode/utf8"
)

// Candidate is one supplied callable.
type Candidate struct {
	Name  string
	Value any
}

var selfRepresentation = map[string]bool{
	"String":   true,
	"GoString": true,
	"Error":    true,
	"Format":   true,
}

// Excluded reports whether name is a self-representation method.
func Excluded(name string) bool {
	return selfRepresentation[name]
}

// Hidden reports whether name signals non-public intent: a leading
// underscore or lowercase letter.
func Hidden(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r == '_' || unicode.IsLower(r)
}

// Namespace returns the functions and pointer values of ns, sorted by name.
// Other values are not callables and are left out.
func Namespace(ns map[string]any, includeHidden bool) []Candidate {
	out := make([]Candidate, 0, len(ns))
	for name, v := range ns {
		if Excluded(name) || (!includeHidden && Hidden(name)) || v == nil {
			continue
		}
		switch reflect.TypeOf(v).Kind() {
		case reflect.Func, reflect.Pointer:
			out = append(out, Candidate{Name: name, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Methods returns method expressions for the methods declared on typ and on
// *typ. A value-receiver method is supplied once, as T.M. Methods promoted
// from embedded fields belong to the embedded type and are skipped.
// Reflection only lists exported methods, so includeHidden has no effect
// beyond the underscore rule.
func Methods(typ reflect.Type, includeHidden bool) []Candidate {
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	var out []Candidate
	seen := make(map[string]bool)
	add := func(t reflect.Type) {
		for i := range t.NumMethod() {
			m := t.Method(i)
			if seen[m.Name] || Excluded(m.Name) || (!includeHidden && Hidden(m.Name)) {
				continue
			}
			seen[m.Name] = true
			if generated(m.Func) {
				continue
			}
			out = append(out, Candidate{Name: m.Name, Value: m.Func.Interface()})
		}
	}
	if typ.Kind() != reflect.Interface {
		add(typ)
		add(reflect.PointerTo(typ))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// generated reports whether fn is a compiler-emitted forwarding wrapper.
func generated(fn reflect.Value) bool {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return true
	}
	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}
