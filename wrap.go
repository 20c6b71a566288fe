package fntrace

import (
	"errors"
	"reflect"

	"fntrace/internal/interceptor"
	"fntrace/internal/registry"
)

// ErrGoexit is the exception value reported when a proxied call ends through
// runtime.Goexit.
var ErrGoexit = errors.New("runtime.Goexit")

// Wrap returns a proxy for fn that reports its boundaries to the active
// session, if any, and forwards to fn. fn itself must be a target.
// Calls fn makes to itself directly bypass the proxy. If fn also carries an
// Enter marker, the proxy's call and the marker's call are one invocation and
// are traced once.
func Wrap[F any](fn F) F {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fn
	}
	return wrapValue(v).Interface().(F)
}

func wrapValue(fn reflect.Value) reflect.Value {
	// detach from any addressable variable fn may have been read from
	fn = reflect.ValueOf(fn.Interface())
	symbol, _ := registry.BodySymbol(fn)
	typ := fn.Type()
	variadic := typ.IsVariadic()

	forward := func(args []reflect.Value) []reflect.Value {
		if variadic {
			return fn.CallSlice(args)
		}
		return fn.Call(args)
	}

	return reflect.MakeFunc(typ, func(args []reflect.Value) (results []reflect.Value) {
		in := interceptor.Current()
		if in == nil {
			return forward(args)
		}
		link := in.Call(interceptor.CallBoundary{Func: symbol, Args: interfaces(args, variadic), Proxy: true})
		if link == 0 {
			return forward(args)
		}

		completed := false
		defer func() {
			if completed {
				return
			}
			r := recover()
			if r == nil {
				in.Exception(0, link, ErrGoexit)
				in.Return(0, link, nil)
				return
			}
			in.Exception(0, link, r)
			in.Return(0, link, nil)
			panic(r)
		}()

		results = forward(args)
		completed = true
		in.Return(0, link, interfaces(results, false))
		return results
	})
}

// interfaces unpacks reflect values; a trailing variadic slice is flattened.
func interfaces(vals []reflect.Value, variadic bool) []any {
	n := len(vals)
	if variadic && n > 0 {
		n--
	}
	out := make([]any, 0, len(vals))
	for _, v := range vals[:n] {
		out = append(out, v.Interface())
	}
	if n < len(vals) {
		rest := vals[n]
		for i := range rest.Len() {
			out = append(out, rest.Index(i).Interface())
		}
	}
	return out
}
