package fntrace

import (
	"reflect"
	"runtime"

	"fntrace/internal/callstack"
	"fntrace/internal/interceptor"
)

// Call is an in-flight traced invocation opened by Enter or EnterOn.
// A nil *Call is valid and does nothing.
type Call struct {
	in   *interceptor.Interceptor
	link callstack.Link
}

// Enter reports a call boundary for the calling function. It is meant to be
// the first statement of a traced function, deferred together with Return:
//
//	func Add(a, b int) (r int) {
//		defer fntrace.Enter(a, b).Return(&r)
//		return a + b
//	}
//
// Without an active session, or when the caller is not a target, Enter
// returns nil.
func Enter(args ...any) *Call {
	in := interceptor.Current()
	if in == nil {
		return nil
	}
	return enter(in, nil, args)
}

// EnterOn is Enter for an operator method (Call, Invoke, ServeHTTP) whose
// receiver may be registered as an Instance.
func EnterOn(recv any, args ...any) *Call {
	in := interceptor.Current()
	if in == nil {
		return nil
	}
	return enter(in, recv, args)
}

func enter(in *interceptor.Interceptor, recv any, args []any) *Call {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return nil
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return nil
	}
	link := in.Call(interceptor.CallBoundary{Func: fn.Name(), Recv: recv, Args: args})
	if link == 0 {
		return nil
	}
	return &Call{in: in, link: link}
}

// Return reports the return boundary. It must be deferred directly, since it
// observes a panicking return with recover and then re-panics with the same
// value. results are pointers to the function's named results.
func (c *Call) Return(results ...any) {
	if c == nil {
		return
	}
	if r := recover(); r != nil {
		c.in.Exception(0, c.link, r)
		c.in.Return(0, c.link, nil)
		panic(r)
	}
	c.in.Return(0, c.link, deref(results))
}

func deref(results []any) []any {
	if len(results) == 0 {
		return nil
	}
	out := make([]any, len(results))
	for i, p := range results {
		rv := reflect.ValueOf(p)
		if rv.Kind() == reflect.Pointer && !rv.IsNil() {
			out[i] = rv.Elem().Interface()
		} else {
			out[i] = p
		}
	}
	return out
}
