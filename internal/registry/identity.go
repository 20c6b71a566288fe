package registry

import (
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

// Identity is the comparable key of a traced callable.
// Function targets set Func only; operator-invoked instances set Recv and Inst.
type Identity struct {
	Func string       // symbol of the function body
	Recv reflect.Type // declaring type of an instance
	Inst uintptr      // instance address
}

// IsZero reports whether the identity names nothing.
func (id Identity) IsZero() bool {
	return id.Func == "" && id.Recv == nil && id.Inst == 0
}

// String renders the identity for diagnostics.
func (id Identity) String() string {
	if id.Recv != nil {
		return id.Recv.String() + "@" + hexAddr(id.Inst)
	}
	return id.Func
}

// FuncIdentity returns the identity of the function body named by symbol,
// as reported by runtime frames.
func FuncIdentity(symbol string) Identity {
	return Identity{Func: CanonicalSymbol(symbol)}
}

// InstanceIdentity returns the (type, address) identity of a pointer value.
func InstanceIdentity(v any) (Identity, bool) {
	if v == nil {
		return Identity{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return Identity{}, false
	}
	return Identity{Recv: rv.Type(), Inst: rv.Pointer()}, true
}

const (
	methodValueSuffix = "-fm"
	autogenerated     = "<autogenerated>"
)

// CanonicalSymbol maps compiler wrapper symbols back to the body they forward to.
// Bound method values are emitted as "pkg.(*T).M-fm"; the body is "pkg.(*T).M".
func CanonicalSymbol(symbol string) string {
	return strings.TrimSuffix(symbol, methodValueSuffix)
}

// ShortName drops the import path directory from a symbol:
// "example.com/x/calc.(*T).M" becomes "calc.(*T).M".
func ShortName(symbol string) string {
	// generic instantiations carry brackets that never contain a slash in runtime names
	if i := strings.LastIndexByte(symbol, '/'); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}

// funcSymbol resolves the symbol and source file of a func value's code pointer.
func funcSymbol(fn reflect.Value) (symbol string, file string, ok bool) {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return "", "", false
	}
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return "", "", false
	}
	file, _ = f.FileLine(f.Entry())
	return f.Name(), file, true
}

// pointerWrapperBody maps an autogenerated pointer-receiver wrapper
// "pkg.(*T).M" to the value-receiver body "pkg.T.M".
func pointerWrapperBody(symbol string) (string, bool) {
	open := strings.Index(symbol, ".(*")
	if open < 0 {
		return "", false
	}
	rest := symbol[open+3:]
	end := strings.Index(rest, ").")
	if end < 0 {
		return "", false
	}
	return symbol[:open] + "." + rest[:end] + rest[end+1:], true
}

func hexAddr(p uintptr) string {
	return "0x" + strconv.FormatUint(uint64(p), 16)
}
