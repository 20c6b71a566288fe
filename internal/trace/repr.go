package trace

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// Repr renders one value the way it appears in a trace line.
// Strings are quoted, errors show their dynamic type, Stringers use String,
// composite values use Go syntax.
func Repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case Named:
		return x.Name + "=" + Repr(x.Value)
	case Rendered:
		return string(x)
	case string:
		return strconv.Quote(x)
	case []byte:
		return fmt.Sprintf("[]byte(%q)", x)
	case error:
		return fmt.Sprintf("%T(%q)", x, x.Error())
	case fmt.Stringer:
		return x.String()
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v)
	default:
		return fmt.Sprintf("%#v", v)
	}
}

// ReprList renders values separated by ", ", truncating each to maxWidth
// terminal cells when maxWidth > 0.
func ReprList(values []any, maxWidth int) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(truncate(Repr(v), maxWidth))
	}
	return sb.String()
}

// ReprResults renders return values: "()" for none, the bare value for one,
// a parenthesized list otherwise.
func ReprResults(results []any, maxWidth int) string {
	switch len(results) {
	case 0:
		return "()"
	case 1:
		return truncate(Repr(results[0]), maxWidth)
	default:
		return "(" + ReprList(results, maxWidth) + ")"
	}
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, ellipsis)
}
