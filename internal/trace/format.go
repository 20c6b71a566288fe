package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatText    Format = iota // indented human-readable text
	FormatNDJSON                // newline-delimited JSON
	FormatMsgpack               // msgpack records, see ReadRecords
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatNDJSON:
		return "ndjson"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// Ext returns the file extension used for per-goroutine files.
func (f Format) Ext() string {
	switch f {
	case FormatNDJSON:
		return ".ndjson"
	case FormatMsgpack:
		return ".fntr"
	default:
		return ".log"
	}
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	case "msgpack", "mp", "fntr":
		return FormatMsgpack, nil
	default:
		return FormatText, fmt.Errorf("invalid trace format: %q (expected: text|ndjson|msgpack)", s)
	}
}

// Formatter renders one event to bytes. Implementations must be safe for
// concurrent use.
type Formatter interface {
	Format(ev *Event) ([]byte, error)
}

// Preambler is implemented by formatters that start every output with a header.
type Preambler interface {
	Preamble(session string) ([]byte, error)
}

// DefaultIndent is the marker repeated once per nesting level.
const DefaultIndent = "|   "

// TextFormatter renders the indented trace log format:
//
//	<indent>- name(arg1, arg2, kw=val)
//	<indent>-> value
//	<indent>-> !! panic value
type TextFormatter struct {
	Indent   string   // defaults to DefaultIndent
	MaxWidth int      // per-value truncation in terminal cells, 0 = unlimited
	Palette  *Palette // nil = no color
}

// ExceptionMarker prefixes the value of exception lines.
const ExceptionMarker = "!! "

// Format implements Formatter.
func (f *TextFormatter) Format(ev *Event) ([]byte, error) {
	var p Palette
	if f.Palette != nil {
		p = *f.Palette
	}
	indent := f.Indent
	if indent == "" {
		indent = DefaultIndent
	}

	var sb strings.Builder
	if ev.Level > 0 {
		sb.WriteString(paint(p.Indent, strings.Repeat(indent, ev.Level)))
	}
	switch ev.Kind {
	case KindEnter:
		sb.WriteString("- ")
		sb.WriteString(paint(p.Name, ev.Name))
		sb.WriteByte('(')
		sb.WriteString(ReprList(ev.Args, f.MaxWidth))
		sb.WriteByte(')')
	case KindExit:
		sb.WriteString("-> ")
		sb.WriteString(paint(p.Value, ReprResults(ev.Results, f.MaxWidth)))
	case KindException:
		sb.WriteString("-> ")
		sb.WriteString(paint(p.Exception, ExceptionMarker+truncate(Repr(ev.Panic), f.MaxWidth)))
	default:
		return nil, fmt.Errorf("cannot format event kind %v", ev.Kind)
	}
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// NDJSONFormatter renders one JSON object per line.
type NDJSONFormatter struct {
	MaxWidth int
}

type jsonEvent struct {
	Seq   uint64   `json:"seq"`
	GID   uint64   `json:"gid,omitempty"`
	Kind  string   `json:"kind"`
	Level int      `json:"level"`
	Name  string   `json:"name"`
	Args  []string `json:"args,omitempty"`
	Value string   `json:"value,omitempty"`
}

// Format implements Formatter.
func (f *NDJSONFormatter) Format(ev *Event) ([]byte, error) {
	j := jsonEvent{
		Seq:   ev.Seq,
		GID:   ev.GID,
		Kind:  ev.Kind.String(),
		Level: ev.Level,
		Name:  ev.Name,
	}
	j.Args, j.Value = renderPayload(ev, f.MaxWidth)

	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// renderPayload renders the arguments of an enter event, or the value of an
// exit/exception event.
func renderPayload(ev *Event, maxWidth int) ([]string, string) {
	switch ev.Kind {
	case KindEnter:
		args := make([]string, len(ev.Args))
		for i, a := range ev.Args {
			args[i] = truncate(Repr(a), maxWidth)
		}
		return args, ""
	case KindExit:
		return nil, ReprResults(ev.Results, maxWidth)
	case KindException:
		return nil, truncate(Repr(ev.Panic), maxWidth)
	}
	return nil, ""
}

// NewFormatter returns the built-in formatter for format.
func NewFormatter(format Format, maxWidth int, palette *Palette) Formatter {
	switch format {
	case FormatNDJSON:
		return &NDJSONFormatter{MaxWidth: maxWidth}
	case FormatMsgpack:
		return &MsgpackFormatter{MaxWidth: maxWidth}
	default:
		return &TextFormatter{MaxWidth: maxWidth, Palette: palette}
	}
}
