package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// Current record schema version - increment when Record changes.
const recordSchemaVersion uint16 = 1

const recordMagic = "fntrace"

// Header is the first msgpack value of every record file.
type Header struct {
	Magic   string `msgpack:"magic"`
	Schema  uint16 `msgpack:"schema"`
	Session string `msgpack:"session"`
}

// Record is the persisted form of an Event. Values are stored rendered.
type Record struct {
	Seq   uint64   `msgpack:"seq"`
	GID   uint64   `msgpack:"gid"`
	Kind  uint8    `msgpack:"kind"`
	Level uint32   `msgpack:"level"`
	Name  string   `msgpack:"name"`
	Args  []string `msgpack:"args,omitempty"`
	Value string   `msgpack:"value,omitempty"`
}

// MsgpackFormatter encodes events as self-delimiting msgpack records.
type MsgpackFormatter struct {
	MaxWidth int
}

// Preamble implements Preambler.
func (f *MsgpackFormatter) Preamble(session string) ([]byte, error) {
	return msgpack.Marshal(&Header{Magic: recordMagic, Schema: recordSchemaVersion, Session: session})
}

// Format implements Formatter.
func (f *MsgpackFormatter) Format(ev *Event) ([]byte, error) {
	rec, err := NewRecord(ev, f.MaxWidth)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&rec)
}

// NewRecord converts ev to its persisted form.
func NewRecord(ev *Event, maxWidth int) (Record, error) {
	level, err := safecast.Conv[uint32](ev.Level)
	if err != nil {
		return Record{}, fmt.Errorf("event level %d: %w", ev.Level, err)
	}
	rec := Record{
		Seq:   ev.Seq,
		GID:   ev.GID,
		Kind:  uint8(ev.Kind),
		Level: level,
		Name:  ev.Name,
	}
	rec.Args, rec.Value = renderPayload(ev, maxWidth)
	return rec, nil
}

// Event converts the record back into an Event whose values print verbatim.
func (r *Record) Event() (Event, error) {
	level, err := safecast.Conv[int](r.Level)
	if err != nil {
		return Event{}, fmt.Errorf("record level %d: %w", r.Level, err)
	}
	ev := Event{
		Seq:   r.Seq,
		GID:   r.GID,
		Kind:  Kind(r.Kind),
		Level: level,
		Name:  r.Name,
	}
	switch ev.Kind {
	case KindEnter:
		ev.Args = make([]any, len(r.Args))
		for i, a := range r.Args {
			ev.Args[i] = Rendered(a)
		}
	case KindExit:
		ev.Results = []any{Rendered(r.Value)}
	case KindException:
		ev.Panic = Rendered(r.Value)
	default:
		return Event{}, fmt.Errorf("record %d: unknown kind %d", r.Seq, r.Kind)
	}
	return ev, nil
}

// ErrNotRecordFile is returned when a stream does not start with a record header.
var ErrNotRecordFile = errors.New("not an fntrace record file")

// ReadRecords decodes a record file written with FormatMsgpack.
func ReadRecords(r io.Reader) (Header, []Event, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))

	var hdr Header
	if err := dec.Decode(&hdr); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %w", ErrNotRecordFile, err)
	}
	if hdr.Magic != recordMagic {
		return Header{}, nil, ErrNotRecordFile
	}
	if hdr.Schema != recordSchemaVersion {
		return hdr, nil, fmt.Errorf("unsupported record schema %d (want %d)", hdr.Schema, recordSchemaVersion)
	}

	var events []Event
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return hdr, events, nil
			}
			return hdr, events, fmt.Errorf("decode record %d: %w", len(events), err)
		}
		ev, err := rec.Event()
		if err != nil {
			return hdr, events, err
		}
		events = append(events, ev)
	}
}
