package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// StreamSink writes events immediately to an io.Writer. Lines of different
// goroutines may interleave with each other but never within a line.
type StreamSink struct {
	mu        sync.Mutex
	w         io.Writer
	formatter Formatter
	dest      string
}

// NewStreamSink creates a new StreamSink and writes the formatter's
// preamble, if any.
func NewStreamSink(w io.Writer, formatter Formatter, session string) (*StreamSink, error) {
	if formatter == nil {
		formatter = &TextFormatter{}
	}
	st := &StreamSink{
		w:         w,
		formatter: formatter,
		dest:      describeWriter(w),
	}

	if p, ok := formatter.(Preambler); ok {
		data, err := p.Preamble(session)
		if err != nil {
			return nil, fmt.Errorf("trace preamble: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, &WriteError{Dest: st.dest, Err: err}
		}
	}
	return st, nil
}

// Emit writes an event to the output.
func (t *StreamSink) Emit(ev *Event) error {
	data, err := t.formatter.Format(ev)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(data); err != nil {
		return &WriteError{Dest: t.dest, Err: err}
	}
	return nil
}

// Flush ensures all buffered data is written.
func (t *StreamSink) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	// If writer has Flush method, call it
	if flusher, ok := t.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close flushes and closes the writer if it implements io.Closer.
// The process' standard streams are never closed.
func (t *StreamSink) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.w == os.Stdout || t.w == os.Stderr {
		return nil
	}
	if closer, ok := t.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func describeWriter(w io.Writer) string {
	switch w {
	case os.Stdout:
		return "stdout"
	case os.Stderr:
		return "stderr"
	}
	if f, ok := w.(*os.File); ok {
		return f.Name()
	}
	return fmt.Sprintf("%T", w)
}
