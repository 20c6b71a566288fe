package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Sink consumes trace events.
type Sink interface {
	// Emit renders and writes an event. It runs synchronously on the
	// goroutine that crossed the boundary and must be goroutine-safe.
	Emit(ev *Event) error

	// Flush ensures all buffered events are written.
	Flush() error

	// Close flushes and releases resources.
	Close() error
}

// Mode determines where events go.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // one writer, stdout by default
	ModeDir                    // one file per goroutine
	ModeRing                   // in-memory circular buffer
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeDir:
		return "dir"
	case ModeRing:
		return "ring"
	default:
		return "unknown"
	}
}

// ParseMode converts a string to Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "stream", "stdout":
		return ModeStream, nil
	case "dir", "file", "directory":
		return ModeDir, nil
	case "ring":
		return ModeRing, nil
	default:
		return ModeStream, fmt.Errorf("invalid sink mode: %q (expected: stream|dir|ring)", s)
	}
}

// Config holds sink configuration.
type Config struct {
	Mode      Mode
	Format    Format
	Formatter Formatter // overrides Format when set
	Output    io.Writer // for stream mode (if nil, stdout)
	Directory string    // for dir mode
	Prefix    string    // per-goroutine file name prefix (default "trace")
	RingSize  int       // for ring mode (default 4096)
	Color     ColorMode // text format only
	MaxWidth  int       // per-value truncation, 0 = unlimited
	Session   string    // written into record headers
}

// New creates a Sink based on Config.
func New(cfg Config) (Sink, error) {
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}

	switch cfg.Mode {
	case ModeStream:
		w := cfg.Output
		if w == nil {
			w = os.Stdout
		}
		return NewStreamSink(w, formatterFor(cfg, w), cfg.Session)

	case ModeDir:
		if cfg.Directory == "" {
			return nil, fmt.Errorf("dir sink: no directory configured")
		}
		// files are never terminals
		return NewDirSink(cfg.Directory, cfg.Prefix, cfg.Format.Ext(), formatterFor(cfg, nil), cfg.Session)

	case ModeRing:
		return NewRingSink(cfg.RingSize), nil

	default:
		return nil, fmt.Errorf("unknown sink mode: %v", cfg.Mode)
	}
}

func formatterFor(cfg Config, w io.Writer) Formatter {
	if cfg.Formatter != nil {
		return cfg.Formatter
	}
	var palette *Palette
	if cfg.Format == FormatText && w != nil && cfg.Color.Enabled(w) {
		palette = NewPalette(true)
	}
	return NewFormatter(cfg.Format, cfg.MaxWidth, palette)
}
