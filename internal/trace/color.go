package trace

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ColorMode controls ANSI coloring of text output.
type ColorMode uint8

const (
	ColorAuto ColorMode = iota // color when writing to a terminal
	ColorOn
	ColorOff
)

// String returns the string representation of ColorMode.
func (m ColorMode) String() string {
	switch m {
	case ColorAuto:
		return "auto"
	case ColorOn:
		return "on"
	case ColorOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseColorMode converts a string to a ColorMode.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "on", "always", "true":
		return ColorOn, nil
	case "off", "never", "false":
		return ColorOff, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode: %q (expected: auto|on|off)", s)
	}
}

// Enabled resolves the mode against the destination writer.
func (m ColorMode) Enabled(w io.Writer) bool {
	switch m {
	case ColorOn:
		return true
	case ColorOff:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Palette colors the parts of a text trace line.
type Palette struct {
	Indent    *color.Color
	Name      *color.Color
	Value     *color.Color
	Exception *color.Color
}

// NewPalette returns the default palette, forced on or off.
func NewPalette(enabled bool) *Palette {
	p := &Palette{
		Indent:    color.New(color.Faint),
		Name:      color.New(color.FgCyan, color.Bold),
		Value:     color.New(color.FgGreen),
		Exception: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.Indent, p.Name, p.Value, p.Exception} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func paint(c *color.Color, s string) string {
	if c == nil || s == "" {
		return s
	}
	return c.Sprint(s)
}
