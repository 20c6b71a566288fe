// Package config loads session settings from fntrace.toml or fntrace.yaml.
//
//	[session]
//	max_depth = 8
//	on_sink_error = "abort"
//
//	[sink]
//	kind = "dir"
//	directory = "traces"
//	format = "msgpack"
//
//	[depths]
//	"calc.Fib" = 1
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"fntrace/internal/interceptor"
	"fntrace/internal/trace"
)

// FileNames are tried, in order, by Find.
var FileNames = []string{"fntrace.toml", "fntrace.yaml", "fntrace.yml"}

// File mirrors the on-disk layout.
type File struct {
	Session SessionConfig  `toml:"session" yaml:"session"`
	Sink    SinkConfig     `toml:"sink" yaml:"sink"`
	Depths  map[string]int `toml:"depths" yaml:"depths"`
}

// SessionConfig is the [session] table.
type SessionConfig struct {
	IncludeHidden bool   `toml:"include_hidden" yaml:"include_hidden"`
	MaxDepth      *int   `toml:"max_depth" yaml:"max_depth"`
	Strict        bool   `toml:"strict" yaml:"strict"`
	OnSinkError   string `toml:"on_sink_error" yaml:"on_sink_error"`
	OnAmbiguous   string `toml:"on_ambiguous" yaml:"on_ambiguous"`
}

// SinkConfig is the [sink] table.
type SinkConfig struct {
	Kind          string `toml:"kind" yaml:"kind"`     // stream, dir or ring
	Output        string `toml:"output" yaml:"output"` // stdout or stderr, stream only; unset keeps the session writer
	Directory     string `toml:"directory" yaml:"directory"`
	Prefix        string `toml:"prefix" yaml:"prefix"`
	Format        string `toml:"format" yaml:"format"`
	Color         string `toml:"color" yaml:"color"`
	MaxValueWidth int    `toml:"max_value_width" yaml:"max_value_width"`
	RingSize      int    `toml:"ring_size" yaml:"ring_size"`
}

// Settings is a validated File.
type Settings struct {
	IncludeHidden bool
	MaxDepth      int // negative is unbounded
	Strict        bool
	OnSinkError   interceptor.SinkErrorPolicy
	OnAmbiguous   interceptor.AmbiguityPolicy
	Depths        map[string]int
	Sink          trace.Config
}

// Find walks up from startDir looking for one of FileNames.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads and validates the file at path. The format follows the extension.
func Load(path string) (Settings, error) {
	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.DecodeFile(path, &f)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Settings{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
		}
		if meta.IsDefined("sink", "kind") && strings.TrimSpace(f.Sink.Kind) == "" {
			return Settings{}, fmt.Errorf("%s: empty [sink].kind", path)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("reading %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return Settings{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		return Settings{}, fmt.Errorf("%s: unsupported config extension %q", path, ext)
	}

	s, err := f.Settings()
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	if s.Sink.Directory != "" && !filepath.IsAbs(s.Sink.Directory) {
		s.Sink.Directory = filepath.Join(filepath.Dir(path), s.Sink.Directory)
	}
	return s, nil
}

// Settings validates f.
func (f *File) Settings() (Settings, error) {
	s := Settings{
		IncludeHidden: f.Session.IncludeHidden,
		MaxDepth:      -1,
		Strict:        f.Session.Strict,
		Depths:        make(map[string]int, len(f.Depths)),
	}
	if f.Session.MaxDepth != nil {
		if *f.Session.MaxDepth < 0 {
			return Settings{}, fmt.Errorf("[session].max_depth must be >= 0, got %d", *f.Session.MaxDepth)
		}
		s.MaxDepth = *f.Session.MaxDepth
	}

	var err error
	if s.OnSinkError, err = interceptor.ParseSinkErrorPolicy(f.Session.OnSinkError); err != nil {
		return Settings{}, err
	}
	if s.OnAmbiguous, err = interceptor.ParseAmbiguityPolicy(f.Session.OnAmbiguous); err != nil {
		return Settings{}, err
	}

	for name, d := range f.Depths {
		if d < 0 {
			return Settings{}, fmt.Errorf("[depths].%q must be >= 0, got %d", name, d)
		}
		s.Depths[name] = d
	}

	if s.Sink, err = f.Sink.traceConfig(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (c SinkConfig) traceConfig() (trace.Config, error) {
	mode, err := trace.ParseMode(c.Kind)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Format)
	if err != nil {
		return trace.Config{}, err
	}
	color, err := trace.ParseColorMode(c.Color)
	if err != nil {
		return trace.Config{}, err
	}
	if c.MaxValueWidth < 0 {
		return trace.Config{}, fmt.Errorf("[sink].max_value_width must be >= 0, got %d", c.MaxValueWidth)
	}

	cfg := trace.Config{
		Mode:      mode,
		Format:    format,
		Directory: c.Directory,
		Prefix:    c.Prefix,
		RingSize:  c.RingSize,
		Color:     color,
		MaxWidth:  c.MaxValueWidth,
	}
	switch mode {
	case trace.ModeDir:
		if strings.TrimSpace(c.Directory) == "" {
			return trace.Config{}, errors.New("[sink].directory is required when kind is \"dir\"")
		}
	case trace.ModeStream:
		switch strings.ToLower(c.Output) {
		case "":
			// left to the caller
		case "stdout":
			cfg.Output = os.Stdout
		case "stderr":
			cfg.Output = os.Stderr
		default:
			return trace.Config{}, fmt.Errorf("[sink].output must be stdout or stderr, got %q", c.Output)
		}
	}
	return cfg, nil
}
