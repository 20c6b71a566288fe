package trace

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DirSink writes the events of each goroutine to its own file,
// <dir>/<prefix>-g<gid><ext>. A file is created (truncating any previous
// content) on the goroutine's first event and closed by Close.
type DirSink struct {
	mu        sync.Mutex
	dir       string
	prefix    string
	ext       string
	formatter Formatter
	session   string
	files     map[uint64]*goroutineFile
	closed    bool
}

type goroutineFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir, prefix, ext string, formatter Formatter, session string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trace dir: %w", err)
	}
	if prefix == "" {
		prefix = "trace"
	}
	if ext == "" {
		ext = FormatText.Ext()
	}
	if formatter == nil {
		formatter = &TextFormatter{}
	}
	return &DirSink{
		dir:       dir,
		prefix:    prefix,
		ext:       ext,
		formatter: formatter,
		session:   session,
		files:     make(map[uint64]*goroutineFile),
	}, nil
}

// PathFor returns the file used for goroutine gid.
func (s *DirSink) PathFor(gid uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-g%d%s", s.prefix, gid, s.ext))
}

// Emit appends ev to the file of its goroutine.
func (s *DirSink) Emit(ev *Event) error {
	data, err := s.formatter.Format(ev)
	if err != nil {
		return err
	}
	gf, err := s.fileFor(ev.GID)
	if err != nil {
		return err
	}

	gf.mu.Lock()
	defer gf.mu.Unlock()
	if gf.w == nil {
		return &WriteError{Dest: gf.path, Err: os.ErrClosed}
	}
	if _, err := gf.w.Write(data); err != nil {
		return &WriteError{Dest: gf.path, Err: err}
	}
	return nil
}

func (s *DirSink) fileFor(gid uint64) (*goroutineFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &WriteError{Dest: s.dir, Err: os.ErrClosed}
	}
	if gf, ok := s.files[gid]; ok {
		return gf, nil
	}

	path := s.PathFor(gid)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &WriteError{Dest: path, Err: err}
	}
	gf := &goroutineFile{path: path, f: f, w: bufio.NewWriter(f)}
	if p, ok := s.formatter.(Preambler); ok {
		data, err := p.Preamble(s.session)
		if err == nil {
			_, err = gf.w.Write(data)
		}
		if err != nil {
			_ = f.Close()
			return nil, &WriteError{Dest: path, Err: err}
		}
	}
	s.files[gid] = gf
	return gf, nil
}

// Paths returns the files opened so far, sorted.
func (s *DirSink) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for _, gf := range s.files {
		out = append(out, gf.path)
	}
	sort.Strings(out)
	return out
}

// Flush writes buffered data of every open file.
func (s *DirSink) Flush() error {
	var errs []error
	for _, gf := range s.snapshot() {
		gf.mu.Lock()
		if gf.w != nil {
			if err := gf.w.Flush(); err != nil {
				errs = append(errs, &WriteError{Dest: gf.path, Err: err})
			}
		}
		gf.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Close flushes and closes every file. Later events fail with os.ErrClosed.
func (s *DirSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for _, gf := range s.snapshot() {
		gf.mu.Lock()
		if gf.w != nil {
			if err := gf.w.Flush(); err != nil {
				errs = append(errs, &WriteError{Dest: gf.path, Err: err})
			}
			if err := gf.f.Close(); err != nil {
				errs = append(errs, &WriteError{Dest: gf.path, Err: err})
			}
			gf.w, gf.f = nil, nil
		}
		gf.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (s *DirSink) snapshot() []*goroutineFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*goroutineFile, 0, len(s.files))
	for _, gf := range s.files {
		out = append(out, gf)
	}
	return out
}
