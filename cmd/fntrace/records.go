package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"fntrace/internal/trace"
)

// recordFile is one decoded record file. Err is set instead of failing the
// whole load so that check can report every file.
type recordFile struct {
	Path   string
	Header trace.Header
	Events []trace.Event
	Err    error
}

// expandPaths replaces directories by the record files directly inside them.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*"+trace.FormatMsgpack.Ext()))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: no %s files", arg, trace.FormatMsgpack.Ext())
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// loadRecordFiles decodes files in parallel, at most jobs at a time.
// Results keep the order of paths.
func loadRecordFiles(ctx context.Context, paths []string, jobs int) ([]recordFile, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	files := make([]recordFile, len(paths))
	if len(paths) == 0 {
		return files, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			files[i] = readRecordFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func readRecordFile(path string) recordFile {
	rf := recordFile{Path: path}
	f, err := os.Open(path)
	if err != nil {
		rf.Err = err
		return rf
	}
	defer f.Close()

	rf.Header, rf.Events, rf.Err = trace.ReadRecords(f)
	return rf
}

// firstLoadError returns the first file error, annotated with its path.
func firstLoadError(files []recordFile) error {
	for _, f := range files {
		if f.Err != nil {
			return fmt.Errorf("%s: %w", f.Path, f.Err)
		}
	}
	return nil
}
