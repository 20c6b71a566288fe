// Package trace holds the events emitted by the call interceptor and the
// sinks that render them.
//
// # Events
//
// Every traced invocation produces an enter event followed, at the same
// level, by exactly one exit or exception event:
//
//	- calc.Add(2, 3)
//	-> 5
//
// Nested calls are indented by one "|   " marker per level.
//
// # Sinks
//
// The package provides several sink implementations:
//
//   - Nop: discards everything
//   - StreamSink: writes each event immediately to one writer (stdout by default)
//   - DirSink: one file per goroutine under a directory
//   - RingSink: keeps the last N events in memory for post-mortem dumps
//   - MultiSink: fans out to several sinks
//
// # Formats
//
// Events are rendered as indented text, newline-delimited JSON, or msgpack
// records. Msgpack files can be decoded with ReadRecords and rendered later
// by the fntrace command.
//
//	sink, err := trace.New(trace.Config{Mode: trace.ModeDir, Directory: "traces"})
//	defer sink.Close()
package trace
