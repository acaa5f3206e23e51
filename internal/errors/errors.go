// Package errors provides domain-specific error types for mddump.
//
// These types carry structured context (stream type, container offset)
// that lets the dump orchestrator decide between "stream absent, carry on"
// and "stream broken, count it", and gives better diagnostics than plain
// string wrapping.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrStreamNotFound reports that the directory carries no stream of
	// the requested type. For optional streams this is not a failure.
	ErrStreamNotFound = errors.New("stream not present in directory")
)

// ── Structured error types ───────────────────────────────────────────

// FormatError represents a malformed container: a header, directory, or
// record that could not be decoded at a known offset.
type FormatError struct {
	Offset uint64 // container offset where decoding failed
	What   string // what was being decoded: "header", "stream directory", ...
	Err    error  // underlying error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("minidump format: %s at offset 0x%x: %v", e.What, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// StreamError represents a stream that is present in the directory but
// could not be read or decoded.
type StreamError struct {
	StreamType uint32
	Name       string // conventional stream name, e.g. "MD_MODULE_LIST_STREAM"
	Err        error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s (0x%x): %v", e.Name, e.StreamType, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// UsageError represents invalid command line input. It maps to exit
// status 1 with usage text on stderr, separately from dump errors.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// ── Classification helpers ───────────────────────────────────────────

// IsNotFound reports whether err means a stream is simply absent, as
// opposed to present but unreadable.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStreamNotFound)
}

// IsUsage reports whether err is a command line usage error.
func IsUsage(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }
