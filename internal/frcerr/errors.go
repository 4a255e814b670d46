// Package frcerr defines the error taxonomy shared by the supervisor, the
// config store and the orchestrator.
package frcerr

import (
	"errors"
	"fmt"
)

// Kind categorizes errors for handling strategy
type Kind int

const (
	KindUnknown            Kind = iota
	KindSpawnFailure            // Child could not be started, fatal
	KindUnsupportedRuntime      // Ceiling requested for a runtime that cannot take it
	KindConfigReadCorrupt       // State file unreadable or malformed, treated as empty
	KindConfigWriteFailure      // State file could not be written, run result unaffected
	KindUnknownRuntime          // Command does not map to a known runtime
)

func (k Kind) String() string {
	switch k {
	case KindSpawnFailure:
		return "spawn_failure"
	case KindUnsupportedRuntime:
		return "unsupported_runtime"
	case KindConfigReadCorrupt:
		return "config_read_corrupt"
	case KindConfigWriteFailure:
		return "config_write_failure"
	case KindUnknownRuntime:
		return "unknown_runtime"
	default:
		return "unknown"
	}
}

// Error wraps errors with context and categorization
type Error struct {
	Kind    Kind
	Op      string // "spawn", "load", "save", "inject", ...
	Path    string // command or file the operation touched
	Message string
	Err     error
}

// Error implements error interface
func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a categorized error
func New(kind Kind, op, path string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Newf creates a categorized error with a formatted message and no cause
func Newf(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the Kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err's chain carries an *Error of the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
