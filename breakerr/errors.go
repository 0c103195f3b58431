// Package breakerr defines the error kinds shared across the PCG-Breaker
// core so that a single top-level sink can translate a failure into an
// exit code without inspecting package-specific error types.
package breakerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the fatal error categories the core can surface.
type Kind int

const (
	// KindIO covers open/read/write failures against table.bin or stdin/stdout.
	KindIO Kind = iota
	// KindCorruptTable covers bad magic, bad version, or out-of-range offsets.
	KindCorruptTable
	// KindMalformedInput covers an unparseable observation line or word.
	KindMalformedInput
	// KindInconsistent covers a candidate set that collapsed to empty.
	KindInconsistent
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindCorruptTable:
		return "corrupt-table"
	case KindMalformedInput:
		return "malformed-input"
	case KindInconsistent:
		return "inconsistent-observation"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged, wrapped error. The cause is wrapped with
// github.com/pkg/errors, which records a stack trace at the point the
// Kind was first attached; that trace is reachable through Unwrap.
// Error has no Format method, so printing an *Error with %+v prints
// only the kind and the cause's message, not the trace.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Wrap attaches kind to err with the given context message, matching the
// teacher's errors.Wrap call-site style.
func Wrap(kind Kind, err error, context string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(err, context)}
}

// Wrapf is Wrap with a formatted context message.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrapf(err, format, args...)}
}

// New creates a Kind-tagged error from a message, no underlying cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, cause: errors.New(message)}
}

// As extracts the Kind from err if it (or something it wraps) is an *Error.
// Unrecognized errors, such as a raw syscall error or a command-line
// parsing error returned by the CLI library, are reported as KindIO.
func As(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindIO
}

// ExitCode maps a Kind to the process exit status named in spec.md §7.
// Every non-nil error here is non-zero; only a clean EOF or a completed
// recovery uses 0, and those paths never call ExitCode.
func ExitCode(kind Kind) int {
	switch kind {
	case KindIO:
		return 1
	case KindCorruptTable:
		return 2
	case KindMalformedInput:
		return 3
	case KindInconsistent:
		return 4
	default:
		return 1
	}
}
