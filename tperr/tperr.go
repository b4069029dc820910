// Package tperr defines the typed error kinds shared across the
// tracepoint collection and decoding packages ( "Error Handling
// Design"). Every package-boundary failure is one of these kinds,
// wrapped with github.com/pkg/errors so callers can still walk the
// cause chain with errors.Cause/errors.Unwrap.
package tperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// InvalidArgument means caller-supplied data was malformed.
	InvalidArgument Kind = iota
	// NotFound means a schema or tracepoint was absent.
	NotFound
	// AlreadyExists means a duplicate registration was attempted.
	AlreadyExists
	// NotSupported means the operation is invalid for the current mode or state.
	NotSupported
	// OutOfMemory means an allocation failed.
	OutOfMemory
	// KernelError means an ioctl/mmap/open/read/write syscall failed.
	KernelError
	// InvalidFormat means a tracefs format file could not be parsed.
	InvalidFormat
	// InconsistentCommonType means the cache's common_type invariant was violated.
	InconsistentCommonType
	// CorruptEvent means a sample record was shorter than its sample mask requires.
	CorruptEvent
	// CorruptBuffer means a ring buffer's head/tail/record-size bookkeeping was impossible.
	CorruptBuffer
	// MissingMetadata means an EventHeader payload lacked its Metadata extension.
	MissingMetadata
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
 return "InvalidArgument"
	case NotFound:
 return "NotFound"
	case AlreadyExists:
 return "AlreadyExists"
	case NotSupported:
 return "NotSupported"
	case OutOfMemory:
 return "OutOfMemory"
	case KernelError:
 return "KernelError"
	case InvalidFormat:
 return "InvalidFormat"
	case InconsistentCommonType:
 return "InconsistentCommonType"
	case CorruptEvent:
 return "CorruptEvent"
	case CorruptBuffer:
 return "CorruptBuffer"
	case MissingMetadata:
 return "MissingMetadata"
	default:
 return "Unknown"
	}
}

// Error is the concrete error type returned at package boundaries.
type Error struct {
	Kind Kind
	Op string // the operation that failed, e.g. "tracefs.Cache.AddFromText"
	Err error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
 return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap lets errors.Is/errors.As (both stdlib and pkg/errors) see through to the cause.
func (e *Error) Unwrap() error { return e.Err }

// Cause matches the github.com/pkg/errors Causer interface.
func (e *Error) Cause() error { return e.Err }

// New builds an *Error under op, wrapping cause. cause may be nil, an
// error (used as the underlying cause), or a string (turned into a
// plain error message) — callers reach for whichever is already in
// hand at the failure site.
func New(kind Kind, op string, cause interface{}) *Error {
	switch c := cause.(type) {
	case nil:
 return &Error{Kind: kind, Op: op}
	case error:
 return &Error{Kind: kind, Op: op, Err: c}
	case string:
 return &Error{Kind: kind, Op: op, Err: errors.New(c)}
	default:
 return &Error{Kind: kind, Op: op, Err: errors.Errorf("%v", c)}
	}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// Is reports whether err is (or wraps) a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
 if te, ok := err.(*Error); ok {
 return te.Kind == kind
 }
 cause := errors.Unwrap(err)
 if cause == nil {
 return false
 }
 err = cause
	}
	return false
}
