package calendar

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification. Every *Error matches exactly
// one of these through errors.Is.
var (
	ErrOutOfRange            = errors.New("out of range")
	ErrMalformedReference    = errors.New("malformed reference")
	ErrAmbiguousTermBoundary = errors.New("ambiguous solar term boundary")
	ErrInvalidDate           = errors.New("invalid date")
)

// ErrorKind is a coarse-grained categorization for calendar errors.
type ErrorKind string

const (
	KindOutOfRange            ErrorKind = "out_of_range"
	KindMalformedReference    ErrorKind = "malformed_reference"
	KindAmbiguousTermBoundary ErrorKind = "ambiguous_term_boundary"
	KindInvalidDate           ErrorKind = "invalid_date"
)

// Error wraps a failure with the operation that produced it and a kind.
type Error struct {
	Op     string
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Detail != "" {
		base += ": " + e.Detail
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return sentinelFor(e.Kind) == target
}

// IsKind helps callers classify errors without matching on strings.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindOutOfRange:
		return ErrOutOfRange
	case KindMalformedReference:
		return ErrMalformedReference
	case KindAmbiguousTermBoundary:
		return ErrAmbiguousTermBoundary
	case KindInvalidDate:
		return ErrInvalidDate
	default:
		return nil
	}
}

func outOfRange(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindOutOfRange, Detail: fmt.Sprintf(format, args...)}
}

func invalidDate(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindInvalidDate, Detail: fmt.Sprintf(format, args...)}
}

func malformedReference(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindMalformedReference, Detail: fmt.Sprintf(format, args...)}
}
