// Package nperr defines the shared error taxonomy used across the
// perception and routing packages: a fixed set of error kinds plus a
// structured context (component, frame size, queue length, severity)
// attached to every surfaced failure.
package nperr

import (
	"errors"
	"fmt"

	"nightpath/internal/monitoring"
)

// Kind enumerates the error taxonomy. Kinds are not Go types — a single
// Kind is carried as structured data inside a Error value so callers can
// classify with errors.Is against the matching sentinel below.
type Kind int

const (
	KindInvalidArgument Kind = iota
	KindLimitExceeded
	KindTimeout
	KindNoRoute
	KindQueueDropped
	KindTransient
	KindFatal
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindLimitExceeded:
		return "LimitExceeded"
	case KindTimeout:
		return "Timeout"
	case KindNoRoute:
		return "NoRoute"
	case KindQueueDropped:
		return "QueueDropped"
	case KindTransient:
		return "TransientProcessingError"
	case KindFatal:
		return "Fatal"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per kind, so callers can classify with errors.Is
// without reaching into the Error struct.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLimitExceeded   = errors.New("limit exceeded")
	ErrTimeout         = errors.New("timeout")
	ErrNoRoute         = errors.New("no route")
	ErrQueueDropped    = errors.New("queue dropped")
	ErrTransient       = errors.New("transient processing error")
	ErrFatal           = errors.New("fatal")
	ErrCancelled       = errors.New("cancelled")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindLimitExceeded:
		return ErrLimitExceeded
	case KindTimeout:
		return ErrTimeout
	case KindNoRoute:
		return ErrNoRoute
	case KindQueueDropped:
		return ErrQueueDropped
	case KindTransient:
		return ErrTransient
	case KindFatal:
		return ErrFatal
	case KindCancelled:
		return ErrCancelled
	default:
		return errors.New("unknown error kind")
	}
}

// Error carries the structured context every surfaced failure needs:
// which component raised it, the frame dimensions and queue length in
// effect at the time (zero when not applicable), a human-readable
// message, and a severity grade for log filtering.
type Error struct {
	Kind        Kind
	Component   string
	Message     string
	FrameWidth  int
	FrameHeight int
	QueueLength int
	Severity    monitoring.Severity
	Underlying  error
}

func (e *Error) Error() string {
	var context string
	if e.FrameWidth > 0 || e.FrameHeight > 0 {
		context = fmt.Sprintf(" [component=%s frame=%dx%d queue=%d]", e.Component, e.FrameWidth, e.FrameHeight, e.QueueLength)
	} else {
		context = fmt.Sprintf(" [component=%s]", e.Component)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s%s: %v", e.Kind, e.Message, context, e.Underlying)
	}
	return fmt.Sprintf("%s: %s%s", e.Kind, e.Message, context)
}

// Is reports whether err is, or wraps, a structured Error of the given
// kind. Prefer this over errors.Is with a sentinel when the caller only
// has a Kind, not the package-level Err* variable.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return errors.Is(err, sentinelFor(kind))
}

func (e *Error) Unwrap() error {
	if e.Underlying != nil {
		return e.Underlying
	}
	return sentinelFor(e.Kind)
}

// Is makes errors.Is match the kind's sentinel even when Unwrap yields an
// underlying cause instead.
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// New builds a structured Error for the given kind and component.
func New(kind Kind, component, message string) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Severity: defaultSeverity(kind)}
}

// Wrap builds a structured Error wrapping an underlying cause.
func Wrap(kind Kind, component, message string, cause error) *Error {
	e := New(kind, component, message)
	e.Underlying = cause
	return e
}

// WithFrame attaches frame dimensions and queue length context, returning
// the same *Error for chaining.
func (e *Error) WithFrame(width, height, queueLength int) *Error {
	e.FrameWidth = width
	e.FrameHeight = height
	e.QueueLength = queueLength
	return e
}

func defaultSeverity(k Kind) monitoring.Severity {
	switch k {
	case KindTransient, KindQueueDropped:
		return monitoring.SeverityWarning
	case KindFatal:
		return monitoring.SeverityCritical
	case KindInvalidArgument, KindLimitExceeded, KindTimeout, KindNoRoute, KindCancelled:
		return monitoring.SeverityError
	default:
		return monitoring.SeverityError
	}
}
