package qbf

import "github.com/pkg/errors"

// ParseError wraps a malformed-input failure: an undefined reference,
// a duplicate variable, or an out-of-range block index surfaced by
// circuit.Build (spec §7).
type ParseError struct{ cause error }

func newParseError(cause error) *ParseError { return &ParseError{cause: errors.WithStack(cause)} }

func (e *ParseError) Error() string { return "qbf: parse error: " + e.cause.Error() }
func (e *ParseError) Unwrap() error { return e.cause }

// ResourceExhausted reports that CEGAR ran out of fresh gate
// variables. Per spec §7 this is never fatal on its own: the caller
// disables CEGAR and continues, logging one warning.
type ResourceExhausted struct{ cause error }

func newResourceExhausted(cause error) *ResourceExhausted {
	return &ResourceExhausted{cause: errors.WithStack(cause)}
}

func (e *ResourceExhausted) Error() string { return "qbf: CEGAR resource exhausted: " + e.cause.Error() }
func (e *ResourceExhausted) Unwrap() error { return e.cause }

// Timeout reports that the context was cancelled or its deadline
// exceeded before the search driver reached a terminal sequent.
type Timeout struct{ cause error }

func newTimeout(cause error) *Timeout { return &Timeout{cause: errors.WithStack(cause)} }

func (e *Timeout) Error() string { return "qbf: timed out: " + e.cause.Error() }
func (e *Timeout) Unwrap() error { return e.cause }

// InternalInvariant marks an assertion failure that should never
// surface in production (spec §7): the search driver exhausted every
// decision candidate without deriving a terminal sequent, or a
// terminal sequent carried a non-constant answer formula outside
// free-variable mode. The caller traps the process immediately via
// logrus.Panic rather than returning this to a retryable caller.
type InternalInvariant struct{ cause error }

func newInternalInvariant(cause error) *InternalInvariant {
	return &InternalInvariant{cause: errors.WithStack(cause)}
}

func (e *InternalInvariant) Error() string { return "qbf: internal invariant violated: " + e.cause.Error() }
func (e *InternalInvariant) Unwrap() error { return e.cause }
