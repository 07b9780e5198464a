package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies scheduler failures for recovery decisions
type ErrorKind int

const (
	// ErrorKindUnknown - unclassified failure
	ErrorKindUnknown ErrorKind = iota

	// ErrorKindInterpreterTimeout - interpreter call exceeded its deadline.
	// Retried exactly once; a second timeout is terminal for the turn.
	ErrorKindInterpreterTimeout

	// ErrorKindInterpreterMalformed - interpreter reply could not be trusted.
	// Degrades to an implicit "please rephrase" followup; no partial state kept.
	ErrorKindInterpreterMalformed

	// ErrorKindProposalInvalid - proposal not well-formed for its type.
	// Reported synchronously; nothing is committed.
	ErrorKindProposalInvalid

	// ErrorKindPolicyViolation - attempt to replace an anchor commitment.
	// Reported; no mutation performed.
	ErrorKindPolicyViolation
)

// String returns a human-readable kind name
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInterpreterTimeout:
		return "interpreter_timeout"
	case ErrorKindInterpreterMalformed:
		return "interpreter_malformed"
	case ErrorKindProposalInvalid:
		return "proposal_invalid"
	case ErrorKindPolicyViolation:
		return "policy_violation"
	default:
		return "unknown"
	}
}

// SchedulerError wraps failures with classification. Nothing in the engine is
// fatal to the process: every path returns a reportable error instead of
// panicking.
type SchedulerError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SchedulerError) Unwrap() error {
	return e.Cause
}

// NewPolicyViolation builds an anchor-protection error
func NewPolicyViolation(format string, args ...any) *SchedulerError {
	return &SchedulerError{Kind: ErrorKindPolicyViolation, Message: fmt.Sprintf(format, args...)}
}

// NewProposalInvalid builds a validation error
func NewProposalInvalid(format string, args ...any) *SchedulerError {
	return &SchedulerError{Kind: ErrorKindProposalInvalid, Message: fmt.Sprintf(format, args...)}
}

// NewInterpreterTimeout wraps a deadline failure from the interpreter boundary
func NewInterpreterTimeout(cause error) *SchedulerError {
	return &SchedulerError{Kind: ErrorKindInterpreterTimeout, Message: "interpreter call timed out", Cause: cause}
}

// NewInterpreterMalformed wraps an untrusted interpreter reply
func NewInterpreterMalformed(cause error) *SchedulerError {
	return &SchedulerError{Kind: ErrorKindInterpreterMalformed, Message: "interpreter response malformed", Cause: cause}
}

// KindOf extracts the classification from an error chain
func KindOf(err error) ErrorKind {
	var se *SchedulerError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorKindUnknown
}
