// Package simerr defines the error kinds the transient core can raise.
//
// Recoverable kinds (SingularMatrix, LcpFailure) are caught inside the step
// loop and translated into step-size reductions; fatal kinds
// (StepTooSmall, NonFinite) abort the run and surface the partial result.
// BadNetlist is raised by element construction/preprocessing, before any
// stepping starts. Cancelled is a clean stop, not a failure.
package simerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure so callers can decide whether to retry with a
// smaller step or give up.
type Kind int

const (
	KindNone Kind = iota
	KindBadNetlist
	KindSingularMatrix
	KindLcpFailure
	KindStepTooSmall
	KindNonFinite
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindBadNetlist:
		return "BadNetlist"
	case KindSingularMatrix:
		return "SingularMatrix"
	case KindLcpFailure:
		return "LcpFailure"
	case KindStepTooSmall:
		return "StepTooSmall"
	case KindNonFinite:
		return "NonFinite"
	case KindCancelled:
		return "Cancelled"
	default:
		return "None"
	}
}

// Recoverable reports whether the step loop should shrink h and retry
// instead of aborting the run.
func (k Kind) Recoverable() bool {
	return k == KindSingularMatrix || k == KindLcpFailure
}

type kindError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return e.kind.String() + ": " + e.msg + ": " + e.cause.Error()
	}
	return e.kind.String() + ": " + e.msg
}

func (e *kindError) Unwrap() error { return e.cause }
func (e *kindError) Cause() error  { return e.cause }

// New constructs an error tagged with kind.
func New(kind Kind, msg string) error {
	return errors.WithStack(&kindError{kind: kind, msg: msg})
}

// Newf constructs an error tagged with kind using a format string.
func Newf(kind Kind, format string, args ...any) error {
	return errors.WithStack(&kindError{kind: kind, msg: fmt.Sprintf(format, args...)})
}

// Wrap tags err with kind and attaches msg as context, preserving err in
// the cause chain so the original failure is never lost.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&kindError{kind: kind, msg: msg, cause: err})
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

// Classify walks err's cause chain and returns the first Kind it carries,
// or KindNone if err was never tagged.
func Classify(err error) Kind {
	for err != nil {
		if ke, ok := err.(*kindError); ok {
			return ke.kind
		}
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return KindNone
}
