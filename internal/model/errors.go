package model

import "errors"

// ErrorKind classifies run failures for the ledger and for streaming clients.
type ErrorKind string

const (
	// ErrKindUpstream covers capability transport failures and timeouts.
	ErrKindUpstream ErrorKind = "upstream_capability_error"
	// ErrKindSchema covers capability responses that fail shape validation.
	ErrKindSchema ErrorKind = "schema_validation_error"
	// ErrKindCalculation covers unexpected null-propagation violations in the
	// deterministic calculator. Should not occur when extraction validated.
	ErrKindCalculation ErrorKind = "calculation_error"
	// ErrKindContradiction is a fatal consistency finding.
	ErrKindContradiction ErrorKind = "consistency_contradiction"
)

// StageError wraps a stage failure with its taxonomy kind.
type StageError struct {
	Kind ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError tags err with a failure kind.
func NewStageError(kind ErrorKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an error chain. Untagged errors are
// treated as upstream failures.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindUpstream
}
