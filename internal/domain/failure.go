package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies every way a record can fail to load.
type FailureKind string

const (
	// FailureTransport means the inference service was unreachable or timed out.
	FailureTransport FailureKind = "transport_error"
	// FailureMalformedOutput means an inference response failed structural parsing.
	FailureMalformedOutput FailureKind = "malformed_output"
	// FailureValidation means structured output violated a hard constraint.
	FailureValidation FailureKind = "validation_error"
	// FailureMalformedInput means an extract-feed line was unparsable.
	FailureMalformedInput FailureKind = "malformed_input"
	// FailureStore means persisting the record failed.
	FailureStore FailureKind = "store_error"
)

// MalformedInputError marks an extract-feed line that could not be parsed
// as a RawSubmission. The record is skipped, the run continues.
type MalformedInputError struct {
	Line int
	Err  error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input at line %d: %v", e.Line, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure. Fatal marks connectivity-level
// errors that abort the whole run; non-fatal ones reject a single record.
type StoreError struct {
	Fatal bool
	Err   error
}

func (e *StoreError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("store unavailable: %v", e.Err)
	}
	return fmt.Sprintf("store error: %v", e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsFatalStoreError reports whether err carries a connectivity-level store
// failure that must abort the batch.
func IsFatalStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Fatal
}
