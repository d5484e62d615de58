package pipeline

import (
	"fmt"
	"strings"
)

// ErrorKind identifies which domain rule a parsed command violated.
type ErrorKind string

const (
	ErrInvalidStore         ErrorKind = "INVALID_STORE"
	ErrInvalidType          ErrorKind = "INVALID_TYPE"
	ErrInvalidOperation     ErrorKind = "INVALID_OPERATION"
	ErrInvalidAmount        ErrorKind = "INVALID_AMOUNT"
	ErrInvalidCategory      ErrorKind = "INVALID_CATEGORY"
	ErrInvalidConfidence    ErrorKind = "INVALID_CONFIDENCE"
	ErrInvalidDate          ErrorKind = "INVALID_DATE"
	ErrMissingRequiredField ErrorKind = "MISSING_REQUIRED_FIELD"
)

// ValidationError is a precise rejection of model output: it names the
// offending field, the value seen, and (where applicable) the allowed set.
// Callers surface it to the end user for correction; it is never retried.
type ValidationError struct {
	Kind    ErrorKind
	Field   string
	Value   any
	Allowed []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrInvalidStore:
		return fmt.Sprintf("Invalid store name: %v. Must be one of: %s", e.Value, strings.Join(e.Allowed, ", "))
	case ErrInvalidType:
		return fmt.Sprintf("Invalid transaction type: %v. Must be REVENUE or EXPENSE", e.Value)
	case ErrInvalidOperation:
		return fmt.Sprintf("Invalid operation: %v. Must be ADD, DELETE, or UPDATE", e.Value)
	case ErrInvalidAmount:
		return fmt.Sprintf("Invalid amount: %v. Must be a positive number", e.Value)
	case ErrInvalidCategory:
		return fmt.Sprintf("Invalid category: %v. Must be one of: %s", e.Value, strings.Join(e.Allowed, ", "))
	case ErrInvalidConfidence:
		return fmt.Sprintf("Invalid confidence: %v. Must be between 0 and 1", e.Value)
	case ErrInvalidDate:
		return fmt.Sprintf("Invalid date: %v. Could not resolve to a calendar date", e.Value)
	case ErrMissingRequiredField:
		return fmt.Sprintf("Missing required field: %s", e.Field)
	}
	return fmt.Sprintf("validation failed on field %s", e.Field)
}

// OracleUnavailableError indicates the model call itself failed
// (network, auth or quota). Fatal for the current request.
type OracleUnavailableError struct {
	Err error
}

func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("oracle unavailable: %v", e.Err)
}

func (e *OracleUnavailableError) Unwrap() error { return e.Err }

// MalformedResponseError indicates the model responded but the extracted
// text was not a usable JSON shape. The raw text is kept for log context.
// Never retried: the parse failure is deterministic for a given response.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
