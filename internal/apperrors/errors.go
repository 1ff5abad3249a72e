package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the resource is in a state that does not allow the requested change.
var ErrConflict = errors.New("resource state conflict")

// ErrInsufficientFunds indicates an expense would drive an account balance below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnauthenticated indicates no acting identity could be resolved for the request.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrAggregationInconsistency indicates a later pipeline step failed after an earlier one committed.
var ErrAggregationInconsistency = errors.New("aggregation inconsistency")

// ErrInternal is returned when an unexpected infrastructure failure is hidden from the caller.
var ErrInternal = errors.New("internal error")

// AppError carries an HTTP-ish status code along with the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// InconsistencyError describes a partially applied ledger mutation. It carries enough
// context for an operator to drive reconciliation.
type InconsistencyError struct {
	Step           string
	EntryID        string
	AccountID      string
	AttemptedDelta decimal.Decimal
	Err            error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: step %q failed for entry %s (account %q, delta %s): %v",
		ErrAggregationInconsistency, e.Step, e.EntryID, e.AccountID, e.AttemptedDelta.String(), e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *InconsistencyError) Unwrap() []error {
	return []error{ErrAggregationInconsistency, e.Err}
}
