package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity does not exist or belongs to a
// different owner. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or out-of-range input for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

var (
	// ErrGoalClaimed rejects changes to a goal that has been claimed.
	ErrGoalClaimed = NewValidationError("status", "goal has already been claimed")
	// ErrGoalNotFunded rejects claiming a goal below its target.
	ErrGoalNotFunded = NewValidationError("currentAmount", "goal is not fully funded")
	// ErrBalanceTooLarge rejects a contribution that would reach MaxAmount.
	ErrBalanceTooLarge = NewValidationError("amount", "amount would exceed the maximum balance")
)
