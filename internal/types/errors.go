// README: Error taxonomy shared by the rental modules and mapped once at the HTTP boundary.
package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrVehicleUnavailable  = errors.New("vehicle unavailable")
	ErrAlreadyHandedOver   = errors.New("booking already handed over")
	ErrAlreadyPaid         = errors.New("invoice already paid")
	ErrPaymentVerification = errors.New("payment verification failed")
	ErrConflict            = errors.New("concurrent update conflict")
	ErrForbidden           = errors.New("forbidden")
)

// ValidationError reports bad input shape or range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidTransitionError is returned when a lifecycle guard rejects a status change.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsInvalidTransition(err error) bool {
	var t *InvalidTransitionError
	return errors.As(err, &t)
}
