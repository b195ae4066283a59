package leads

import (
	"errors"
	"fmt"
)

// ValidationCode identifies which validation rule rejected a payload.
type ValidationCode string

const (
	MissingRequiredField ValidationCode = "missing_required_field"
	InvalidPhone         ValidationCode = "invalid_phone"
	InvalidDate          ValidationCode = "invalid_date"
	PickupInPast         ValidationCode = "pickup_in_past"
	InvalidDateRange     ValidationCode = "invalid_date_range"
	InvalidEmail         ValidationCode = "invalid_email"
)

// ValidationError carries a user-facing message. It is never retried and is
// not an operational fault.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("leads: validation failed (%s): %s", e.Code, e.Message)
}

// StoreError wraps a lead store failure. The caller sees a generic message;
// the wrapped error is logged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("leads: store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrConfiguration is returned when the lead store is missing required
// deployment settings.
var ErrConfiguration = errors.New("leads: lead store is not configured")

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
