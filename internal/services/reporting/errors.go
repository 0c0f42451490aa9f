package reporting

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("invalid report")
	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrUnknownRole is returned for role labels other than commander/overseer.
	ErrUnknownRole = errors.New("unknown role")
	// ErrStoreNotEmpty is returned when restoring into a store that already holds reports.
	ErrStoreNotEmpty = errors.New("report store is not empty")
)

// ValidationError rejects a report at append time. The store is left unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
