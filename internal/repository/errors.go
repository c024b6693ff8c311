package repository

import (
	"errors"
	"fmt"
)

// ErrStationNotFound indicates a lookup by station id matched nothing.
var ErrStationNotFound = errors.New("station not found")

// ValidationError reports bad input (e.g. malformed coordinates). It is
// never retried and is surfaced to the caller as-is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
