package normalize

import (
	"errors"
	"fmt"
)

// ErrNotObject is returned when a payload that must be a JSON object is
// something else entirely.
var ErrNotObject = errors.New("payload is not a JSON object")

// ErrNotList is returned when a payload that must be a list (or a known
// list-bearing object) is something else.
var ErrNotList = errors.New("payload is not a list")

// ValidationError reports a field that is present but malformed, or a
// required field with no usable source. Records failing validation are
// dropped from list results rather than aborting the whole list.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
