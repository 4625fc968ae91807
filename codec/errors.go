package codec

import (
	"errors"
	"fmt"
)

// Static errors for codec operations.
var (
	// ErrUnsupportedType is returned for a type tag the codec does not recognise.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrTypeMismatch is returned when a value's variant does not match the ABI type it is encoded against.
	ErrTypeMismatch = errors.New("value does not match type")
	// ErrFormat matches every *FormatError through errors.Is.
	ErrFormat = errors.New("malformed value")
)

// FormatError reports text that could not be parsed as the requested type.
type FormatError struct {
	Type   string
	Input  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("invalid %s value %q: %s", e.Type, e.Input, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying parse error, if any.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat //nolint:errorlint // Sentinel identity check.
}

func formatErr(typ, input, reason string, err error) *FormatError {
	return &FormatError{Type: typ, Input: input, Reason: reason, Err: err}
}
