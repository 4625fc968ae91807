package function

import (
	"errors"
	"fmt"
)

// Static errors for function resolution.
var (
	// ErrFunctionNotFound indicates no function entry carries the requested name.
	ErrFunctionNotFound = errors.New("function not found in ABI")
	// ErrFunctionAmbiguous indicates several overloads share the name and strict resolution was requested.
	ErrFunctionAmbiguous = errors.New("function name is overloaded")
	// ErrArgCount indicates the number of arguments differs from the function arity.
	ErrArgCount = errors.New("invalid arg count")
	// ErrInvalidABI indicates the ABI description could not be decoded.
	ErrInvalidABI = errors.New("invalid ABI")
)

// ArgumentError reports a failure tied to one argument position.
type ArgumentError struct {
	Function string
	Index    int
	Name     string
	Err      error
}

func (e *ArgumentError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("argument %d (%s) of %s: %v", e.Index, e.Name, e.Function, e.Err)
	}

	return fmt.Sprintf("argument %d of %s: %v", e.Index, e.Function, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
