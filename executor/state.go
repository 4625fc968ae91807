package executor

import (
	"errors"
	"fmt"
)

// Static errors for call execution.
var (
	// ErrGasEstimation indicates fee data or the gas estimate could not be obtained.
	ErrGasEstimation = errors.New("gas estimation failed")
	// ErrSubmission indicates the transaction could not be signed or sent.
	ErrSubmission = errors.New("transaction submission failed")
	// ErrReverted indicates the transaction was mined with a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrCall indicates a read-only call failed.
	ErrCall = errors.New("contract call failed")
	// ErrSigner indicates a write was attempted without a signer.
	ErrSigner = errors.New("executor has no signer")
	// ErrBuild indicates the call envelope could not be assembled.
	ErrBuild = errors.New("failed to build call")
)

// State is a stage of a write call.
type State int

// Write call states, in order. Confirmed and Failed are terminal.
const (
	Building State = iota
	Estimating
	Submitting
	AwaitingConfirmation
	Confirmed
	Failed
)

var stateNames = [...]string{ //nolint:gochecknoglobals // Read-only lookup table.
	Building:             "building",
	Estimating:           "estimating",
	Submitting:           "submitting",
	AwaitingConfirmation: "awaiting_confirmation",
	Confirmed:            "confirmed",
	Failed:               "failed",
}

func (s State) String() string {
	if s < Building || s > Failed {
		return fmt.Sprintf("state(%d)", int(s))
	}

	return stateNames[s]
}

// Terminal reports whether s is Confirmed or Failed.
func (s State) Terminal() bool {
	return s == Confirmed || s == Failed
}

// StateError records the state a write call was in when it failed.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

func failIn(state State, sentinel, err error) *StateError {
	if sentinel == nil {
		return &StateError{State: state, Err: err}
	}

	return &StateError{State: state, Err: fmt.Errorf("%w: %w", sentinel, err)}
}
