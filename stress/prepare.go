package stress

import (
	"errors"
	"fmt"
	"time"

	"github.com/zama-ai/evm-benchmarking/deployment"
	"github.com/zama-ai/evm-benchmarking/executor"
	"github.com/zama-ai/evm-benchmarking/function"
)

// ErrReadOnly indicates a stress request naming a view or pure function.
var ErrReadOnly = errors.New("function does not modify state")

// Request names a stress run in the external form: a deployed contract by name, the
// function and its comma-delimited arguments.
type Request struct {
	Contract   string
	Network    string
	Function   string
	Args       string
	TotalCalls *uint64
	IntervalMs uint64

	// StrictOverloads rejects function names matching several overloads.
	StrictOverloads bool
}

// Prepare resolves req against the deployments in store into the call and run bounds.
// Argument errors fail here, before any network interaction.
func Prepare(store *deployment.Store, req Request) (executor.Call, Config, error) {
	contract, err := store.Contract(req.Contract, req.Network)
	if err != nil {
		return executor.Call{}, Config{}, err
	}

	var opts []function.Option
	if req.StrictOverloads {
		opts = append(opts, function.WithStrictOverloads())
	}

	descriptor, err := function.Resolve(contract.Artifact.ABI, req.Function, opts...)
	if err != nil {
		return executor.Call{}, Config{}, fmt.Errorf("contract %s: %w", req.Contract, err)
	}

	if descriptor.ReadOnly() {
		return executor.Call{}, Config{}, fmt.Errorf("%w: %s", ErrReadOnly, descriptor.Signature())
	}

	args, err := descriptor.ParseArgs(function.SplitArgs(req.Args))
	if err != nil {
		return executor.Call{}, Config{}, err //nolint:wrapcheck // Argument errors name the function.
	}

	call := executor.Call{
		Contract: contract.Record.Address,
		Function: descriptor,
		Args:     args,
	}

	cfg := Config{
		TotalCalls: req.TotalCalls,
		Interval:   time.Duration(req.IntervalMs) * time.Millisecond, //nolint:gosec // Millisecond intervals fit.
	}

	return call, cfg, nil
}
