package function

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Option configures Resolve.
type Option func(*resolveConfig)

type resolveConfig struct {
	strictOverloads bool
}

// WithStrictOverloads makes Resolve fail with ErrFunctionAmbiguous when more than one
// function entry shares the requested name. By default the first entry wins.
func WithStrictOverloads() Option {
	return func(c *resolveConfig) {
		c.strictOverloads = true
	}
}

type entryHeader struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// An omitted entry type defaults to "function", as in go-ethereum's ABI decoder.
func (h entryHeader) isFunction() bool {
	return h.Type == "function" || h.Type == ""
}

func splitEntries(raw []byte) ([]json.RawMessage, []entryHeader, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidABI, err)
	}

	headers := make([]entryHeader, len(entries))

	for i, entry := range entries {
		if err := json.Unmarshal(entry, &headers[i]); err != nil {
			return nil, nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidABI, i, err)
		}
	}

	return entries, headers, nil
}

// Resolve locates the function entry named name in the raw JSON ABI array.
//
// Entries are searched in declaration order and overloads are not disambiguated by
// parameter types: the first entry with a matching name is returned, and
// Descriptor.Overloads reports how many entries matched.
func Resolve(raw []byte, name string, opts ...Option) (*Descriptor, error) {
	cfg := &resolveConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	entries, headers, err := splitEntries(raw)
	if err != nil {
		return nil, err
	}

	first := -1
	matches := 0

	for i, header := range headers {
		if !header.isFunction() || header.Name != name {
			continue
		}

		if first < 0 {
			first = i
		}

		matches++
	}

	if first < 0 {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	if cfg.strictOverloads && matches > 1 {
		return nil, fmt.Errorf("%w: %s has %d entries", ErrFunctionAmbiguous, name, matches)
	}

	// Parsed alone so go-ethereum does not rename the entry to name0, name1, ...
	single := make([]byte, 0, len(entries[first])+2)
	single = append(single, '[')
	single = append(single, entries[first]...)
	single = append(single, ']')

	parsed, err := abi.JSON(bytes.NewReader(single))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidABI, name, err)
	}

	method, ok := parsed.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	return newDescriptor(method, matches), nil
}

// FromSignature builds a descriptor from a canonical signature such as
// "transfer(address,uint256)". The result has no outputs.
func FromSignature(signature string) (*Descriptor, error) {
	selector, err := abi.ParseSelector(strings.TrimSpace(signature))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidABI, signature, err)
	}

	inputs := make(abi.Arguments, len(selector.Inputs))

	for i, input := range selector.Inputs {
		typ, err := abi.NewType(input.Type, input.InternalType, input.Components)
		if err != nil {
			return nil, fmt.Errorf("%w: %q argument %d: %w", ErrInvalidABI, signature, i, err)
		}

		inputs[i] = abi.Argument{Name: input.Name, Type: typ}
	}

	method := abi.NewMethod(selector.Name, selector.Name, abi.Function, "nonpayable", false, false, inputs, nil)

	return newDescriptor(method, 1), nil
}

// Names lists the function entries of the raw JSON ABI array in declaration order.
// Overloaded names appear once per entry.
func Names(raw []byte) ([]string, error) {
	_, headers, err := splitEntries(raw)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(headers))

	for _, header := range headers {
		if header.isFunction() {
			names = append(names, header.Name)
		}
	}

	return names, nil
}

// SplitArgs splits the comma-delimited external argument form into trimmed raw values.
// An empty or blank string yields no arguments.
func SplitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}

	return parts
}
