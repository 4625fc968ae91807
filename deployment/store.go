// Package deployment reads deployment records, compiled contract artifacts and network
// definitions from disk.
package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Static errors for deployment lookups.
var (
	// ErrDeploymentNotFound indicates no record matches the requested contract.
	ErrDeploymentNotFound = errors.New("deployment not found")
	// ErrNoBytecode indicates the artifact carries no usable bytecode.
	ErrNoBytecode = errors.New("artifact has no bytecode")
)

// Record is one deployed contract, as written by the deploy step.
type Record struct {
	ContractName string         `json:"contract_name"`
	Address      common.Address `json:"address"`
	Network      string         `json:"network"`
	TxHash       common.Hash    `json:"tx_hash"`
	Deployer     common.Address `json:"deployer"`
	Timestamp    uint64         `json:"timestamp"`
}

// DeployedAt returns the deployment time.
func (r Record) DeployedAt() time.Time {
	return time.Unix(int64(r.Timestamp), 0) //nolint:gosec // Unix seconds fit in int64.
}

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

// BytecodeHex returns the creation bytecode, which artifacts store either as a hex
// string or as {"object": "<hex>"}.
func (a *Artifact) BytecodeHex() (string, error) {
	var code string

	if err := json.Unmarshal(a.Bytecode, &code); err != nil {
		var wrapped struct {
			Object string `json:"object"`
		}

		if err := json.Unmarshal(a.Bytecode, &wrapped); err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoBytecode, err)
		}

		code = wrapped.Object
	}

	if code == "" || code == "0x" {
		return "", ErrNoBytecode
	}

	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}

	return code, nil
}

// Contract pairs a deployment record with its artifact.
type Contract struct {
	Record   Record
	Artifact *Artifact
}

// Store locates deployment files and artifacts. Deployments for a network live in
// <DeploymentsDir>/<network>.json; the artifact of contract Name lives in
// <ArtifactsDir>/<Name>.sol/<Name>.json.
type Store struct {
	DeploymentsDir string
	ArtifactsDir   string
}

// NewStore returns a Store rooted at root, using its deployments/ and artifacts/ subdirectories.
func NewStore(root string) *Store {
	return &Store{
		DeploymentsDir: filepath.Join(root, "deployments"),
		ArtifactsDir:   filepath.Join(root, "artifacts"),
	}
}

func readJSON(path string, into any) error {
	content, err := os.ReadFile(path) //nolint:gosec // Paths are built from operator-provided directories.
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(content, into); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

// Records returns the records of network. A missing deployment file yields no records.
func (s *Store) Records(network string) ([]Record, error) {
	var records []Record

	err := readJSON(filepath.Join(s.DeploymentsDir, network+".json"), &records)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	filtered := records[:0]

	for _, record := range records {
		if record.Network == network {
			filtered = append(filtered, record)
		}
	}

	return filtered, nil
}

// Find returns the first record of contract name on network.
func (s *Store) Find(name, network string) (*Record, error) {
	records, err := s.Records(network)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ContractName == name {
			return &records[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s on network %s", ErrDeploymentNotFound, name, network)
}

// FindByAddress returns the record of contract name deployed at address on network.
func (s *Store) FindByAddress(name string, address common.Address, network string) (*Record, error) {
	records, err := s.Records(network)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ContractName == name && records[i].Address == address {
			return &records[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s at address %s on network %s", ErrDeploymentNotFound, name, address.Hex(), network)
}

// Artifact loads the compiled artifact of contract name.
func (s *Store) Artifact(name string) (*Artifact, error) {
	var artifact Artifact

	path := filepath.Join(s.ArtifactsDir, name+".sol", name+".json")
	if err := readJSON(path, &artifact); err != nil {
		return nil, err
	}

	return &artifact, nil
}

// Contract resolves contract name on network into its record and artifact.
func (s *Store) Contract(name, network string) (*Contract, error) {
	record, err := s.Find(name, network)
	if err != nil {
		return nil, err
	}

	artifact, err := s.Artifact(name)
	if err != nil {
		return nil, err
	}

	return &Contract{Record: *record, Artifact: artifact}, nil
}
