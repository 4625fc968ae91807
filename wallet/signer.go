// Package wallet holds the signing identity used to submit transactions.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// Static errors for signer construction.
var (
	errInvalidPrivateKeyLength = errors.New("invalid private key: expected hex string with even length")
	errNegativeIndex           = errors.New("account index must be non-negative")
)

// DerivationPath is a BIP-32/44 derivation path. Hardened components carry the 0x80000000 offset.
type DerivationPath []uint32

// DefaultDerivationPath is m/44'/60'/0'/0/0. The last component is the account index.
//
//nolint:gochecknoglobals // Standard constant path.
var DefaultDerivationPath = DerivationPath{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

// Signer signs transactions with one private key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex private key, with or without a leading 0x.
func NewSigner(privateKeyHex string) (*Signer, error) {
	cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(privateKeyHex)), "0x")
	if len(cleaned) == 0 || len(cleaned)%2 != 0 {
		return nil, errInvalidPrivateKeyLength
	}

	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key hex: %w", err)
	}

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer from private key: %w", err)
	}

	return fromECDSA(key), nil
}

// FromMnemonic derives the signer at m/44'/60'/0'/0/index from a BIP-39 mnemonic.
func FromMnemonic(mnemonic string, index int) (*Signer, error) {
	if index < 0 {
		return nil, errNegativeIndex
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create seed from mnemonic: %w", err)
	}

	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	path := make(DerivationPath, len(DefaultDerivationPath))
	copy(path, DefaultDerivationPath)
	path[len(path)-1] = uint32(index) //nolint:gosec // Checked non-negative above.

	derived, err := derive(masterKey, path)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key at index %d: %w", index, err)
	}

	privateKey, err := derived.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get private key at index %d: %w", index, err)
	}

	return fromECDSA(privateKey.ToECDSA()), nil
}

func derive(masterKey *hdkeychain.ExtendedKey, path DerivationPath) (*hdkeychain.ExtendedKey, error) {
	var err error

	key := masterKey

	for _, n := range path {
		key, err = key.Derive(n)
		if err != nil {
			return nil, fmt.Errorf("failed to derive: %w", err)
		}
	}

	return key, nil
}

func fromECDSA(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the signer's account address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs tx for chainID with the latest signer rules.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return signed, nil
}
