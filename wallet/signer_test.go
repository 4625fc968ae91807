package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// Standard Anvil test mnemonic and its first accounts.
const (
	anvilMnemonic = "test test test test test test test test test test test junk" //nolint:dupword
	anvilKey0     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvilAddress0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewSigner(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "prefixed", input: anvilKey0},
		{name: "bare", input: anvilKey0[2:]},
		{name: "padded", input: "  " + anvilKey0 + "\n"},
		{name: "empty", input: "", wantErr: true},
		{name: "oddLength", input: "0xabc", wantErr: true},
		{name: "notHex", input: "0xzz", wantErr: true},
		{name: "tooShort", input: "0x0102", wantErr: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			signer, err := NewSigner(testCase.input)
			if testCase.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, common.HexToAddress(anvilAddress0), signer.Address())
		})
	}
}

// TestFromMnemonic verifies HD derivation against known Anvil addresses.
func TestFromMnemonic(t *testing.T) {
	expected := []string{
		anvilAddress0,
		"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
	}

	for index, address := range expected {
		signer, err := FromMnemonic(anvilMnemonic, index)
		require.NoError(t, err)
		require.Equal(t, address, signer.Address().Hex(), "address at index %d", index)
	}

	_, err := FromMnemonic(anvilMnemonic, -1)
	require.ErrorIs(t, err, errNegativeIndex)

	_, err = FromMnemonic("not a valid mnemonic", 0)
	require.Error(t, err)
}

func TestSignTx(t *testing.T) {
	signer, err := NewSigner(anvilKey0)
	require.NoError(t, err)

	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	chainID := big.NewInt(31337)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     3,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(0),
	})

	signed, err := signer.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), sender)
}
