package deployment

import (
	"errors"
	"fmt"
)

// ErrNetworkNotFound indicates no network carries the requested id.
var ErrNetworkNotFound = errors.New("network not found")

// Network describes one ledger and its endpoints.
type Network struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	ChainID       uint64        `json:"chainId"`
	RPC           []string      `json:"rpc"`
	WSRPC         []string      `json:"wsRpc"`
	Currency      Currency      `json:"currency"`
	BlockExplorer BlockExplorer `json:"blockExplorer"`
}

// Currency is the native currency of a network.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
}

// BlockExplorer is the web explorer of a network.
type BlockExplorer struct {
	URL string `json:"url"`
}

// HTTPURL returns the first RPC endpoint, or "".
func (n *Network) HTTPURL() string {
	if len(n.RPC) == 0 {
		return ""
	}

	return n.RPC[0]
}

// WSURL returns the first WebSocket endpoint, or "" when the network has none.
func (n *Network) WSURL() string {
	if len(n.WSRPC) == 0 {
		return ""
	}

	return n.WSRPC[0]
}

// TxURL returns the explorer link of a transaction, or "" without an explorer.
func (n *Network) TxURL(txHash string) string {
	if n.BlockExplorer.URL == "" {
		return ""
	}

	return fmt.Sprintf("%s/tx/%s", n.BlockExplorer.URL, txHash)
}

// LoadNetworks reads a JSON array of network definitions.
func LoadNetworks(path string) ([]Network, error) {
	var networks []Network
	if err := readJSON(path, &networks); err != nil {
		return nil, err
	}

	return networks, nil
}

// FindNetwork returns the network with the given id.
func FindNetwork(networks []Network, id string) (*Network, error) {
	for i := range networks {
		if networks[i].ID == id {
			return &networks[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, id)
}
