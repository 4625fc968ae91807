package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

var errStubNotFound = errors.New("stub: not found")

// rpcHandler answers one JSON-RPC method. Returning errStubNotFound yields a null result.
type rpcHandler func(params []json.RawMessage) (any, error)

// rpcStub is a small deterministic JSON-RPC node for executor tests. It answers the
// methods the executor uses with canned values and records every call and every raw
// transaction it receives.
type rpcStub struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
	sent     []*types.Transaction
}

func newRPCStub(t *testing.T) *rpcStub {
	t.Helper()

	stub := &rpcStub{t: t, calls: map[string]int{}}
	stub.handlers = map[string]rpcHandler{
		"eth_chainId":             constant("0x7a69"),
		"eth_getTransactionCount": constant("0x3"),
		"eth_estimateGas":         constant("0x5208"),
		"eth_gasPrice":            constant(hexutil.EncodeBig(big.NewInt(1_000_000_000))),
		"eth_getBlockByNumber":    headerResult(big.NewInt(7_000_000_000)),
		"eth_feeHistory": constant(map[string]any{
			"oldestBlock":   "0x1",
			"baseFeePerGas": []string{"0x1a13b8600", "0x1a13b8600"}, // 7 gwei
			"gasUsedRatio":  []float64{0.5},
			"reward":        [][]string{{"0x3b9aca00"}, {"0x77359400"}}, // 1 and 2 gwei
		}),
		"eth_sendRawTransaction":    stub.acceptRawTx,
		"eth_getTransactionReceipt": stub.receiptAfter(1, types.ReceiptStatusSuccessful),
	}

	stub.server = httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(stub.server.Close)

	return stub
}

func constant(result any) rpcHandler {
	return func([]json.RawMessage) (any, error) {
		return result, nil
	}
}

func headerResult(baseFee *big.Int) rpcHandler {
	return func([]json.RawMessage) (any, error) {
		return &types.Header{
			Number:     big.NewInt(1),
			Difficulty: big.NewInt(0),
			GasLimit:   30_000_000,
			Time:       1_700_000_000,
			Extra:      []byte{},
			BaseFee:    baseFee,
		}, nil
	}
}

func (s *rpcStub) handle(method string, handler rpcHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[method] = handler
}

func (s *rpcStub) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[method]
}

func (s *rpcStub) sentTxs() []*types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*types.Transaction(nil), s.sent...)
}

func (s *rpcStub) acceptRawTx(params []json.RawMessage) (any, error) {
	var raw hexutil.Bytes
	if err := json.Unmarshal(params[0], &raw); err != nil {
		return nil, err
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, err
	}

	s.sent = append(s.sent, tx)

	return tx.Hash(), nil
}

// receiptAfter reports the transaction as pending for the first pending lookups of each hash.
func (s *rpcStub) receiptAfter(pending int, status uint64) rpcHandler {
	seen := map[common.Hash]int{}

	return func(params []json.RawMessage) (any, error) {
		var hash common.Hash
		if err := json.Unmarshal(params[0], &hash); err != nil {
			return nil, err
		}

		seen[hash]++
		if seen[hash] <= pending {
			return nil, errStubNotFound
		}

		return &types.Receipt{
			Type:              types.DynamicFeeTxType,
			Status:            status,
			CumulativeGasUsed: 21_000,
			Logs:              []*types.Log{},
			TxHash:            hash,
			GasUsed:           21_000,
			EffectiveGasPrice: big.NewInt(8_000_000_000),
			BlockHash:         common.HexToHash("0x01"),
			BlockNumber:       big.NewInt(2),
		}, nil
	}
}

func (s *rpcStub) serve(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		s.t.Errorf("failed to read request body: %v", err)

		return
	}

	_ = request.Body.Close()

	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}

	if err := json.Unmarshal(body, &req); err != nil {
		s.t.Errorf("failed to unmarshal request: %v", err)

		return
	}

	writer.Header().Set("Content-Type", "application/json")

	s.mu.Lock()
	s.calls[req.Method]++
	handler, ok := s.handlers[req.Method]

	var (
		result    any
		handleErr error
	)

	if ok {
		result, handleErr = handler(req.Params)
	}
	s.mu.Unlock()

	switch {
	case !ok:
		_, _ = fmt.Fprintf(writer, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method %s not found"}}`, req.ID, req.Method)
	case errors.Is(handleErr, errStubNotFound):
		_, _ = fmt.Fprintf(writer, `{"jsonrpc":"2.0","id":%s,"result":null}`, req.ID)
	case handleErr != nil:
		message, _ := json.Marshal(handleErr.Error())
		_, _ = fmt.Fprintf(writer, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32000,"message":%s}}`, req.ID, message)
	default:
		encoded, err := json.Marshal(result)
		if err != nil {
			s.t.Errorf("failed to marshal result for %s: %v", req.Method, err)

			return
		}

		_, _ = fmt.Fprintf(writer, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, encoded)
	}
}

func (s *rpcStub) client(t *testing.T) *ethclient.Client {
	t.Helper()

	rpcClient, err := rpc.Dial(s.server.URL)
	require.NoError(t, err)
	t.Cleanup(rpcClient.Close)

	return ethclient.NewClient(rpcClient)
}
