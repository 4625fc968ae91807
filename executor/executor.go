// Package executor performs one contract read or one contract write end to end: build,
// price, sign, submit and confirm.
package executor

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/zama-ai/evm-benchmarking/codec"
	"github.com/zama-ai/evm-benchmarking/confirm"
	"github.com/zama-ai/evm-benchmarking/function"
	"github.com/zama-ai/evm-benchmarking/gas"
)

// Backend is the node API used by the executor. *ethclient.Client satisfies it.
type Backend interface {
	gas.Backend
	confirm.ReceiptFetcher
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Signer signs transactions for one account. *wallet.Signer satisfies it.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Observer receives timing of node round-trips. Implementations must be cheap; they run inline.
type Observer interface {
	OnRequest(method string, duration time.Duration, err error)
	OnMined(duration time.Duration)
}

// Call is one invocation of a contract function.
type Call struct {
	Contract common.Address
	Function *function.Descriptor
	Args     []codec.Value
}

// Output is one labelled return value of a read call.
type Output struct {
	Name    string
	Type    string
	Value   codec.Value
	Display string
}

// WriteResult describes a write call. TxHash is set once the transaction was signed.
type WriteResult struct {
	State   State
	TxHash  common.Hash
	Receipt *types.Receipt
	Policy  gas.Policy
	Elapsed time.Duration
}

// Submitted reports whether the transaction reached the network.
func (r *WriteResult) Submitted() bool {
	return r.TxHash != (common.Hash{})
}

// Executor runs calls against one node with one signer.
type Executor struct {
	backend  Backend
	signer   Signer
	calc     *gas.Calculator
	tracker  *confirm.Tracker
	strategy gas.Strategy
	logger   logrus.FieldLogger
	observer Observer

	chainMu sync.Mutex
	chainID *big.Int

	warnedOverloads sync.Map // signature -> struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithSigner sets the account used for writes. Reads work without one.
func WithSigner(signer Signer) Option {
	return func(e *Executor) {
		e.signer = signer
	}
}

// WithStrategy sets the fee tier for writes. The default is gas.Standard.
func WithStrategy(strategy gas.Strategy) Option {
	return func(e *Executor) {
		e.strategy = strategy
	}
}

// WithTracker replaces the default polling-only confirmation tracker.
func WithTracker(tracker *confirm.Tracker) Option {
	return func(e *Executor) {
		e.tracker = tracker
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers an observer for request timings.
func WithObserver(observer Observer) Option {
	return func(e *Executor) {
		e.observer = observer
	}
}

// WithChainID skips the eth_chainId lookup.
func WithChainID(chainID *big.Int) Option {
	return func(e *Executor) {
		e.chainID = chainID
	}
}

// New returns an Executor over backend.
func New(backend Backend, opts ...Option) *Executor {
	executor := &Executor{
		backend:  backend,
		strategy: gas.Standard,
		logger:   logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(executor)
	}

	executor.calc = gas.NewCalculator(backend, executor.logger)

	if executor.tracker == nil {
		executor.tracker = confirm.NewTracker(backend, confirm.WithLogger(executor.logger))
	}

	return executor
}

// Signer returns the configured signer, or nil.
func (e *Executor) Signer() Signer {
	return e.signer
}

// Strategy returns the fee tier used for writes.
func (e *Executor) Strategy() gas.Strategy {
	return e.strategy
}

func (e *Executor) observe(method string, start time.Time, err error) {
	if e.observer != nil {
		e.observer.OnRequest(method, time.Since(start), err)
	}
}

func (e *Executor) callLogger(call Call) logrus.FieldLogger {
	logger := e.logger.WithField("contract", call.Contract.Hex())
	if call.Function != nil {
		logger = logger.WithField("function", call.Function.Name)

		if call.Function.Overloads <= 1 {
			return logger
		}

		if _, warned := e.warnedOverloads.LoadOrStore(call.Function.Signature(), struct{}{}); !warned {
			logger.Warnf("Function %s has %d overloads; using %s", call.Function.Name,
				call.Function.Overloads, call.Function.Signature())
		}
	}

	return logger
}

func (e *Executor) getChainID(ctx context.Context) (*big.Int, error) {
	e.chainMu.Lock()
	defer e.chainMu.Unlock()

	if e.chainID != nil {
		return e.chainID, nil
	}

	start := time.Now()
	chainID, err := e.backend.ChainID(ctx)
	e.observe("eth_chainId", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	e.chainID = chainID

	return chainID, nil
}

func (e *Executor) buildMsg(call Call) (ethereum.CallMsg, error) {
	if call.Function == nil {
		return ethereum.CallMsg{}, fmt.Errorf("%w: no function", ErrBuild)
	}

	data, err := call.Function.EncodeCall(call.Args)
	if err != nil {
		return ethereum.CallMsg{}, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	to := call.Contract
	msg := ethereum.CallMsg{
		To:    &to,
		Value: new(big.Int),
		Data:  data,
	}

	if e.signer != nil {
		msg.From = e.signer.Address()
	}

	return msg, nil
}

// Read performs an eth_call against the latest state and decodes the labelled outputs.
// Unnamed outputs are labelled by their position.
func (e *Executor) Read(ctx context.Context, call Call) ([]Output, error) {
	msg, err := e.buildMsg(call)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := e.backend.CallContract(ctx, msg, nil)
	e.observe("eth_call", start, err)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCall, err)
	}

	values, err := call.Function.DecodeOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCall, err)
	}

	outputs := make([]Output, len(values))

	for i, value := range values {
		param := call.Function.Outputs[i]

		name := param.Name
		if name == "" {
			name = strconv.Itoa(i)
		}

		outputs[i] = Output{Name: name, Type: param.Type, Value: value, Display: codec.Format(value)}
	}

	return outputs, nil
}

// Write builds, prices, signs, submits and confirms one transaction.
//
// The returned result is never nil: on failure it carries the Failed state, and the
// transaction hash when the transaction was signed. The error is a *StateError naming the
// state that failed. The nonce is read from the node's pending state on every call.
func (e *Executor) Write(ctx context.Context, call Call) (*WriteResult, error) {
	started := time.Now()
	result := &WriteResult{State: Building}

	fail := func(err *StateError) (*WriteResult, error) {
		result.State = Failed
		result.Elapsed = time.Since(started)

		return result, err
	}

	if e.signer == nil {
		return fail(&StateError{State: Building, Err: ErrSigner})
	}

	logger := e.callLogger(call)

	msg, err := e.buildMsg(call)
	if err != nil {
		return fail(&StateError{State: Building, Err: err})
	}

	result.State = Estimating
	start := time.Now()
	policy, err := e.calc.Calculate(ctx, msg, e.strategy)
	e.observe("eth_estimateGas", start, err)

	if err != nil {
		return fail(failIn(Estimating, ErrGasEstimation, err))
	}

	result.Policy = policy
	logger.WithField("strategy", e.strategy.String()).Debugf("Priced call: %s", policy)

	result.State = Submitting

	signed, err := e.sign(ctx, msg, policy)
	if err != nil {
		return fail(failIn(Submitting, ErrSubmission, err))
	}

	result.TxHash = signed.Hash()
	logger = logger.WithField("tx", result.TxHash.Hex())

	start = time.Now()
	err = e.backend.SendTransaction(ctx, signed)
	e.observe("eth_sendRawTransaction", start, err)

	if err != nil {
		return fail(failIn(Submitting, ErrSubmission, err))
	}

	result.State = AwaitingConfirmation
	logger.Debug("Transaction submitted")

	sentAt := time.Now()

	receipt, err := e.tracker.Await(ctx, result.TxHash)
	if err != nil {
		return fail(failIn(AwaitingConfirmation, nil, err))
	}

	if e.observer != nil {
		e.observer.OnMined(time.Since(sentAt))
	}

	result.Receipt = receipt

	if receipt.Status != types.ReceiptStatusSuccessful {
		return fail(failIn(AwaitingConfirmation, ErrReverted,
			fmt.Errorf("%s in block %v", result.TxHash.Hex(), receipt.BlockNumber)))
	}

	result.State = Confirmed
	result.Elapsed = time.Since(started)

	logger.WithFields(logrus.Fields{
		"block":    receipt.BlockNumber,
		"gas_used": receipt.GasUsed,
	}).Debug("Transaction confirmed")

	return result, nil
}

func (e *Executor) sign(ctx context.Context, msg ethereum.CallMsg, policy gas.Policy) (*types.Transaction, error) {
	chainID, err := e.getChainID(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	nonce, err := e.backend.PendingNonceAt(ctx, msg.From)
	e.observe("eth_getTransactionCount", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	return e.signer.SignTx(buildTx(chainID, nonce, msg, policy), chainID) //nolint:wrapcheck // Signer errors are descriptive.
}

// buildTx turns a priced call into a dynamic-fee or legacy transaction.
func buildTx(chainID *big.Int, nonce uint64, msg ethereum.CallMsg, policy gas.Policy) *types.Transaction {
	if policy.IsDynamic() {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: policy.TipCap,
			GasFeeCap: policy.FeeCap,
			Gas:       policy.GasLimit,
			To:        msg.To,
			Value:     msg.Value,
			Data:      msg.Data,
		})
	}

	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: policy.GasPrice,
		Gas:      policy.GasLimit,
		To:       msg.To,
		Value:    msg.Value,
		Data:     msg.Data,
	})
}
