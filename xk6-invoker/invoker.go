package invoker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"go.k6.io/k6/js/modules"

	"github.com/zama-ai/evm-benchmarking/confirm"
	"github.com/zama-ai/evm-benchmarking/deployment"
	"github.com/zama-ai/evm-benchmarking/executor"
	"github.com/zama-ai/evm-benchmarking/function"
	"github.com/zama-ai/evm-benchmarking/stress"
	"github.com/zama-ai/evm-benchmarking/wallet"
)

// Static errors for invoker operations.
var (
	errInvalidAddress       = errors.New("invalid address")
	errDeploymentsRequired  = errors.New("Invoker must be initialized with deploymentsDir, artifactsDir and network")
	errSignerNotInitialized = errors.New("Invoker must be initialized with a privateKey or a mnemonic")
)

// Invoker runs contract calls for one VU.
type Invoker struct {
	vu      modules.VU
	metrics invokerMetrics
	opts    *options
	logger  logrus.FieldLogger

	client    *ethclient.Client
	ws        *confirm.WSChannel
	executor  *executor.Executor
	harness   *stress.Harness
	store     *deployment.Store
	network   *deployment.Network
	functions []function.Option
}

func newInvoker(ctx context.Context, vu modules.VU, m invokerMetrics, opts *options, logger logrus.FieldLogger) (*Invoker, error) {
	inv := &Invoker{
		vu:      vu,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}

	if opts.StrictOverloads {
		inv.functions = append(inv.functions, function.WithStrictOverloads())
	}

	if err := inv.loadNetwork(); err != nil {
		return nil, err
	}

	if err := inv.dial(ctx); err != nil {
		return nil, err
	}

	execOpts := []executor.Option{
		executor.WithStrategy(opts.strategy),
		executor.WithLogger(logger),
		executor.WithObserver(inv),
		executor.WithTracker(inv.newTracker()),
	}

	if inv.network != nil && inv.network.ChainID != 0 {
		execOpts = append(execOpts, executor.WithChainID(new(big.Int).SetUint64(inv.network.ChainID)))
	}

	if opts.hasSigner() {
		signer, err := newSigner(opts)
		if err != nil {
			return nil, err
		}

		execOpts = append(execOpts, executor.WithSigner(signer))
	}

	inv.executor = executor.New(inv.client, execOpts...)
	inv.harness = stress.NewHarness(inv.executor, logger)

	if opts.DeploymentsDir != "" && opts.ArtifactsDir != "" {
		inv.store = &deployment.Store{DeploymentsDir: opts.DeploymentsDir, ArtifactsDir: opts.ArtifactsDir}
	}

	return inv, nil
}

func (inv *Invoker) loadNetwork() error {
	if inv.opts.Network == "" {
		return nil
	}

	networks, err := deployment.LoadNetworks(inv.opts.NetworksFile)
	if err != nil {
		return err //nolint:wrapcheck // Names the file.
	}

	network, err := deployment.FindNetwork(networks, inv.opts.Network)
	if err != nil {
		return err //nolint:wrapcheck // Names the network.
	}

	inv.network = network

	if inv.opts.URL == "" {
		inv.opts.URL = network.HTTPURL()
	}

	if inv.opts.WSURL == "" {
		inv.opts.WSURL = network.WSURL()
	}

	if inv.opts.URL == "" {
		return errURLRequired
	}

	return nil
}

func (inv *Invoker) dial(ctx context.Context) error {
	sharedTransport := &http.Transport{
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 2000,
		MaxConnsPerHost:     2000,
		IdleConnTimeout:     90 * time.Second,
	}

	rpcClient, err := rpc.DialOptions(ctx, inv.opts.URL, rpc.WithHTTPClient(&http.Client{
		Transport: sharedTransport,
	}))
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", inv.opts.URL, err)
	}

	inv.client = ethclient.NewClient(rpcClient)

	return nil
}

func (inv *Invoker) newTracker() *confirm.Tracker {
	interval := time.Duration(inv.opts.ConfirmIntervalMs) * time.Millisecond

	trackerOpts := []confirm.Option{
		confirm.WithAttempts(inv.opts.ConfirmAttempts),
		confirm.WithInterval(interval),
		confirm.WithLogger(inv.logger),
	}

	if inv.opts.WSURL != "" {
		inv.ws = confirm.NewWSChannel(inv.opts.WSURL, inv.opts.ConfirmAttempts, interval, inv.logger)
		trackerOpts = append(trackerOpts, confirm.WithPushChannel(inv.ws))
	}

	return confirm.NewTracker(inv.client, trackerOpts...)
}

func newSigner(opts *options) (*wallet.Signer, error) {
	if opts.Mnemonic != "" {
		return wallet.FromMnemonic(opts.Mnemonic, opts.AccountIndex) //nolint:wrapcheck // Descriptive.
	}

	return wallet.NewSigner(opts.PrivateKey) //nolint:wrapcheck // Descriptive.
}

func (inv *Invoker) getBaseContext() context.Context {
	if inv.vu != nil {
		if ctx := inv.vu.Context(); ctx != nil {
			return ctx
		}
	}

	return context.Background()
}

// Address returns the signer address, or an empty string without a signer.
func (inv *Invoker) Address() string {
	signer := inv.executor.Signer()
	if signer == nil {
		return ""
	}

	return signer.Address().Hex()
}

// Functions lists the function names of a JSON ABI in declaration order.
func (inv *Invoker) Functions(abiJSON string) ([]string, error) {
	return function.Names([]byte(abiJSON)) //nolint:wrapcheck // Descriptive.
}

// Read calls a view function. Without an ABI, fn must be a full signature such as
// "balanceOf(address)".
func (inv *Invoker) Read(address, abiJSON, fn, args string) ([]*Output, error) {
	call, err := inv.prepareCall(address, abiJSON, fn, args)
	if err != nil {
		return nil, err
	}

	return inv.read(call)
}

// ReadDeployed calls a view function of a contract recorded in the deployments directory.
func (inv *Invoker) ReadDeployed(contract, fn, args string) ([]*Output, error) {
	call, err := inv.prepareDeployedCall(contract, fn, args)
	if err != nil {
		return nil, err
	}

	return inv.read(call)
}

func (inv *Invoker) read(call executor.Call) ([]*Output, error) {
	outputs, err := inv.executor.Read(inv.getBaseContext(), call)
	if err != nil {
		return nil, err //nolint:wrapcheck // Executor errors are descriptive.
	}

	return NewOutputs(outputs), nil
}

// Write sends a transaction calling fn and waits for it to be mined.
func (inv *Invoker) Write(address, abiJSON, fn, args string) (*TxResult, error) {
	call, err := inv.prepareCall(address, abiJSON, fn, args)
	if err != nil {
		return nil, err
	}

	return inv.write(call)
}

// WriteDeployed is Write against a contract recorded in the deployments directory.
func (inv *Invoker) WriteDeployed(contract, fn, args string) (*TxResult, error) {
	call, err := inv.prepareDeployedCall(contract, fn, args)
	if err != nil {
		return nil, err
	}

	return inv.write(call)
}

func (inv *Invoker) write(call executor.Call) (*TxResult, error) {
	if inv.executor.Signer() == nil {
		return nil, errSignerNotInitialized
	}

	result, err := inv.executor.Write(inv.getBaseContext(), call)
	if err != nil {
		inv.recordError(err, "write")

		return NewTxResult(result), err //nolint:wrapcheck // StateError names the failed state.
	}

	return NewTxResult(result), nil
}

// Stress repeats a write of fn totalCalls times, intervalMs apart. A non-positive totalCalls
// repeats until the VU context ends.
func (inv *Invoker) Stress(address, abiJSON, fn, args string, totalCalls, intervalMs int64) (*StressReport, error) {
	call, err := inv.prepareCall(address, abiJSON, fn, args)
	if err != nil {
		return nil, err
	}

	cfg := stress.Config{Interval: time.Duration(max(intervalMs, 0)) * time.Millisecond}
	if totalCalls > 0 {
		n := uint64(totalCalls)
		cfg.TotalCalls = &n
	}

	return inv.stress(call, cfg)
}

// StressDeployed is Stress against a contract recorded in the deployments directory.
func (inv *Invoker) StressDeployed(contract, fn, args string, totalCalls, intervalMs int64) (*StressReport, error) {
	if inv.store == nil || inv.network == nil {
		return nil, errDeploymentsRequired
	}

	req := stress.Request{
		Contract:        contract,
		Network:         inv.network.ID,
		Function:        fn,
		Args:            args,
		IntervalMs:      uint64(max(intervalMs, 0)),
		StrictOverloads: inv.opts.StrictOverloads,
	}

	if totalCalls > 0 {
		n := uint64(totalCalls)
		req.TotalCalls = &n
	}

	call, cfg, err := stress.Prepare(inv.store, req)
	if err != nil {
		return nil, err //nolint:wrapcheck // Descriptive.
	}

	return inv.stress(call, cfg)
}

func (inv *Invoker) stress(call executor.Call, cfg stress.Config) (*StressReport, error) {
	if inv.executor.Signer() == nil {
		return nil, errSignerNotInitialized
	}

	report := inv.harness.Run(inv.getBaseContext(), call, cfg, inv.onStressProgress)

	return NewStressReport(report), nil
}

func (inv *Invoker) prepareCall(address, abiJSON, fn, args string) (executor.Call, error) {
	if !common.IsHexAddress(address) {
		return executor.Call{}, fmt.Errorf("%w: %s", errInvalidAddress, address)
	}

	var (
		descriptor *function.Descriptor
		err        error
	)

	if strings.TrimSpace(abiJSON) == "" {
		descriptor, err = function.FromSignature(fn)
	} else {
		descriptor, err = function.Resolve([]byte(abiJSON), fn, inv.functions...)
	}

	if err != nil {
		return executor.Call{}, err //nolint:wrapcheck // Descriptive.
	}

	values, err := descriptor.ParseArgs(function.SplitArgs(args))
	if err != nil {
		return executor.Call{}, err //nolint:wrapcheck // Names the argument.
	}

	return executor.Call{Contract: common.HexToAddress(address), Function: descriptor, Args: values}, nil
}

func (inv *Invoker) prepareDeployedCall(contract, fn, args string) (executor.Call, error) {
	if inv.store == nil || inv.network == nil {
		return executor.Call{}, errDeploymentsRequired
	}

	deployed, err := inv.store.Contract(contract, inv.network.ID)
	if err != nil {
		return executor.Call{}, err //nolint:wrapcheck // Descriptive.
	}

	return inv.prepareCall(deployed.Record.Address.Hex(), string(deployed.Artifact.ABI), fn, args)
}

// Close releases the push confirmation connection.
func (inv *Invoker) Close() {
	if inv.ws != nil {
		inv.ws.Close()
	}

	inv.client.Close()
}
