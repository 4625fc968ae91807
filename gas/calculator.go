package gas

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Fee history window queried for priority fee observations.
const (
	historyBlocks     = 10
	historyPercentile = 50
)

// Backend is the subset of the node API the calculator needs. *ethclient.Client satisfies it.
type Backend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Calculator computes a fresh Policy per transaction. Whether the network supports the
// fee-market model is probed once, on first use, and remembered.
type Calculator struct {
	backend Backend
	logger  logrus.FieldLogger

	mu      sync.Mutex
	probed  bool
	dynamic bool
}

// NewCalculator returns a calculator over backend. A nil logger uses the standard logger.
func NewCalculator(backend Backend, logger logrus.FieldLogger) *Calculator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Calculator{backend: backend, logger: logger}
}

// SupportsDynamicFees reports whether the latest block carries a base fee.
func (c *Calculator) SupportsDynamicFees(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.probed {
		return c.dynamic, nil
	}

	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: latest header: %w", ErrFeeData, err)
	}

	c.probed = true
	c.dynamic = header.BaseFee != nil

	c.logger.WithField("dynamic_fees", c.dynamic).Debug("Probed network fee model")

	return c.dynamic, nil
}

// Calculate estimates gas for msg and prices it with strategy s.
func (c *Calculator) Calculate(ctx context.Context, msg ethereum.CallMsg, s Strategy) (Policy, error) {
	dynamic, err := c.SupportsDynamicFees(ctx)
	if err != nil {
		return Policy{}, err
	}

	var policy Policy

	if dynamic {
		policy, err = c.dynamicPolicy(ctx, s)
	} else {
		policy, err = c.legacyPolicy(ctx, s)
	}

	if err != nil {
		return Policy{}, err
	}

	estimate, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		return Policy{}, fmt.Errorf("%w: %w", ErrEstimate, err)
	}

	policy.GasLimit = InflateGasLimit(estimate)

	c.logger.WithFields(logrus.Fields{
		"strategy": s.String(),
		"estimate": estimate,
	}).Debugf("Gas policy %s", policy)

	return policy, nil
}

func (c *Calculator) dynamicPolicy(ctx context.Context, s Strategy) (Policy, error) {
	history, err := c.backend.FeeHistory(ctx, historyBlocks, nil, []float64{historyPercentile})
	if err != nil {
		return Policy{}, fmt.Errorf("%w: fee history: %w", ErrFeeData, err)
	}

	var baseFee *big.Int
	if n := len(history.BaseFee); n > 0 {
		baseFee = history.BaseFee[n-1]
	}

	if baseFee == nil {
		header, err := c.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return Policy{}, fmt.Errorf("%w: latest header: %w", ErrFeeData, err)
		}

		baseFee = header.BaseFee
		if baseFee == nil {
			baseFee = new(big.Int)
		}
	}

	tip := PriorityFee(history.Reward, s)

	return Policy{
		TipCap: tip,
		FeeCap: new(big.Int).Add(baseFee, tip),
	}, nil
}

func (c *Calculator) legacyPolicy(ctx context.Context, s Strategy) (Policy, error) {
	suggested, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return Policy{}, fmt.Errorf("%w: gas price: %w", ErrFeeData, err)
	}

	return Policy{GasPrice: LegacyPrice(suggested, s)}, nil
}
