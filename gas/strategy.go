// Package gas turns live network fee data into a concrete fee policy for one transaction.
package gas

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Static errors for gas calculation.
var (
	errUnknownStrategy = errors.New("unknown gas strategy")
	// ErrFeeData indicates the network fee data could not be fetched.
	ErrFeeData = errors.New("failed to fetch fee data")
	// ErrEstimate indicates the node refused to estimate gas for the call.
	ErrEstimate = errors.New("failed to estimate gas")
)

// Strategy is a fee tier trading cost for inclusion speed.
type Strategy int

// Fee tiers, cheapest first.
const (
	Low Strategy = iota
	Standard
	Fast
	Instant
)

const gwei = 1_000_000_000

// tier holds the per-strategy constants of both fee models.
type tier struct {
	name       string
	percentile int
	fallback   int64 // gwei, used when the node reports no reward history
	multiplier decimal.Decimal
}

var tiers = [...]tier{ //nolint:gochecknoglobals // Read-only tier table.
	Low:      {name: "low", percentile: 25, fallback: 1, multiplier: decimal.NewFromInt(1)},
	Standard: {name: "standard", percentile: 50, fallback: 2, multiplier: decimal.RequireFromString("1.1")},
	Fast:     {name: "fast", percentile: 75, fallback: 5, multiplier: decimal.RequireFromString("1.5")},
	Instant:  {name: "instant", percentile: 95, fallback: 10, multiplier: decimal.NewFromInt(2)},
}

func (s Strategy) tier() tier {
	if s < Low || s > Instant {
		return tiers[Standard]
	}

	return tiers[s]
}

func (s Strategy) String() string {
	if s < Low || s > Instant {
		return fmt.Sprintf("strategy(%d)", int(s))
	}

	return tiers[s].name
}

// ParseStrategy maps "low", "standard", "fast" or "instant" (any case) to a Strategy.
// An empty string selects Standard.
func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Standard, nil
	}

	for i, t := range tiers {
		if t.name == name {
			return Strategy(i), nil
		}
	}

	return Standard, fmt.Errorf("%w: %q", errUnknownStrategy, s)
}

// PriorityFee selects the tier's percentile from the observed per-block rewards.
// Rewards are flattened and sorted, so a higher tier never yields a lower fee. With no
// observations the tier's fixed fallback is returned.
func PriorityFee(rewards [][]*big.Int, s Strategy) *big.Int {
	var observed []*big.Int

	for _, block := range rewards {
		for _, reward := range block {
			if reward != nil {
				observed = append(observed, reward)
			}
		}
	}

	t := s.tier()
	if len(observed) == 0 {
		return new(big.Int).Mul(big.NewInt(t.fallback), big.NewInt(gwei))
	}

	sort.Slice(observed, func(i, j int) bool {
		return observed[i].Cmp(observed[j]) < 0
	})

	idx := len(observed) * t.percentile / 100
	if idx >= len(observed) {
		idx = len(observed) - 1
	}

	return new(big.Int).Set(observed[idx])
}

// LegacyPrice scales the node's suggested gas price by the tier multiplier, truncating
// toward zero.
func LegacyPrice(suggested *big.Int, s Strategy) *big.Int {
	if suggested == nil {
		return new(big.Int)
	}

	return decimal.NewFromBigInt(suggested, 0).Mul(s.tier().multiplier).BigInt()
}

// InflateGasLimit adds the 20% safety margin to a node estimate.
func InflateGasLimit(estimate uint64) uint64 {
	return estimate + estimate/5
}

// Policy is the fee configuration of one transaction. Exactly one model is set: GasPrice
// for legacy networks, TipCap and FeeCap for fee-market networks.
type Policy struct {
	GasLimit uint64
	GasPrice *big.Int
	TipCap   *big.Int
	FeeCap   *big.Int
}

// IsDynamic reports whether the policy uses the fee-market model.
func (p Policy) IsDynamic() bool {
	return p.FeeCap != nil
}

func (p Policy) String() string {
	if p.IsDynamic() {
		return fmt.Sprintf("gas=%d tip=%s gwei maxFee=%s gwei", p.GasLimit, FormatGwei(p.TipCap), FormatGwei(p.FeeCap))
	}

	return fmt.Sprintf("gas=%d gasPrice=%s gwei", p.GasLimit, FormatGwei(p.GasPrice))
}

// FormatGwei renders a wei amount in gwei without rounding.
func FormatGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	return decimal.NewFromBigInt(wei, -9).String()
}
