// Package confirm waits for submitted transactions to be mined, trying a push channel
// first and polling the primary RPC endpoint when the push channel fails.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Static errors for confirmation.
var (
	// ErrConfirmationTimeout indicates the transaction was not seen mined in time.
	ErrConfirmationTimeout = errors.New("confirmation timed out")
	// ErrConfirmationCancelled indicates the caller's context ended the wait.
	ErrConfirmationCancelled = errors.New("confirmation cancelled by context")
	// ErrChannelDegraded marks a push channel failure that triggers the polling fallback.
	ErrChannelDegraded = errors.New("push confirmation channel degraded")
)

// Poll defaults: 120 attempts, 300ms apart.
const (
	DefaultAttempts = 120
	DefaultInterval = 300 * time.Millisecond
)

// ReceiptFetcher looks up a receipt, returning ethereum.NotFound while the transaction is pending.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Channel is a push-capable confirmation source.
//
// WaitMined returns the receipt once mined. Any error while the caller's context is still
// live, including ErrConfirmationTimeout for the channel's own budget, sends the Tracker to
// the primary endpoint.
type Channel interface {
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Tracker resolves a transaction hash into its receipt.
type Tracker struct {
	primary  ReceiptFetcher
	push     Channel
	attempts int
	interval time.Duration
	logger   logrus.FieldLogger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPushChannel sets the channel tried before polling.
func WithPushChannel(ch Channel) Option {
	return func(t *Tracker) {
		t.push = ch
	}
}

// WithAttempts sets the number of receipt polls before giving up.
func WithAttempts(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.attempts = n
		}
	}
}

// WithInterval sets the delay between receipt polls.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithLogger sets the logger used for degradation warnings and poll tracing.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker returns a Tracker polling primary.
func NewTracker(primary ReceiptFetcher, opts ...Option) *Tracker {
	tracker := &Tracker{
		primary:  primary,
		attempts: DefaultAttempts,
		interval: DefaultInterval,
		logger:   logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(tracker)
	}

	return tracker
}

// pushResult classifies what the push channel reported.
type pushResult int

const (
	pushMined     pushResult = iota // Receipt delivered
	pushCancelled                   // The caller's context ended; fatal
	pushDegraded                    // The channel failed or ran out of time; fall back to polling
)

func classifyPush(ctx context.Context, receipt *types.Receipt, err error) pushResult {
	switch {
	case err == nil && receipt != nil:
		return pushMined
	case ctx.Err() != nil:
		return pushCancelled
	default:
		return pushDegraded
	}
}

// Await blocks until hash is mined and returns its receipt. Only the primary endpoint can
// report ErrConfirmationTimeout: a push channel that fails or exhausts its own budget is
// followed by a full poll of primary.
func (t *Tracker) Await(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if t.push != nil {
		receipt, err := t.push.WaitMined(ctx, hash)

		switch classifyPush(ctx, receipt, err) {
		case pushMined:
			return receipt, nil

		case pushCancelled:
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ErrConfirmationCancelled)

		case pushDegraded:
			if err == nil {
				err = ErrChannelDegraded
			}

			t.logger.WithError(err).WithField("tx", hash.Hex()).
				Warn("Push confirmation channel failed; falling back to polling")
		}
	}

	return t.poll(ctx, hash)
}

// receiptPollResult is the outcome of a single receipt poll attempt.
type receiptPollResult int

const (
	pollContinue  receiptPollResult = iota // Receipt not found yet
	pollRetry                              // Lookup failed; counts as an attempt
	pollSuccess                            // Receipt found
	pollCancelled                          // Context cancelled
)

func (t *Tracker) poll(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var lastErr error

	for attempt := 1; attempt <= t.attempts; attempt++ {
		result, receipt, err := t.pollOnce(ctx, hash)

		switch result {
		case pollSuccess:
			return receipt, nil

		case pollCancelled:
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ErrConfirmationCancelled)

		case pollRetry:
			lastErr = err
			t.logger.WithError(err).WithField("attempt", attempt).Debug("Receipt lookup failed")

		case pollContinue:
		}

		if attempt == t.attempts {
			break
		}

		if !sleep(ctx, t.interval) {
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ErrConfirmationCancelled)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("waiting for %s after %d attempts: %w (last error: %w)",
			hash.Hex(), t.attempts, ErrConfirmationTimeout, lastErr)
	}

	return nil, fmt.Errorf("waiting for %s after %d attempts: %w (transaction was sent - check block explorer)",
		hash.Hex(), t.attempts, ErrConfirmationTimeout)
}

func (t *Tracker) pollOnce(ctx context.Context, hash common.Hash) (receiptPollResult, *types.Receipt, error) {
	if ctx.Err() != nil {
		return pollCancelled, nil, nil
	}

	receipt, err := t.primary.TransactionReceipt(ctx, hash)
	if err != nil {
		switch {
		case errors.Is(err, ethereum.NotFound):
			return pollContinue, nil, nil
		case ctx.Err() != nil:
			return pollCancelled, nil, nil
		default:
			return pollRetry, nil, err
		}
	}

	if receipt == nil {
		return pollContinue, nil, nil
	}

	return pollSuccess, receipt, nil
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
