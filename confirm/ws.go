package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

var errSubscriptionClosed = errors.New("newHeads subscription closed")

// wsBackend is the part of *ethclient.Client used over the WebSocket connection.
type wsBackend interface {
	ReceiptFetcher
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	Close()
}

// WSChannel confirms transactions over a WebSocket endpoint: the receipt is checked
// whenever a new head arrives, and on a fixed tick in case a head notification is lost.
// The connection is dialled lazily, kept across calls and re-dialled after a failure.
type WSChannel struct {
	url      string
	timeout  time.Duration
	interval time.Duration
	logger   logrus.FieldLogger
	dial     func(ctx context.Context, url string) (wsBackend, error)

	mu     sync.Mutex
	client wsBackend
}

// NewWSChannel returns a channel for url. An http(s) URL is rewritten to ws(s).
// Each wait gives up after attempts*interval.
func NewWSChannel(url string, attempts int, interval time.Duration, logger logrus.FieldLogger) *WSChannel {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	if interval <= 0 {
		interval = DefaultInterval
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &WSChannel{
		url:      ToWS(url),
		timeout:  time.Duration(attempts) * interval,
		interval: interval,
		logger:   logger,
		dial: func(ctx context.Context, url string) (wsBackend, error) {
			client, err := ethclient.DialContext(ctx, url)
			if err != nil {
				return nil, err //nolint:wrapcheck // Wrapped by connect.
			}

			return client, nil
		},
	}
}

// ToWS rewrites an http(s) endpoint into its ws(s) form and leaves other URLs unchanged.
func ToWS(url string) string {
	if after, found := strings.CutPrefix(url, "http://"); found {
		return "ws://" + after
	}

	if after, found := strings.CutPrefix(url, "https://"); found {
		return "wss://" + after
	}

	return url
}

// URL returns the WebSocket endpoint.
func (w *WSChannel) URL() string {
	return w.url
}

func (w *WSChannel) connect(ctx context.Context) (wsBackend, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.client != nil {
		return w.client, nil
	}

	client, err := w.dial(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrChannelDegraded, w.url, err)
	}

	w.client = client

	return client, nil
}

// drop closes a connection that failed so the next wait dials afresh.
func (w *WSChannel) drop(client wsBackend) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.client == client {
		w.client = nil
	}

	client.Close()
}

// Close releases the WebSocket connection, if any.
func (w *WSChannel) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}

// WaitMined implements Channel.
func (w *WSChannel) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	client, err := w.connect(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	heads := make(chan *types.Header, 1)

	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		if ctx.Err() == nil {
			w.drop(client)
		}

		return nil, fmt.Errorf("%w: subscribe newHeads: %w", ErrChannelDegraded, err)
	}
	defer sub.Unsubscribe()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)

		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err == nil, errors.Is(err, ethereum.NotFound):
		case ctx.Err() != nil:
			return nil, w.waitErr(ctx, hash)
		default:
			w.drop(client)

			return nil, fmt.Errorf("%w: receipt lookup: %w", ErrChannelDegraded, err)
		}

		select {
		case header := <-heads:
			w.logger.WithField("block", header.Number).Debug("New head while awaiting receipt")
		case <-ticker.C:
		case err := <-sub.Err():
			w.drop(client)

			if err == nil {
				err = errSubscriptionClosed
			}

			return nil, fmt.Errorf("%w: %w", ErrChannelDegraded, err)
		case <-ctx.Done():
			return nil, w.waitErr(ctx, hash)
		}
	}
}

func (w *WSChannel) waitErr(ctx context.Context, hash common.Hash) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s not mined within %s", ErrConfirmationTimeout, hash.Hex(), w.timeout)
	}

	return ctx.Err()
}
