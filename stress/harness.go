// Package stress repeats one contract write sequentially and records every attempt.
package stress

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zama-ai/evm-benchmarking/executor"
)

// Writer performs one write call to a terminal state. *executor.Executor satisfies it.
type Writer interface {
	Write(ctx context.Context, call executor.Call) (*executor.WriteResult, error)
}

// Config bounds a run. A nil TotalCalls repeats until the context is cancelled.
type Config struct {
	TotalCalls *uint64
	Interval   time.Duration
}

// Calls returns a Config bounded to n calls.
func Calls(n uint64, interval time.Duration) Config {
	return Config{TotalCalls: &n, Interval: interval}
}

// Outcome is the terminal result of one attempt.
type Outcome struct {
	Index    uint64
	Success  bool
	TxHash   common.Hash
	Error    string
	Started  time.Time
	Finished time.Time
}

// HasTx reports whether the attempt produced a transaction.
func (o Outcome) HasTx() bool {
	return o.TxHash != (common.Hash{})
}

// Tally is the running success and failure count of a run.
type Tally struct {
	Attempted uint64
	Succeeded uint64
	Failed    uint64
}

func (t *Tally) add(o Outcome) {
	t.Attempted++

	if o.Success {
		t.Succeeded++
	} else {
		t.Failed++
	}
}

// ProgressFunc is invoked after each attempt with its outcome and the running tally.
type ProgressFunc func(outcome Outcome, tally Tally)

// Report is the result of a run.
type Report struct {
	Tally

	RunID     uuid.UUID
	Outcomes  []Outcome
	Elapsed   time.Duration
	Cancelled bool
}

// SuccessRate returns the share of successful attempts in [0, 1], or 0 without attempts.
func (r *Report) SuccessRate() float64 {
	if r.Attempted == 0 {
		return 0
	}

	return float64(r.Succeeded) / float64(r.Attempted)
}

// Harness drives stress runs through a Writer.
type Harness struct {
	writer Writer
	logger logrus.FieldLogger
}

// NewHarness returns a Harness writing through writer.
func NewHarness(writer Writer, logger logrus.FieldLogger) *Harness {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Harness{writer: writer, logger: logger}
}

func (c Config) done(index uint64) bool {
	return c.TotalCalls != nil && index >= *c.TotalCalls
}

// maxPreallocatedOutcomes caps the up-front outcome allocation; larger runs grow by append.
const maxPreallocatedOutcomes = 1024

// Run issues call repeatedly, one attempt at a time: attempt i+1 starts only after attempt i
// reached a terminal state. Failed attempts are recorded and do not stop the run. The
// interval is waited between attempts, never after the last one.
//
// Cancelling ctx stops the run and returns the outcomes collected so far with Cancelled set.
// An attempt interrupted by the cancellation is recorded as failed.
func (h *Harness) Run(ctx context.Context, call executor.Call, cfg Config, progress ProgressFunc) *Report {
	report := &Report{RunID: uuid.New()}
	logger := h.logger.WithField("run_id", report.RunID.String())

	if cfg.TotalCalls != nil {
		report.Outcomes = make([]Outcome, 0, min(*cfg.TotalCalls, maxPreallocatedOutcomes))
		logger = logger.WithField("total_calls", *cfg.TotalCalls)
	}

	logger.WithField("interval", cfg.Interval).Info("Stress run started")

	started := time.Now()

	for index := uint64(0); !cfg.done(index); index++ {
		if ctx.Err() != nil {
			report.Cancelled = true

			break
		}

		outcome := h.attempt(ctx, call, index)
		report.Outcomes = append(report.Outcomes, outcome)
		report.add(outcome)

		if !outcome.Success {
			logger.WithField("index", index).Debugf("Attempt failed: %s", outcome.Error)
		}

		if progress != nil {
			progress(outcome, report.Tally)
		}

		if cfg.Interval > 0 && !cfg.done(index+1) && !sleep(ctx, cfg.Interval) {
			report.Cancelled = true

			break
		}
	}

	if ctx.Err() != nil {
		report.Cancelled = true
	}

	report.Elapsed = time.Since(started)

	logger.WithFields(logrus.Fields{
		"attempted": report.Attempted,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"elapsed":   report.Elapsed,
		"cancelled": report.Cancelled,
	}).Info("Stress run finished")

	return report
}

func (h *Harness) attempt(ctx context.Context, call executor.Call, index uint64) Outcome {
	outcome := Outcome{Index: index, Started: time.Now()}

	result, err := h.writer.Write(ctx, call)
	outcome.Finished = time.Now()

	if result != nil {
		outcome.TxHash = result.TxHash
	}

	if err != nil {
		outcome.Error = err.Error()

		return outcome
	}

	outcome.Success = true

	return outcome
}

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
