package invoker

import (
	"strings"
	"time"

	"go.k6.io/k6/metrics"

	"github.com/zama-ai/evm-benchmarking/stress"
)

func (inv *Invoker) runtimeTagSet() *metrics.TagSet {
	if inv == nil || inv.vu == nil {
		return nil
	}

	state := inv.vu.State()
	if state == nil || state.Tags == nil {
		return nil
	}

	return state.Tags.GetCurrentValues().Tags
}

func (inv *Invoker) push(metric *metrics.Metric, tags *metrics.TagSet, value float64) {
	metrics.PushIfNotDone(inv.vu.Context(), inv.vu.State().Samples, metrics.Sample{
		TimeSeries: metrics.TimeSeries{
			Metric: metric,
			Tags:   tags,
		},
		Value: value,
		Time:  time.Now(),
	})
}

// OnRequest records the duration of one node round-trip, and an error sample when it failed.
func (inv *Invoker) OnRequest(method string, duration time.Duration, err error) {
	rootTS := inv.runtimeTagSet()
	if rootTS == nil {
		return
	}

	inv.push(inv.metrics.RequestDuration, rootTS.With("endpoint", method), metrics.D(duration))

	if err != nil {
		inv.recordError(err, method)
	}
}

// OnMined records the time between submission and confirmation.
func (inv *Invoker) OnMined(duration time.Duration) {
	rootTS := inv.runtimeTagSet()
	if rootTS == nil {
		return
	}

	inv.push(inv.metrics.TimeToMine, rootTS, metrics.D(duration))
}

func (inv *Invoker) onStressProgress(outcome stress.Outcome, tally stress.Tally) {
	status := "success"
	if !outcome.Success {
		status = "failure"
	}

	inv.logger.WithField("index", outcome.Index).Debugf("Stress call %s (%d/%d succeeded)",
		status, tally.Succeeded, tally.Attempted)

	rootTS := inv.runtimeTagSet()
	if rootTS == nil {
		return
	}

	inv.push(inv.metrics.StressCalls, rootTS.With("status", status), 1)
}

// sanitizeTagValue makes an error message usable as an InfluxDB tag value: the line protocol
// rejects unescaped commas, spaces and equals signs, and long values bloat series.
func sanitizeTagValue(msg string) string {
	const maxLen = 100

	replacer := strings.NewReplacer(
		",", "_",
		" ", "_",
		"=", "_",
		"\n", "_",
		"\r", "_",
		"\"", "",
		"'", "",
		"{", "",
		"}", "",
		"[", "",
		"]", "",
	)
	sanitized := replacer.Replace(msg)

	if len(sanitized) > maxLen {
		sanitized = sanitized[:maxLen]
	}

	return sanitized
}

// recordError emits an error metric with the method name and error message.
func (inv *Invoker) recordError(err error, method string) {
	if err == nil {
		return
	}

	rootTS := inv.runtimeTagSet()
	if rootTS == nil {
		return
	}

	tags := rootTS.With("method", method).With("reason", sanitizeTagValue(err.Error()))
	inv.push(inv.metrics.Errors, tags, 1)
}
