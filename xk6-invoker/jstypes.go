package invoker

import (
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/zama-ai/evm-benchmarking/executor"
	"github.com/zama-ai/evm-benchmarking/gas"
	"github.com/zama-ai/evm-benchmarking/stress"
)

// The types below carry js struct tags for k6's Go-to-JavaScript bridge, which otherwise
// maps field names to snake_case. Big numbers cross the bridge as decimal strings.

// Output is one labelled return value of a read.
type Output struct {
	Name  string `js:"name"`
	Type  string `js:"type"`
	Value string `js:"value"`
}

// Receipt is the subset of a mined receipt scripts inspect.
type Receipt struct {
	Type              uint8  `js:"type"`
	Status            uint64 `js:"status"`
	CumulativeGasUsed uint64 `js:"cumulativeGasUsed"`
	TxHash            string `js:"transactionHash"`
	GasUsed           uint64 `js:"gasUsed"`
	EffectiveGasPrice string `js:"effectiveGasPrice"`
	BlockHash         string `js:"blockHash"`
	BlockNumber       uint64 `js:"blockNumber"`
	TransactionIndex  uint   `js:"transactionIndex"`
	Logs              int    `js:"logs"`
}

// TxResult describes a write.
type TxResult struct {
	State                string   `js:"state"`
	TxHash               string   `js:"txHash"`
	GasLimit             uint64   `js:"gasLimit"`
	GasPrice             string   `js:"gasPrice,omitempty"`
	MaxFeePerGas         string   `js:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string   `js:"maxPriorityFeePerGas,omitempty"`
	ElapsedMs            int64    `js:"elapsedMs"`
	Receipt              *Receipt `js:"receipt"`
}

// StressOutcome is one attempt of a stress run.
type StressOutcome struct {
	Index      uint64 `js:"index"`
	Success    bool   `js:"success"`
	TxHash     string `js:"txHash"`
	Error      string `js:"error"`
	DurationMs int64  `js:"durationMs"`
}

// StressReport summarizes a stress run.
type StressReport struct {
	RunID       string           `js:"runId"`
	Attempted   uint64           `js:"attempted"`
	Succeeded   uint64           `js:"succeeded"`
	Failed      uint64           `js:"failed"`
	SuccessRate float64          `js:"successRate"`
	ElapsedMs   int64            `js:"elapsedMs"`
	Cancelled   bool             `js:"cancelled"`
	Outcomes    []*StressOutcome `js:"outcomes"`
}

// NewOutputs converts decoded read outputs.
func NewOutputs(outputs []executor.Output) []*Output {
	converted := make([]*Output, len(outputs))
	for i, out := range outputs {
		converted[i] = &Output{Name: out.Name, Type: out.Type, Value: out.Display}
	}

	return converted
}

// NewReceipt converts a go-ethereum Receipt.
func NewReceipt(inputReceipt *types.Receipt) *Receipt {
	if inputReceipt == nil {
		return nil
	}

	receipt := &Receipt{
		Type:              inputReceipt.Type,
		Status:            inputReceipt.Status,
		CumulativeGasUsed: inputReceipt.CumulativeGasUsed,
		TxHash:            inputReceipt.TxHash.Hex(),
		GasUsed:           inputReceipt.GasUsed,
		BlockHash:         inputReceipt.BlockHash.Hex(),
		TransactionIndex:  inputReceipt.TransactionIndex,
		Logs:              len(inputReceipt.Logs),
	}

	if inputReceipt.EffectiveGasPrice != nil {
		receipt.EffectiveGasPrice = inputReceipt.EffectiveGasPrice.String()
	}

	if inputReceipt.BlockNumber != nil {
		receipt.BlockNumber = inputReceipt.BlockNumber.Uint64()
	}

	return receipt
}

// NewTxResult converts an executor write result.
func NewTxResult(result *executor.WriteResult) *TxResult {
	if result == nil {
		return nil
	}

	converted := &TxResult{
		State:     result.State.String(),
		GasLimit:  result.Policy.GasLimit,
		ElapsedMs: result.Elapsed.Milliseconds(),
		Receipt:   NewReceipt(result.Receipt),
	}

	if result.Submitted() {
		converted.TxHash = result.TxHash.Hex()
	}

	setFees(converted, result.Policy)

	return converted
}

func setFees(result *TxResult, policy gas.Policy) {
	if policy.IsDynamic() {
		result.MaxFeePerGas = policy.FeeCap.String()
		result.MaxPriorityFeePerGas = policy.TipCap.String()

		return
	}

	if policy.GasPrice != nil {
		result.GasPrice = policy.GasPrice.String()
	}
}

// NewStressReport converts a stress report.
func NewStressReport(report *stress.Report) *StressReport {
	outcomes := make([]*StressOutcome, len(report.Outcomes))

	for i, outcome := range report.Outcomes {
		converted := &StressOutcome{
			Index:      outcome.Index,
			Success:    outcome.Success,
			Error:      outcome.Error,
			DurationMs: outcome.Finished.Sub(outcome.Started).Milliseconds(),
		}

		if outcome.HasTx() {
			converted.TxHash = outcome.TxHash.Hex()
		}

		outcomes[i] = converted
	}

	return &StressReport{
		RunID:       report.RunID.String(),
		Attempted:   report.Attempted,
		Succeeded:   report.Succeeded,
		Failed:      report.Failed,
		SuccessRate: report.SuccessRate(),
		ElapsedMs:   report.Elapsed.Milliseconds(),
		Cancelled:   report.Cancelled,
		Outcomes:    outcomes,
	}
}
