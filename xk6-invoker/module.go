// Package invoker provides an xk6 extension that reads, writes and stress-tests functions of
// deployed contracts.
package invoker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/grafana/sobek"
	"github.com/sirupsen/logrus"
	"go.k6.io/k6/js/common"
	"go.k6.io/k6/js/modules"
	"go.k6.io/k6/metrics"

	"github.com/zama-ai/evm-benchmarking/confirm"
	"github.com/zama-ai/evm-benchmarking/gas"
)

// Static errors for module operations.
var (
	errUnableToParseOptions = errors.New("unable to parse options object")
	errURLRequired          = errors.New("Invoker must be initialized with a URL or a network")
	errSignerConflict       = errors.New("privateKey and mnemonic are mutually exclusive")
	errNegativeOption       = errors.New("option must be non-negative")
	errNetworksFileRequired = errors.New("network requires networksFile")
)

type invokerMetrics struct {
	RequestDuration *metrics.Metric
	TimeToMine      *metrics.Metric
	Errors          *metrics.Metric
	StressCalls     *metrics.Metric
}

func init() { //nolint:gochecknoinits // Required for k6 module registration.
	modules.Register("k6/x/invoker", &RootModule{})
}

// RootModule is the root module.
type RootModule struct{}

// NewModuleInstance implements the modules.Module interface returning a new instance for each VU.
func (*RootModule) NewModuleInstance(vu modules.VU) modules.Instance {
	return &ModuleInstance{
		vu:      vu,
		metrics: registerMetrics(vu),
	}
}

// ModuleInstance represents a k6 module instance for the invoker extension.
type ModuleInstance struct {
	vu      modules.VU
	metrics invokerMetrics
}

// Exports implements the modules.Instance interface and returns the exported types for the JS module.
func (mi *ModuleInstance) Exports() modules.Exports {
	return modules.Exports{Named: map[string]any{
		"Invoker": mi.NewInvoker,
	}}
}

// NewInvoker creates a new Invoker bound to one node and one signer.
func (mi *ModuleInstance) NewInvoker(call sobek.ConstructorCall) *sobek.Object {
	runtime := mi.vu.Runtime()

	var optionsArg map[string]any

	err := runtime.ExportTo(call.Argument(0), &optionsArg)
	if err != nil {
		common.Throw(runtime, errUnableToParseOptions)
	}

	opts, err := newOptionsFrom(optionsArg)
	if err != nil {
		common.Throw(runtime, fmt.Errorf("invalid options; reason: %w", err))
	}

	inv, err := newInvoker(mi.vu.Context(), mi.vu, mi.metrics, opts, vuLogger(mi.vu))
	if err != nil {
		common.Throw(runtime, fmt.Errorf("invalid options; reason: %w", err))
	}

	return runtime.ToValue(inv).ToObject(runtime)
}

func registerMetrics(vu modules.VU) invokerMetrics {
	registry := vu.InitEnv().Registry

	return invokerMetrics{
		RequestDuration: registry.MustNewMetric("invoker_req_duration", metrics.Trend, metrics.Time),
		TimeToMine:      registry.MustNewMetric("invoker_time_to_mine", metrics.Trend, metrics.Time),
		Errors:          registry.MustNewMetric("invoker_errors", metrics.Counter, metrics.Default),
		StressCalls:     registry.MustNewMetric("invoker_stress_calls", metrics.Counter, metrics.Default),
	}
}

// vuLogger returns the k6 logger of the init context or of the running VU.
func vuLogger(vu modules.VU) logrus.FieldLogger {
	if env := vu.InitEnv(); env != nil && env.Logger != nil {
		return env.Logger
	}

	if state := vu.State(); state != nil && state.Logger != nil {
		return state.Logger
	}

	return logrus.StandardLogger()
}

// options defines configuration options for the invoker.
type options struct {
	URL               string `js:"url"               json:"url"`
	WSURL             string `js:"wsUrl"             json:"wsUrl"`
	PrivateKey        string `js:"privateKey"        json:"privateKey"`
	Mnemonic          string `js:"mnemonic"          json:"mnemonic"`
	AccountIndex      int    `js:"accountIndex"      json:"accountIndex"`
	GasStrategy       string `js:"gasStrategy"       json:"gasStrategy"`
	StrictOverloads   bool   `js:"strictOverloads"   json:"strictOverloads"`
	ConfirmAttempts   int    `js:"confirmAttempts"   json:"confirmAttempts"`
	ConfirmIntervalMs int    `js:"confirmIntervalMs" json:"confirmIntervalMs"`
	Network           string `js:"network"           json:"network"`
	NetworksFile      string `js:"networksFile"      json:"networksFile"`
	DeploymentsDir    string `js:"deploymentsDir"    json:"deploymentsDir"`
	ArtifactsDir      string `js:"artifactsDir"      json:"artifactsDir"`

	strategy gas.Strategy
}

// newOptionsFrom validates and instantiates an options struct from its map representation
// as obtained by calling a Sobek's Runtime.ExportTo.
func newOptionsFrom(argument map[string]any) (*options, error) {
	jsonStr, err := json.Marshal(argument)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize options to JSON: %w", err)
	}

	// Unknown fields are rejected so that typos in scripts surface immediately.
	decoder := json.NewDecoder(bytes.NewReader(jsonStr))
	decoder.DisallowUnknownFields()

	var opts options

	err = decoder.Decode(&opts)
	if err != nil {
		return nil, fmt.Errorf("unable to decode options: %w", err)
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &opts, nil
}

func (o *options) validate() error {
	if o.URL == "" && o.Network == "" {
		return errURLRequired
	}

	if o.Network != "" && o.NetworksFile == "" {
		return errNetworksFileRequired
	}

	if o.PrivateKey != "" && o.Mnemonic != "" {
		return errSignerConflict
	}

	if o.AccountIndex < 0 || o.ConfirmAttempts < 0 || o.ConfirmIntervalMs < 0 {
		return errNegativeOption
	}

	strategy, err := gas.ParseStrategy(o.GasStrategy)
	if err != nil {
		return err //nolint:wrapcheck // Already names the strategy.
	}

	o.strategy = strategy

	if o.ConfirmAttempts == 0 {
		o.ConfirmAttempts = confirm.DefaultAttempts
	}

	if o.ConfirmIntervalMs == 0 {
		o.ConfirmIntervalMs = int(confirm.DefaultInterval.Milliseconds())
	}

	return nil
}

func (o *options) hasSigner() bool {
	return o.PrivateKey != "" || o.Mnemonic != ""
}
