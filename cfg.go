package cgr

// file cfg.go holds the configuration value governing a simulator
// instance.  Every behavioral variant is selected here rather than at
// build time, so all variants coexist in one binary and can be tested
// side by side.  The combination is validated once, when the simulator
// is constructed.

import (
	"encoding/json"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// names of the route selection metrics recognized by the search engine
const (
	// earliest arrival first, the schedule-aware bundle routing order
	DistanceSABR string = "sabr"

	// fewest hops first, arrival time as tie-break
	DistanceHops string = "hops"
)

// A SimCfg struct holds the configuration of one simulator instance.
// The zero value is legal: no tracing, no capacity enforcement, no
// suppression, automatic queue management, unbounded horizon, SABR metric.
type SimCfg struct {
	// emit diagnostic trace records through the trace manager
	Tracing bool `json:"tracing" yaml:"tracing"`

	// expose per-search work area contents for diagnostics and testing
	WorkAreaAccess bool `json:"workareaaccess" yaml:"workareaaccess"`

	// enforce the node throughput bounds, each independently
	EnforceRxRate   bool `json:"enforcerxrate" yaml:"enforcerxrate"`
	EnforceTxRate   bool `json:"enforcetxrate" yaml:"enforcetxrate"`
	EnforceProcRate bool `json:"enforceprocrate" yaml:"enforceprocrate"`

	// honor the caller-supplied suppression set during search
	ContactSuppression bool `json:"contactsuppression" yaml:"contactsuppression"`

	// suppress a contact once its residual volume is exhausted.
	// Requires ContactSuppression.
	DepletionSuppress bool `json:"depletionsuppress" yaml:"depletionsuppress"`

	// suppress a contact at commit time as soon as its residual volume
	// drops below the size of the bundle just committed, rather than
	// waiting for exactly zero.  Requires DepletionSuppress.
	FirstDepleted bool `json:"firstdepleted" yaml:"firstdepleted"`

	// disable automatic advancement of earliest-transmission-opportunity
	// records; the caller supplies transmission start times explicitly
	ManualQueueing bool `json:"manualqueueing" yaml:"manualqueueing"`

	// permit residual volume to go negative on commit instead of
	// rejecting the commitment
	AllowNegativeResidual bool `json:"allownegativeresidual" yaml:"allownegativeresidual"`

	// maximum lookahead in seconds past a bundle's start time that a
	// search will consider.  0.0 means unbounded.
	Horizon float64 `json:"horizon" yaml:"horizon"`

	// route selection metric, DistanceSABR or DistanceHops.
	// An empty string selects DistanceSABR.
	Metric string `json:"metric" yaml:"metric"`
}

// CreateSimCfg is an initialization constructor returning the zero
// configuration, ready for field assignment
func CreateSimCfg() *SimCfg {
	cfg := new(SimCfg)
	return cfg
}

// Validate checks the configuration for incompatible combinations,
// returning a ConfigConflictError on the first one found.  An accepted
// configuration is never silently downgraded afterwards.
func (cfg *SimCfg) Validate() error {
	if cfg.DepletionSuppress && !cfg.ContactSuppression {
		return configConflict("depletion suppression requires contact suppression")
	}
	if cfg.FirstDepleted && !cfg.DepletionSuppress {
		return configConflict("first-depleted suppression requires depletion suppression")
	}
	if cfg.Horizon < 0.0 {
		return configConflict("search horizon %v is negative", cfg.Horizon)
	}
	if len(cfg.Metric) > 0 && cfg.Metric != DistanceSABR && cfg.Metric != DistanceHops {
		return configConflict("unrecognized route metric %s", cfg.Metric)
	}

	return nil
}

// metric resolves the configured route selection metric, mapping the
// empty string to the default
func (cfg *SimCfg) metric() string {
	if len(cfg.Metric) == 0 {
		return DistanceSABR
	}
	return cfg.Metric
}

// WriteToFile stores the SimCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cfg *SimCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*cfg)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*cfg, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	err := f.Close()
	if err != nil {
		panic(err)
	}

	return werr
}

// ReadSimCfg deserializes a byte slice holding a representation of a SimCfg
// struct.  If the input argument of dict (those bytes) is empty, the file
// whose name is given is read to acquire them.
func ReadSimCfg(filename string, useYAML bool, dict []byte) (*SimCfg, error) {
	var err error

	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := SimCfg{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}
