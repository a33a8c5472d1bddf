package cgr

// file desc-plan.go holds structs, methods, and data structures supporting
// the construction of and access to serialized descriptions of contact
// plans and bundle workloads using the cgr API

import (
	"encoding/json"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// A NodeDesc struct holds a serializable description of a network node.
// The throughput bounds are in bytes per second; a value of 0.0 means
// the bound is absent (unlimited)
type NodeDesc struct {
	Name string `json:"name" yaml:"name"`

	// ceiling on aggregate reception rate, independent of any contact's rate
	RxRate float64 `json:"rxrate" yaml:"rxrate"`

	// ceiling on aggregate transmission rate
	TxRate float64 `json:"txrate" yaml:"txrate"`

	// ceiling on internal processing rate
	ProcRate float64 `json:"procrate" yaml:"procrate"`
}

// A ContactDesc struct holds a serializable description of one scheduled
// contact: a directed transmission opportunity from TxNode to RxNode over
// the half-open window [Start, End), in seconds
type ContactDesc struct {
	TxNode string  `json:"txnode" yaml:"txnode"`
	RxNode string  `json:"rxnode" yaml:"rxnode"`
	Start  float64 `json:"start" yaml:"start"`
	End    float64 `json:"end" yaml:"end"`

	// nominal data rate in bytes per second
	Rate float64 `json:"rate" yaml:"rate"`

	// one-way propagation delay in seconds, used when no range record covers
	// the window
	Delay float64 `json:"delay" yaml:"delay"`

	// probability the contact materializes as scheduled.  0.0 is read as 1.0
	// so that plans which omit the field behave as fully trusted
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// transmission volume in bytes.  0.0 means derive it as Rate*(End-Start)
	Volume float64 `json:"volume" yaml:"volume"`
}

// A RangeDesc struct holds a serializable description of a one-way
// propagation delay between a node pair over a time window, independent
// of which contact uses it
type RangeDesc struct {
	FromNode string  `json:"fromnode" yaml:"fromnode"`
	ToNode   string  `json:"tonode" yaml:"tonode"`
	Start    float64 `json:"start" yaml:"start"`
	End      float64 `json:"end" yaml:"end"`
	Delay    float64 `json:"delay" yaml:"delay"`
}

// A ContactPlanCfg struct holds the complete serializable description of
// a contact plan: nodes, scheduled contacts, and range records
type ContactPlanCfg struct {
	// PlanName is an identifier for this collection of contacts
	PlanName string `json:"planname" yaml:"planname"`

	Nodes    []NodeDesc    `json:"nodes" yaml:"nodes"`
	Contacts []ContactDesc `json:"contacts" yaml:"contacts"`
	Ranges   []RangeDesc   `json:"ranges" yaml:"ranges"`
}

// CreateContactPlanCfg is an initialization constructor.
// Its output struct has methods for integrating data.
func CreateContactPlanCfg(planname string) *ContactPlanCfg {
	cpc := new(ContactPlanCfg)
	cpc.PlanName = planname
	cpc.Nodes = make([]NodeDesc, 0)
	cpc.Contacts = make([]ContactDesc, 0)
	cpc.Ranges = make([]RangeDesc, 0)

	return cpc
}

// AddNode takes the parameters of a NodeDesc, creates one, and adds it to the ContactPlanCfg
func (cpc *ContactPlanCfg) AddNode(name string, rxRate, txRate, procRate float64) {
	cpc.Nodes = append(cpc.Nodes,
		NodeDesc{Name: name, RxRate: rxRate, TxRate: txRate, ProcRate: procRate})
}

// AddContact takes the parameters of a ContactDesc, creates one, and adds it to the ContactPlanCfg
func (cpc *ContactPlanCfg) AddContact(txNode, rxNode string, start, end, rate, delay float64) {
	cpc.Contacts = append(cpc.Contacts,
		ContactDesc{TxNode: txNode, RxNode: rxNode, Start: start, End: end,
			Rate: rate, Delay: delay})
}

// AddRange takes the parameters of a RangeDesc, creates one, and adds it to the ContactPlanCfg
func (cpc *ContactPlanCfg) AddRange(fromNode, toNode string, start, end, delay float64) {
	cpc.Ranges = append(cpc.Ranges,
		RangeDesc{FromNode: fromNode, ToNode: toNode, Start: start, End: end, Delay: delay})
}

// WriteToFile stores the ContactPlanCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cpc *ContactPlanCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*cpc)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*cpc, "", "\t")
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

// ReadContactPlanCfg deserializes a byte slice holding a representation of a
// ContactPlanCfg struct.  If the input argument of dict (those bytes) is empty,
// the file whose name is given is read to acquire them.  A deserialized
// representation is returned, or an error if one is generated from a file read
// or the deserialization.
func ReadContactPlanCfg(filename string, useYAML bool, dict []byte) (*ContactPlanCfg, error) {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := ContactPlanCfg{}

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

// A BundleDesc struct holds a serializable description of one bundle to be
// offered to the forwarding simulator.  A Deadline of 0.0 means no deadline.
type BundleDesc struct {
	SrcNode  string  `json:"srcnode" yaml:"srcnode"`
	DstNode  string  `json:"dstnode" yaml:"dstnode"`
	Size     float64 `json:"size" yaml:"size"`
	Creation float64 `json:"creation" yaml:"creation"`
	Deadline float64 `json:"deadline" yaml:"deadline"`
	Priority int     `json:"priority" yaml:"priority"`
}

// A BundleSetCfg struct holds a serializable list of bundles making up
// a forwarding workload
type BundleSetCfg struct {
	// SetName is an identifier for this collection of bundles
	SetName string `json:"setname" yaml:"setname"`

	Bundles []BundleDesc `json:"bundles" yaml:"bundles"`
}

// CreateBundleSetCfg is an initialization constructor.
func CreateBundleSetCfg(setname string) *BundleSetCfg {
	bsc := new(BundleSetCfg)
	bsc.SetName = setname
	bsc.Bundles = make([]BundleDesc, 0)

	return bsc
}

// AddBundle takes the parameters of a BundleDesc, creates one, and adds it to the BundleSetCfg
func (bsc *BundleSetCfg) AddBundle(srcNode, dstNode string, size, creation, deadline float64, priority int) {
	bsc.Bundles = append(bsc.Bundles,
		BundleDesc{SrcNode: srcNode, DstNode: dstNode, Size: size,
			Creation: creation, Deadline: deadline, Priority: priority})
}

// WriteToFile stores the BundleSetCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (bsc *BundleSetCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*bsc)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*bsc, "", "\t")
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

// ReadBundleSetCfg deserializes a byte slice holding a representation of a
// BundleSetCfg struct.  If the input argument of dict (those bytes) is empty,
// the file whose name is given is read to acquire them.
func ReadBundleSetCfg(filename string, useYAML bool, dict []byte) (*BundleSetCfg, error) {
	var err error

	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := BundleSetCfg{}

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
