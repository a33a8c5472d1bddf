package cgr

import (
	"encoding/json"
	"os"
	"path"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// file trace.go holds the diagnostic trace machinery: a manager gathering
// serialized records of search relaxations, route commitments, and
// depletion transitions, written out post-run for analysis

type TraceRecordType int

const (
	SearchType TraceRecordType = iota
	CommitType
	DepleteType
)

type TraceInst struct {
	TraceTime string
	TraceType string
	TraceStr  string
}

// NameType is an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// TraceManager gathers information about a simulation model and an
// execution of that model
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(ExpName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = ExpName
	tm.NameByID = make(map[int]NameType)  // dictionary of id code -> (name,type)
	tm.Traces = make(map[int][]TraceInst) // traces have per-bundle origins, are saved by index to these
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace creates a record of the trace using its calling arguments, and stores it
func (tm *TraceManager) AddTrace(time float64, execID int, trace TraceInst) {

	// return if we aren't using the trace manager
	if !tm.InUse {
		return
	}

	_, present := tm.Traces[execID]
	if !present {
		tm.Traces[execID] = make([]TraceInst, 0)
	}
	tm.Traces[execID] = append(tm.Traces[execID], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if !globalOrder {
		if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
			bytes, merr = yaml.Marshal(*tm)
		} else if pathExt == ".json" || pathExt == ".JSON" {
			bytes, merr = json.MarshalIndent(*tm, "", "\t")
		}

		if merr != nil {
			panic(merr)
		}
	} else {
		ntm := new(TraceManager)
		ntm.InUse = tm.InUse
		ntm.ExpName = tm.ExpName
		ntm.NameByID = make(map[int]NameType)
		for key, value := range tm.NameByID {
			ntm.NameByID[key] = value
		}
		ntm.Traces = make(map[int][]TraceInst)
		ntm.Traces[0] = make([]TraceInst, 0)
		for _, valueList := range tm.Traces {
			ntm.Traces[0] = append(ntm.Traces[0], valueList...)
		}

		sort.Slice(ntm.Traces[0], func(i, j int) bool {
			v1, _ := strconv.ParseFloat(ntm.Traces[0][i].TraceTime, 64)
			v2, _ := strconv.ParseFloat(ntm.Traces[0][j].TraceTime, 64)
			return v1 < v2
		})
		if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
			bytes, merr = yaml.Marshal(*ntm)
		} else if pathExt == ".json" || pathExt == ".JSON" {
			bytes, merr = json.MarshalIndent(*ntm, "", "\t")
		}

		if merr != nil {
			panic(merr)
		}
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
	return true
}

// SearchTrace saves information about one relaxation the route search
// performed, for post-run analysis
type SearchTrace struct {
	Time    float64 // search start time
	SrcID   int     // root node of the search
	DstID   int     // destination node, -1 for all-destinations mode
	ObjID   int     // contact relaxed
	TxStart float64 // transmission start computed for the contact
	Arrival float64 // arrival time achieved through the contact
}

func (str *SearchTrace) TraceType() TraceRecordType {
	return SearchType
}

func (str *SearchTrace) Serialize() string {
	var bytes []byte
	var merr error

	bytes, merr = yaml.Marshal(*str)

	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// CommitTrace saves information about one hop of a committed route
type CommitTrace struct {
	Time     float64 // bundle start time
	BndlID   string  // bundle whose route was committed
	ObjID    int     // contact committed to
	TxStart  float64
	Duration float64
	Residual float64 // residual volume after the commitment
}

func (ct *CommitTrace) TraceType() TraceRecordType {
	return CommitType
}

func (ct *CommitTrace) Serialize() string {
	var bytes []byte
	var merr error

	bytes, merr = yaml.Marshal(*ct)

	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// DepleteTrace saves information about a depletion-triggered suppression
// transition
type DepleteTrace struct {
	Time     float64
	ObjID    int // contact suppressed
	Residual float64
}

func (dt *DepleteTrace) TraceType() TraceRecordType {
	return DepleteType
}

func (dt *DepleteTrace) Serialize() string {
	var bytes []byte
	var merr error

	bytes, merr = yaml.Marshal(*dt)

	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// AddSearchTrace creates a record of a search relaxation and stores it
func (tm *TraceManager) AddSearchTrace(time float64, srcID, dstID, objID int,
	txStart, arrival float64) {

	str := new(SearchTrace)
	str.Time = time
	str.SrcID = srcID
	str.DstID = dstID
	str.ObjID = objID
	str.TxStart = txStart
	str.Arrival = arrival

	strStr := str.Serialize()
	traceTime := strconv.FormatFloat(time, 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: "search", TraceStr: strStr}
	tm.AddTrace(time, srcID, trcInst)
}

// AddCommitTrace creates a record of one hop commitment and stores it
func (tm *TraceManager) AddCommitTrace(time float64, bndlID string, cnt *Contact,
	txStart, duration float64) {

	ct := new(CommitTrace)
	ct.Time = time
	ct.BndlID = bndlID
	ct.ObjID = cnt.Number
	ct.TxStart = txStart
	ct.Duration = duration
	ct.Residual = cnt.Residual

	ctStr := ct.Serialize()
	traceTime := strconv.FormatFloat(time, 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: "commit", TraceStr: ctStr}
	tm.AddTrace(time, cnt.Number, trcInst)
}

// AddDepleteTrace creates a record of a depletion transition and stores it
func (tm *TraceManager) AddDepleteTrace(time float64, cnt *Contact) {
	dt := new(DepleteTrace)
	dt.Time = time
	dt.ObjID = cnt.Number
	dt.Residual = cnt.Residual

	dtStr := dt.Serialize()
	traceTime := strconv.FormatFloat(time, 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: "deplete", TraceStr: dtStr}
	tm.AddTrace(time, cnt.Number, trcInst)
}
