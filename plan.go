package cgr

// file plan.go holds the run-time representation of a contact plan:
// nodes, scheduled contacts, range records, and the capacity model.
// The plan is built once from a ContactPlanCfg description and is
// immutable thereafter except for per-contact residual volume.

import (
	"golang.org/x/exp/slices"
)

// A Node represents one endpoint in the contact plan.  The rate bounds
// cap the effective data rate of any contact touching the node when the
// corresponding enforcement option is on; 0.0 means unbounded
type Node struct {
	Name     string
	Number   int
	RxRate   float64
	TxRate   float64
	ProcRate float64
}

// A Contact represents one scheduled, directed transmission opportunity.
// All fields except Residual are fixed once the plan is built.
// Contacts are keyed by (transmitter, receiver, start time); Number is
// a plan-scoped identifier assigned at build time and used to index
// per-contact state held elsewhere (work areas, ETO records, suppression)
type Contact struct {
	Number     int
	TxNode     *Node
	RxNode     *Node
	Start      float64
	End        float64
	Rate       float64
	Delay      float64
	Confidence float64

	// Volume is the nominal transmission capacity in bytes, Residual what
	// remains of it after earlier commitments.  Residual may go negative
	// only when the simulator is configured to permit that.
	Volume   float64
	Residual float64
}

// window duration in seconds
func (cnt *Contact) duration() float64 {
	return cnt.End - cnt.Start
}

// A rangeIntrvl records a one-way propagation delay between an ordered
// node pair over a time window
type rangeIntrvl struct {
	from  int
	to    int
	start float64
	end   float64
	delay float64
}

// A ContactPlan holds the complete run-time schedule.  It is long-lived:
// loaded once, then consulted by every search and commitment the owning
// simulator performs
type ContactPlan struct {
	Name string

	// maps that let you use a name or number to look up a node or contact
	NodeByName  map[string]*Node
	NodeByID    map[int]*Node
	ContactByID map[int]*Contact

	// outbound lists each node's contacts as transmitter, kept sorted by
	// start time so searches can scan them in opportunity order
	outbound map[int][]*Contact

	// ranges keyed by ordered node pair, each list sorted by start time
	ranges map[[2]int][]*rangeIntrvl

	numberOfNodes    int
	numberOfContacts int
}

// CreateContactPlan is an initialization constructor.
// Its output struct has methods for integrating data.
func CreateContactPlan(name string) *ContactPlan {
	cp := new(ContactPlan)
	cp.Name = name
	cp.NodeByName = make(map[string]*Node)
	cp.NodeByID = make(map[int]*Node)
	cp.ContactByID = make(map[int]*Contact)
	cp.outbound = make(map[int][]*Contact)
	cp.ranges = make(map[[2]int][]*rangeIntrvl)

	return cp
}

// AddNode creates a Node from its description and integrates it into the plan.
// An error is returned when the name duplicates a node already present.
func (cp *ContactPlan) AddNode(nd NodeDesc) error {
	_, present := cp.NodeByName[nd.Name]
	if present {
		return invalidPlan("duplicated node name %s", nd.Name)
	}
	if nd.RxRate < 0.0 || nd.TxRate < 0.0 || nd.ProcRate < 0.0 {
		return invalidPlan("node %s has a negative rate bound", nd.Name)
	}

	node := &Node{Name: nd.Name, Number: cp.numberOfNodes,
		RxRate: nd.RxRate, TxRate: nd.TxRate, ProcRate: nd.ProcRate}
	cp.numberOfNodes += 1

	cp.NodeByName[node.Name] = node
	cp.NodeByID[node.Number] = node
	cp.outbound[node.Number] = make([]*Contact, 0)

	return nil
}

// AddContact creates a Contact from its description and integrates it into
// the plan, maintaining the transmitter's start-time ordering.  The structural
// violations of a malformed schedule are rejected here: an empty or inverted
// window, a non-positive rate, a reference to an absent node, and a window
// that overlaps another contact on the same ordered node pair.
func (cp *ContactPlan) AddContact(cd ContactDesc) error {
	txNode, txPresent := cp.NodeByName[cd.TxNode]
	if !txPresent {
		return invalidPlan("contact names absent transmitter %s", cd.TxNode)
	}
	rxNode, rxPresent := cp.NodeByName[cd.RxNode]
	if !rxPresent {
		return invalidPlan("contact names absent receiver %s", cd.RxNode)
	}
	if cd.End <= cd.Start {
		return invalidPlan("contact %s->%s window [%v,%v) ends at or before it starts",
			cd.TxNode, cd.RxNode, cd.Start, cd.End)
	}
	if cd.Rate <= 0.0 {
		return invalidPlan("contact %s->%s has non-positive rate %v",
			cd.TxNode, cd.RxNode, cd.Rate)
	}
	if cd.Delay < 0.0 {
		return invalidPlan("contact %s->%s has negative delay %v",
			cd.TxNode, cd.RxNode, cd.Delay)
	}
	if cd.Confidence < 0.0 || cd.Confidence > 1.0 {
		return invalidPlan("contact %s->%s has confidence %v outside [0,1]",
			cd.TxNode, cd.RxNode, cd.Confidence)
	}

	// a node cannot run two simultaneous contacts to the same peer
	for _, other := range cp.outbound[txNode.Number] {
		if other.RxNode.Number != rxNode.Number {
			continue
		}
		if cd.Start < other.End && other.Start < cd.End {
			return invalidPlan("contacts %s->%s [%v,%v) and [%v,%v) overlap",
				cd.TxNode, cd.RxNode, other.Start, other.End, cd.Start, cd.End)
		}
	}

	cnt := &Contact{Number: cp.numberOfContacts, TxNode: txNode, RxNode: rxNode,
		Start: cd.Start, End: cd.End, Rate: cd.Rate, Delay: cd.Delay,
		Confidence: cd.Confidence, Volume: cd.Volume}
	cp.numberOfContacts += 1

	// a description that omits confidence means a fully trusted contact,
	// one that omits volume means the window's nominal capacity
	if cnt.Confidence == 0.0 {
		cnt.Confidence = 1.0
	}
	if cnt.Volume == 0.0 {
		cnt.Volume = cnt.Rate * cnt.duration()
	}
	cnt.Residual = cnt.Volume

	cp.ContactByID[cnt.Number] = cnt

	outList := cp.outbound[txNode.Number]
	idx, _ := slices.BinarySearchFunc(outList, cnt,
		func(a, b *Contact) int {
			if a.Start < b.Start {
				return -1
			} else if a.Start > b.Start {
				return 1
			}
			return a.RxNode.Number - b.RxNode.Number
		})
	cp.outbound[txNode.Number] = slices.Insert(outList, idx, cnt)

	return nil
}

// AddRange creates a range record from its description and integrates it
// into the plan.  Ranges are directed; a plan wanting symmetric delays
// carries a record for each direction.
func (cp *ContactPlan) AddRange(rd RangeDesc) error {
	fromNode, fromPresent := cp.NodeByName[rd.FromNode]
	if !fromPresent {
		return invalidPlan("range names absent node %s", rd.FromNode)
	}
	toNode, toPresent := cp.NodeByName[rd.ToNode]
	if !toPresent {
		return invalidPlan("range names absent node %s", rd.ToNode)
	}
	if rd.End <= rd.Start {
		return invalidPlan("range %s->%s window [%v,%v) ends at or before it starts",
			rd.FromNode, rd.ToNode, rd.Start, rd.End)
	}
	if rd.Delay < 0.0 {
		return invalidPlan("range %s->%s has negative delay %v",
			rd.FromNode, rd.ToNode, rd.Delay)
	}

	key := [2]int{fromNode.Number, toNode.Number}
	ri := &rangeIntrvl{from: fromNode.Number, to: toNode.Number,
		start: rd.Start, end: rd.End, delay: rd.Delay}

	rngList := cp.ranges[key]
	idx, _ := slices.BinarySearchFunc(rngList, ri,
		func(a, b *rangeIntrvl) int {
			if a.start < b.start {
				return -1
			} else if a.start > b.start {
				return 1
			}
			return 0
		})
	cp.ranges[key] = slices.Insert(rngList, idx, ri)

	return nil
}

// BuildContactPlan transforms a deserialized ContactPlanCfg description into
// the run-time ContactPlan, reporting the first structural violation found
func BuildContactPlan(cpc *ContactPlanCfg) (*ContactPlan, error) {
	cp := CreateContactPlan(cpc.PlanName)

	for _, nd := range cpc.Nodes {
		err := cp.AddNode(nd)
		if err != nil {
			return nil, err
		}
	}
	for _, cd := range cpc.Contacts {
		err := cp.AddContact(cd)
		if err != nil {
			return nil, err
		}
	}
	for _, rd := range cpc.Ranges {
		err := cp.AddRange(rd)
		if err != nil {
			return nil, err
		}
	}

	return cp, nil
}

// ContactsFrom returns the contacts transmitted by the named node whose
// windows are still open at or after the given time, in start-time order.
// A contact already underway at that time is included; one whose window
// has closed is not.
func (cp *ContactPlan) ContactsFrom(nodeID int, at float64) []*Contact {
	rtn := make([]*Contact, 0)
	for _, cnt := range cp.outbound[nodeID] {
		if cnt.End <= at {
			continue
		}
		rtn = append(rtn, cnt)
	}

	return rtn
}

// DelayTo reports the one-way propagation delay from the contact's
// transmitter to its receiver at the given time.  A range record covering
// that time takes precedence; otherwise the contact's own delay applies.
func (cp *ContactPlan) DelayTo(cnt *Contact, at float64) float64 {
	key := [2]int{cnt.TxNode.Number, cnt.RxNode.Number}
	for _, ri := range cp.ranges[key] {
		if ri.start <= at && at < ri.end {
			return ri.delay
		}
		if ri.start > at {
			break
		}
	}

	return cnt.Delay
}

// NodeCapacity returns the node's rate bounds (rx, tx, proc), with 0.0
// marking an absent bound
func (cp *ContactPlan) NodeCapacity(nodeID int) (float64, float64, float64) {
	node, present := cp.NodeByID[nodeID]
	if !present {
		return 0.0, 0.0, 0.0
	}
	return node.RxRate, node.TxRate, node.ProcRate
}

// effectiveRate computes the data rate actually available on a contact,
// the nominal rate capped by whichever node throughput bounds the
// configuration enforces.  Composes with, and is independent of, the
// contact's residual volume.
func (cp *ContactPlan) effectiveRate(cnt *Contact, cfg *SimCfg) float64 {
	rate := cnt.Rate
	if cfg.EnforceTxRate && cnt.TxNode.TxRate > 0.0 && cnt.TxNode.TxRate < rate {
		rate = cnt.TxNode.TxRate
	}
	if cfg.EnforceRxRate && cnt.RxNode.RxRate > 0.0 && cnt.RxNode.RxRate < rate {
		rate = cnt.RxNode.RxRate
	}
	if cfg.EnforceProcRate && cnt.RxNode.ProcRate > 0.0 && cnt.RxNode.ProcRate < rate {
		rate = cnt.RxNode.ProcRate
	}

	return rate
}

// DescribeCfg rebuilds a serializable ContactPlanCfg from the run-time plan.
// Together with BuildContactPlan it makes the file-format boundary a round
// trip: the set of nodes, contacts, and ranges is preserved exactly.
func (cp *ContactPlan) DescribeCfg() *ContactPlanCfg {
	cpc := CreateContactPlanCfg(cp.Name)

	for idx := 0; idx < cp.numberOfNodes; idx++ {
		node := cp.NodeByID[idx]
		cpc.Nodes = append(cpc.Nodes, NodeDesc{Name: node.Name,
			RxRate: node.RxRate, TxRate: node.TxRate, ProcRate: node.ProcRate})
	}
	for idx := 0; idx < cp.numberOfContacts; idx++ {
		cnt := cp.ContactByID[idx]
		cpc.Contacts = append(cpc.Contacts, ContactDesc{
			TxNode: cnt.TxNode.Name, RxNode: cnt.RxNode.Name,
			Start: cnt.Start, End: cnt.End, Rate: cnt.Rate, Delay: cnt.Delay,
			Confidence: cnt.Confidence, Volume: cnt.Volume})
	}
	allRanges := make([]*rangeIntrvl, 0)
	for _, rngList := range cp.ranges {
		allRanges = append(allRanges, rngList...)
	}
	slices.SortFunc(allRanges, func(a, b *rangeIntrvl) int {
		if a.from != b.from {
			return a.from - b.from
		}
		if a.to != b.to {
			return a.to - b.to
		}
		if a.start < b.start {
			return -1
		} else if a.start > b.start {
			return 1
		}
		return 0
	})
	for _, ri := range allRanges {
		cpc.Ranges = append(cpc.Ranges, RangeDesc{
			FromNode: cp.NodeByID[ri.from].Name, ToNode: cp.NodeByID[ri.to].Name,
			Start: ri.start, End: ri.end, Delay: ri.delay})
	}

	return cpc
}
