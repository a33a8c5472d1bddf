package cgr

// file forward.go holds the bundle forwarding simulator: the owner of one
// contact plan's mutable residual/opportunity/suppression state.  Bundles
// are processed strictly one at a time, each moving through
// Pending -> Searching -> {Routed, Unroutable, Expired}; an earlier
// bundle's commitments are part of the routing semantics for later ones,
// so the processing order matters and is fixed up front.

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"golang.org/x/exp/slices"
)

// BundleState enumerates the stations of a bundle's forwarding lifecycle
type BundleState int

const (
	BundlePending BundleState = iota
	BundleSearching
	BundleRouted
	BundleUnroutable
	BundleExpired
)

func (bs BundleState) String() string {
	switch bs {
	case BundlePending:
		return "Pending"
	case BundleSearching:
		return "Searching"
	case BundleRouted:
		return "Routed"
	case BundleUnroutable:
		return "Unroutable"
	case BundleExpired:
		return "Expired"
	}
	return "Unknown"
}

// A Bundle is one unit of data offered to the simulator for forwarding.
// Bundles are not part of the contact plan; they are consumed one at a
// time and their outcomes reported back.
type Bundle struct {
	// ID tags the bundle in outcomes and trace records
	ID string

	SrcID int
	DstID int

	// size in bytes
	Size float64

	Creation float64

	// latest acceptable arrival time, 0.0 for none
	Deadline float64

	// larger values are forwarded earlier among bundles created at the
	// same time
	Priority int

	State BundleState
}

// CreateBundle is an initialization constructor.  A fresh identifier is
// assigned; the caller supplies everything else.
func CreateBundle(srcID, dstID int, size, creation, deadline float64, priority int) *Bundle {
	bndl := new(Bundle)
	bndl.ID = uuid.New().String()
	bndl.SrcID = srcID
	bndl.DstID = dstID
	bndl.Size = size
	bndl.Creation = creation
	bndl.Deadline = deadline
	bndl.Priority = priority
	bndl.State = BundlePending

	return bndl
}

// BuildBundles transforms a deserialized BundleSetCfg description into
// run-time bundles, resolving node names against the plan
func BuildBundles(bsc *BundleSetCfg, cp *ContactPlan) ([]*Bundle, error) {
	bundles := make([]*Bundle, 0, len(bsc.Bundles))

	for _, bd := range bsc.Bundles {
		srcNode, srcPresent := cp.NodeByName[bd.SrcNode]
		if !srcPresent {
			return nil, fmt.Errorf("bundle names absent source node %s", bd.SrcNode)
		}
		dstNode, dstPresent := cp.NodeByName[bd.DstNode]
		if !dstPresent {
			return nil, fmt.Errorf("bundle names absent destination node %s", bd.DstNode)
		}
		bundles = append(bundles,
			CreateBundle(srcNode.Number, dstNode.Number, bd.Size, bd.Creation,
				bd.Deadline, bd.Priority))
	}

	return bundles, nil
}

// An Outcome reports what the simulator decided for one bundle.  Route and
// Arrival are meaningful only in the Routed state; Err carries the reason
// for an Unroutable outcome and is informational, never a run-stopper.
type Outcome struct {
	Bundle  *Bundle
	State   BundleState
	Route   *Route
	Arrival float64
	Err     error
}

// A Simulator owns one contact plan together with all the mutable state
// routing decisions read and write: opportunity records, suppression,
// residual volumes, and node load accounting.  Concurrent use of one
// Simulator is not supported; callers wanting parallelism run independent
// Simulators over independent plans.
type Simulator struct {
	Plan *ContactPlan
	Cfg  *SimCfg
	Eto  *ETOManager
	Sup  *SuppressionSet

	search *RouteSearch
	ng     *nodeGraph
	guard  *reuseGuard
	tm     *TraceManager

	// per-node, per-second accounting of committed throughput, maintained
	// when any node capacity bound is enforced.  Outer key is node number,
	// inner key the integer second of the transfer.
	nodeLoads map[int]map[int]float64

	// work area of the most recent search, retained only under the
	// introspection option
	lastWA *WorkArea

	// outcomes accumulated by ForwardAll and the event-driven runner
	Outcomes []*Outcome
}

// CreateSimulator is an initialization constructor.  The configuration is
// validated here; an incompatible combination is rejected before any state
// is built.
func CreateSimulator(cp *ContactPlan, cfg *SimCfg, tm *TraceManager) (*Simulator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	sim := new(Simulator)
	sim.Plan = cp
	sim.Cfg = cfg
	sim.Eto = CreateETOManager(cfg.ManualQueueing)
	sim.Sup = CreateSuppressionSet(cfg)
	sim.tm = tm
	sim.search = CreateRouteSearch(cp, cfg, sim.Eto, sim.Sup, tm)
	sim.ng = buildNodeGraph(cp)
	sim.guard = createReuseGuard(sim.Sup)
	sim.nodeLoads = make(map[int]map[int]float64)
	sim.Outcomes = make([]*Outcome, 0)

	return sim, nil
}

// Search exposes the simulator's route search for read-only queries that
// commit nothing
func (sim *Simulator) Search() *RouteSearch {
	return sim.search
}

// LastWorkArea returns the work area of the most recent search, available
// only when work area introspection is configured
func (sim *Simulator) LastWorkArea() (*WorkArea, error) {
	if !sim.Cfg.WorkAreaAccess {
		return nil, fmt.Errorf("work area introspection is not configured")
	}
	return sim.lastWA, nil
}

// NodeLoad reports the bytes committed against the node during the
// one-second bucket beginning at the given integer second
func (sim *Simulator) NodeLoad(nodeID, second int) float64 {
	return sim.nodeLoads[nodeID][second]
}

func (sim *Simulator) addNodeLoad(nodeID int, at, size float64) {
	_, present := sim.nodeLoads[nodeID]
	if !present {
		sim.nodeLoads[nodeID] = make(map[int]float64)
	}
	sim.nodeLoads[nodeID][int(at)] += size
}

// Forward runs one bundle through the forwarding decision: search under
// the current suppression/opportunity/residual state, deadline check, and
// on success the commitment of volume and queue backlog on every hop.
// The outcome is recorded on the simulator and returned; no outcome ever
// aborts the run.
func (sim *Simulator) Forward(bndl *Bundle) *Outcome {
	bndl.State = BundleSearching
	outcome := &Outcome{Bundle: bndl}

	rt, err := sim.findFor(bndl)
	if err != nil {
		bndl.State = BundleUnroutable
		outcome.State = BundleUnroutable
		outcome.Err = err
		sim.Outcomes = append(sim.Outcomes, outcome)
		return outcome
	}

	// a deliverable bundle that cannot make its deadline is a distinct
	// outcome, and commits nothing
	if bndl.Deadline > 0.0 && rt.Arrival > bndl.Deadline {
		bndl.State = BundleExpired
		outcome.State = BundleExpired
		outcome.Route = rt
		outcome.Arrival = rt.Arrival
		sim.Outcomes = append(sim.Outcomes, outcome)
		return outcome
	}

	err = sim.commitRoute(bndl, rt)
	if err != nil {
		bndl.State = BundleUnroutable
		outcome.State = BundleUnroutable
		outcome.Err = err
		sim.Outcomes = append(sim.Outcomes, outcome)
		return outcome
	}

	bndl.State = BundleRouted
	outcome.State = BundleRouted
	outcome.Route = rt
	outcome.Arrival = rt.Arrival
	sim.Outcomes = append(sim.Outcomes, outcome)

	return outcome
}

// findFor performs the search for one bundle, applying the fast-fail
// filters first: the reuse guard's record of proven-hopeless searches, and
// static unreachability in the node graph
func (sim *Simulator) findFor(bndl *Bundle) (*Route, error) {
	if !sim.ng.reachable(bndl.SrcID, bndl.DstID) {
		return nil, fmt.Errorf("destination %d disconnected from %d: %w",
			bndl.DstID, bndl.SrcID, ErrNoRoute)
	}
	if sim.guard.hopeless(bndl.SrcID, bndl.DstID, bndl.Size) {
		return nil, fmt.Errorf("destination %d known unreachable from %d for size %v: %w",
			bndl.DstID, bndl.SrcID, bndl.Size, ErrNoRoute)
	}

	rt, wa, err := sim.search.FindRoute(bndl.SrcID, bndl.Creation, bndl.DstID, bndl.Size)
	if sim.Cfg.WorkAreaAccess {
		sim.lastWA = wa
	}
	if err != nil {
		if errors.Is(err, ErrNoRoute) {
			sim.guard.noteFailure(bndl.SrcID, bndl.DstID, bndl.Size)
		}
		return nil, err
	}

	return rt, nil
}

// commitRoute applies a selected route's consequences to every hop:
// residual volume drops by the bundle size, the transmission is queued
// behind the contact's backlog, the depletion policy is consulted, and
// node load accounting is updated.  The residual check runs over the whole
// route before anything mutates, so a rejected commitment leaves no
// partial state behind.
func (sim *Simulator) commitRoute(bndl *Bundle, rt *Route) error {
	if !sim.Cfg.AllowNegativeResidual {
		for _, cnt := range rt.Hops {
			if cnt.Residual < bndl.Size {
				return fmt.Errorf("contact %d residual %v cannot carry %v: %w",
					cnt.Number, cnt.Residual, bndl.Size, ErrContactDepleted)
			}
		}
	}

	capModel := sim.Cfg.EnforceRxRate || sim.Cfg.EnforceTxRate || sim.Cfg.EnforceProcRate

	for idx, cnt := range rt.Hops {
		txStart := rt.TxStarts[idx]
		duration := rt.Durations[idx]

		cnt.Residual -= bndl.Size
		if cnt.Residual < 0.0 && !sim.Cfg.AllowNegativeResidual {
			cnt.Residual = 0.0
		}

		sim.Eto.Commit(cnt, txStart, duration)

		traceOn := sim.Cfg.Tracing && sim.tm != nil && sim.tm.Active()

		if sim.Sup.NoteCommit(cnt, bndl.Size) && traceOn {
			sim.tm.AddDepleteTrace(txStart, cnt)
		}

		if capModel {
			arrival := txStart + duration + sim.Plan.DelayTo(cnt, txStart)
			sim.addNodeLoad(cnt.TxNode.Number, txStart, bndl.Size)
			sim.addNodeLoad(cnt.RxNode.Number, arrival, bndl.Size)
		}

		if traceOn {
			sim.tm.AddCommitTrace(bndl.Creation, bndl.ID, cnt, txStart, duration)
		}
	}

	return nil
}

// orderBundles fixes the processing order: creation time first, then
// priority (larger first), then identifier, so a fixed workload always
// replays identically
func orderBundles(bundles []*Bundle) []*Bundle {
	ordered := slices.Clone(bundles)
	slices.SortFunc(ordered, func(a, b *Bundle) int {
		if a.Creation < b.Creation {
			return -1
		} else if a.Creation > b.Creation {
			return 1
		}
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		if a.ID < b.ID {
			return -1
		} else if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return ordered
}

// ForwardAll processes a workload synchronously in the fixed order,
// returning the outcomes in that order
func (sim *Simulator) ForwardAll(bundles []*Bundle) []*Outcome {
	rtn := make([]*Outcome, 0, len(bundles))
	for _, bndl := range orderBundles(bundles) {
		rtn = append(rtn, sim.Forward(bndl))
	}

	return rtn
}

// RunBundles schedules the workload on the event manager, one arrival
// event per bundle at its creation time.  Outcomes accumulate on the
// simulator as the events execute.
func (sim *Simulator) RunBundles(evtMgr *evtm.EventManager, bundles []*Bundle) {
	for _, bndl := range orderBundles(bundles) {
		offset := bndl.Creation - evtMgr.CurrentSeconds()
		if offset < 0.0 {
			offset = 0.0
		}
		evtMgr.Schedule(sim, bndl, bndlArrival, vrtime.SecondsToTime(offset))
	}
}

// bndlArrival is the event handler marking a bundle's creation: the moment
// the forwarding decision for it is made
func bndlArrival(evtMgr *evtm.EventManager, context any, data any) any {
	sim := context.(*Simulator)
	bndl := data.(*Bundle)

	sim.Forward(bndl)

	return nil
}
