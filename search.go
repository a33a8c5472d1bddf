package cgr

// file search.go holds the time-respecting route search engine.  The
// search is Dijkstra over nodes, with edge relaxation constrained by
// contact windows, queue backlog, and causality: data cannot begin
// transmission on a contact before it has arrived at the transmitter,
// before the contact's window opens, or before the contact's committed
// backlog drains.

import (
	"container/heap"
	"fmt"
)

// A ContactWork record is the transient per-contact scratch state of one
// search invocation: the earliest arrival achieved through the contact,
// the transmission start that achieves it, and the predecessor contact on
// that best path.  Never persisted across searches.
type ContactWork struct {
	Arrival float64
	TxStart float64

	// predecessor contact number on the best path, -1 at the root
	Pred int

	Visited bool
}

// nodeWork carries a node's best-known tentative state during a search
type nodeWork struct {
	arrival float64

	// contact number through which the best arrival was achieved, -1 for
	// the root node
	via int

	hops    int
	conf    float64
	settled bool
}

// A WorkArea aggregates the scratch state of one search invocation.
// Allocated fresh per search and discarded afterwards, so read-only
// queries against a frozen plan can run concurrently without aliasing.
type WorkArea struct {
	Contacts map[int]*ContactWork

	nodes map[int]*nodeWork
}

func createWorkArea() *WorkArea {
	wa := new(WorkArea)
	wa.Contacts = make(map[int]*ContactWork)
	wa.nodes = make(map[int]*nodeWork)

	return wa
}

// ArrivalAt reports the best arrival time the search achieved at the
// named node, and whether the node was reached at all
func (wa *WorkArea) ArrivalAt(nodeID int) (float64, bool) {
	nw, present := wa.nodes[nodeID]
	if !present {
		return 0.0, false
	}
	return nw.arrival, true
}

// frntrItem is one entry in the search frontier
type frntrItem struct {
	nodeID  int
	arrival float64
	conf    float64
	hops    int
}

// frontier is a priority queue of tentative node states, ordered by the
// configured route metric.  Ties are broken by node number so that a
// fixed input always pops in the same order.
type frontier struct {
	items  []frntrItem
	metric string
}

func (fr *frontier) Len() int { return len(fr.items) }

func (fr *frontier) Less(i, j int) bool {
	return lessByMetric(fr.metric,
		fr.items[i].arrival, fr.items[i].conf, fr.items[i].hops, fr.items[i].nodeID,
		fr.items[j].arrival, fr.items[j].conf, fr.items[j].hops, fr.items[j].nodeID)
}

func (fr *frontier) Swap(i, j int) {
	fr.items[i], fr.items[j] = fr.items[j], fr.items[i]
}

func (fr *frontier) Push(x any) {
	fr.items = append(fr.items, x.(frntrItem))
}

func (fr *frontier) Pop() any {
	old := fr.items
	n := len(old)
	item := old[n-1]
	fr.items = old[:n-1]

	return item
}

// lessByMetric defines the total order among tentative states.  Under the
// SABR metric: earlier arrival, then higher confidence, then fewer hops,
// then smaller node number.  Under the hops metric the hop count leads.
func lessByMetric(metric string, arrA, confA float64, hopsA, idA int,
	arrB, confB float64, hopsB, idB int) bool {

	if metric == DistanceHops {
		if hopsA != hopsB {
			return hopsA < hopsB
		}
		if arrA != arrB {
			return arrA < arrB
		}
	} else {
		if arrA != arrB {
			return arrA < arrB
		}
		if confA != confB {
			return confA > confB
		}
		if hopsA != hopsB {
			return hopsA < hopsB
		}
	}
	if confA != confB {
		return confA > confB
	}

	return idA < idB
}

// A Route is an ordered sequence of contacts carrying a bundle from a
// root node to a destination, with the transmission schedule the search
// computed for it
type Route struct {
	// Hops in traversal order, root first
	Hops []*Contact

	// per-hop transmission start times and durations, parallel to Hops
	TxStarts  []float64
	Durations []float64

	// earliest arrival time at the destination
	Arrival float64

	// product of hop confidences
	Confidence float64

	// minimum residual volume over all hops at search time
	Bottleneck float64
}

// A RouteSearch binds the state one search invocation reads: the plan,
// the configuration, the opportunity records, and the suppression set.
// The search itself mutates none of them.
type RouteSearch struct {
	plan *ContactPlan
	cfg  *SimCfg
	eto  *ETOManager
	sup  *SuppressionSet
	tm   *TraceManager
}

// CreateRouteSearch is an initialization constructor.
func CreateRouteSearch(plan *ContactPlan, cfg *SimCfg, eto *ETOManager,
	sup *SuppressionSet, tm *TraceManager) *RouteSearch {

	rs := new(RouteSearch)
	rs.plan = plan
	rs.cfg = cfg
	rs.eto = eto
	rs.sup = sup
	rs.tm = tm

	return rs
}

// run executes the search from the root node at the given time for a
// bundle of the given size.  With destID >= 0 the search stops once that
// destination settles; with destID < 0 it runs the frontier to exhaustion,
// computing best arrivals for every reachable node.  The returned work
// area holds the predecessor structure routes are rebuilt from.
func (rs *RouteSearch) run(srcID int, t0 float64, destID int, size float64) *WorkArea {
	wa := createWorkArea()
	wa.nodes[srcID] = &nodeWork{arrival: t0, via: -1, hops: 0, conf: 1.0}

	limit := 0.0
	if rs.cfg.Horizon > 0.0 {
		limit = t0 + rs.cfg.Horizon
	}

	fr := &frontier{items: make([]frntrItem, 0), metric: rs.cfg.metric()}
	heap.Init(fr)
	heap.Push(fr, frntrItem{nodeID: srcID, arrival: t0, conf: 1.0, hops: 0})

	for fr.Len() > 0 {
		item := heap.Pop(fr).(frntrItem)
		nw := wa.nodes[item.nodeID]

		// stale frontier entries from superseded relaxations are skipped
		if nw.settled || item.arrival > nw.arrival {
			continue
		}
		nw.settled = true

		if item.nodeID == destID {
			break
		}

		for _, cnt := range rs.plan.ContactsFrom(item.nodeID, nw.arrival) {
			if rs.sup.Excluded(cnt) {
				continue
			}
			rxID := cnt.RxNode.Number
			rxWork, rxKnown := wa.nodes[rxID]
			if rxKnown && rxWork.settled {
				continue
			}

			// causality: transmission cannot begin before the data is here,
			// before the window opens, or before the backlog drains
			txStart := nw.arrival
			if cnt.Start > txStart {
				txStart = cnt.Start
			}
			if opp := rs.eto.ETO(cnt); opp > txStart {
				txStart = opp
			}
			if txStart >= cnt.End {
				continue
			}
			if limit > 0.0 && txStart > limit {
				continue
			}

			duration := size / rs.plan.effectiveRate(cnt, rs.cfg)
			if txStart+duration > cnt.End {
				continue
			}

			arrival := txStart + duration + rs.plan.DelayTo(cnt, txStart)
			conf := nw.conf * cnt.Confidence
			hops := nw.hops + 1

			if rxKnown && !lessByMetric(fr.metric,
				arrival, conf, hops, cnt.Number,
				rxWork.arrival, rxWork.conf, rxWork.hops, rxWork.via) {
				continue
			}

			wa.nodes[rxID] = &nodeWork{arrival: arrival, via: cnt.Number,
				hops: hops, conf: conf}
			wa.Contacts[cnt.Number] = &ContactWork{Arrival: arrival,
				TxStart: txStart, Pred: nw.via, Visited: true}

			if rs.cfg.Tracing && rs.tm != nil && rs.tm.Active() {
				rs.tm.AddSearchTrace(t0, srcID, destID, cnt.Number, txStart, arrival)
			}

			heap.Push(fr, frntrItem{nodeID: rxID, arrival: arrival,
				conf: conf, hops: hops})
		}
	}

	return wa
}

// rebuild walks the predecessor structure in the work area backwards from
// the destination and assembles the route
func (rs *RouteSearch) rebuild(wa *WorkArea, destID int, size float64) (*Route, error) {
	nw, present := wa.nodes[destID]
	if !present {
		return nil, fmt.Errorf("destination %d unreached: %w", destID, ErrNoRoute)
	}

	// walk back to the root gathering contact numbers
	chain := make([]int, 0)
	for cntID := nw.via; cntID >= 0; {
		chain = append(chain, cntID)
		cntWork, cwPresent := wa.Contacts[cntID]
		if !cwPresent {
			return nil, fmt.Errorf("broken predecessor chain at contact %d", cntID)
		}
		cntID = cntWork.Pred
	}

	rt := new(Route)
	rt.Hops = make([]*Contact, len(chain))
	rt.TxStarts = make([]float64, len(chain))
	rt.Durations = make([]float64, len(chain))
	rt.Arrival = nw.arrival
	rt.Confidence = 1.0
	rt.Bottleneck = 0.0

	for idx := 0; idx < len(chain); idx++ {
		cntID := chain[len(chain)-1-idx]
		cnt := rs.plan.ContactByID[cntID]
		cntWork := wa.Contacts[cntID]

		rt.Hops[idx] = cnt
		rt.TxStarts[idx] = cntWork.TxStart
		rt.Durations[idx] = size / rs.plan.effectiveRate(cnt, rs.cfg)
		rt.Confidence *= cnt.Confidence
		if idx == 0 || cnt.Residual < rt.Bottleneck {
			rt.Bottleneck = cnt.Residual
		}
	}

	return rt, nil
}

// FindRoute searches for the best route from the source node, starting at
// the given time, to the destination, for a bundle of the given size.
// The answer reflects the suppression, opportunity, and residual state in
// force at the moment of the call; nothing is committed.  ErrNoRoute is
// wrapped in the returned error when the destination stays unreached, a
// normal outcome rather than a fault.  The second return value is the
// search's work area, for introspection when that is configured.
func (rs *RouteSearch) FindRoute(srcID int, t0 float64, destID int,
	size float64) (*Route, *WorkArea, error) {

	_, srcPresent := rs.plan.NodeByID[srcID]
	if !srcPresent {
		return nil, nil, fmt.Errorf("search root names absent node %d", srcID)
	}
	_, destPresent := rs.plan.NodeByID[destID]
	if !destPresent {
		return nil, nil, fmt.Errorf("search destination names absent node %d", destID)
	}

	wa := rs.run(srcID, t0, destID, size)
	rt, err := rs.rebuild(wa, destID, size)
	if err != nil {
		return nil, wa, err
	}

	return rt, wa, nil
}

// A RouteTree holds the result of an all-destinations search: the best
// arrival structure for every node reachable from the root.  Individual
// routes are rebuilt on demand.
type RouteTree struct {
	rs    *RouteSearch
	wa    *WorkArea
	srcID int
	size  float64
}

// FindRouteTree runs the search from the source node to exhaustion and
// returns the resulting route tree
func (rs *RouteSearch) FindRouteTree(srcID int, t0 float64, size float64) (*RouteTree, error) {
	_, srcPresent := rs.plan.NodeByID[srcID]
	if !srcPresent {
		return nil, fmt.Errorf("search root names absent node %d", srcID)
	}

	wa := rs.run(srcID, t0, -1, size)

	return &RouteTree{rs: rs, wa: wa, srcID: srcID, size: size}, nil
}

// RouteTo rebuilds the tree's route to the named destination, wrapping
// ErrNoRoute when the search never reached it
func (rt *RouteTree) RouteTo(destID int) (*Route, error) {
	return rt.rs.rebuild(rt.wa, destID, rt.size)
}

// Reachable lists the node numbers the search reached, the root included
func (rt *RouteTree) Reachable() []int {
	rtn := make([]int, 0, len(rt.wa.nodes))
	for nodeID := range rt.wa.nodes {
		rtn = append(rtn, nodeID)
	}

	return rtn
}
