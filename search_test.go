package cgr

import (
	"errors"
	"strings"
	"testing"
)

// searchOver builds a route search with fresh opportunity and suppression
// state bound to the given plan and configuration
func searchOver(cp *ContactPlan, cfg *SimCfg) (*RouteSearch, *ETOManager, *SuppressionSet) {
	eto := CreateETOManager(cfg.ManualQueueing)
	sup := CreateSuppressionSet(cfg)
	rs := CreateRouteSearch(cp, cfg, eto, sup, nil)

	return rs, eto, sup
}

// routeString renders a route as its hop sequence, e.g. "A->B,B->D"
func routeString(rt *Route) string {
	hops := make([]string, 0, len(rt.Hops))
	for _, cnt := range rt.Hops {
		hops = append(hops, cnt.TxNode.Name+"->"+cnt.RxNode.Name)
	}
	return strings.Join(hops, ",")
}

func TestSearchFourNodeScenario(t *testing.T) {
	cp := fourNodePlan(t)
	rs, _, _ := searchOver(cp, CreateSimCfg())

	src := cp.NodeByName["A"].Number
	dst := cp.NodeByName["D"].Number

	rt, _, err := rs.FindRoute(src, 0.0, dst, 10.0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if got := routeString(rt); got != "A->B,B->D" {
		t.Errorf("route %s, want A->B,B->D", got)
	}
	if rt.Arrival != 12.0 {
		t.Errorf("arrival %v, want 12", rt.Arrival)
	}
}

// every returned route must satisfy causality: each hop's transmission
// fits inside its window, and data never departs a hop before it arrived
// from the previous one
func TestSearchCausality(t *testing.T) {
	cp := fourNodePlan(t)
	rs, _, _ := searchOver(cp, CreateSimCfg())

	src := cp.NodeByName["A"].Number
	dst := cp.NodeByName["D"].Number

	rt, _, err := rs.FindRoute(src, 0.0, dst, 10.0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	prevArrival := 0.0
	for idx, cnt := range rt.Hops {
		txStart := rt.TxStarts[idx]
		duration := rt.Durations[idx]

		if txStart < cnt.Start || txStart >= cnt.End {
			t.Errorf("hop %d transmission start %v outside window [%v,%v)",
				idx, txStart, cnt.Start, cnt.End)
		}
		if txStart+duration > cnt.End {
			t.Errorf("hop %d transmission overruns window: %v+%v > %v",
				idx, txStart, duration, cnt.End)
		}
		if txStart < prevArrival {
			t.Errorf("hop %d transmits at %v before data arrived at %v",
				idx, txStart, prevArrival)
		}

		arrival := txStart + duration + cp.DelayTo(cnt, txStart)
		if arrival < prevArrival {
			t.Errorf("hop %d arrival %v decreases from %v", idx, arrival, prevArrival)
		}
		prevArrival = arrival
	}

	if prevArrival != rt.Arrival {
		t.Errorf("recomputed arrival %v disagrees with route's %v", prevArrival, rt.Arrival)
	}
}

func TestSearchDeterminism(t *testing.T) {
	cp := fourNodePlan(t)
	rs, _, _ := searchOver(cp, CreateSimCfg())

	src := cp.NodeByName["A"].Number
	dst := cp.NodeByName["D"].Number

	first, _, err := rs.FindRoute(src, 0.0, dst, 10.0)
	if err != nil {
		t.Fatalf("first search failed: %v", err)
	}

	for rep := 0; rep < 10; rep++ {
		again, _, aerr := rs.FindRoute(src, 0.0, dst, 10.0)
		if aerr != nil {
			t.Fatalf("repeat search failed: %v", aerr)
		}
		if routeString(again) != routeString(first) || again.Arrival != first.Arrival {
			t.Fatalf("repeat %d diverged: %s at %v vs %s at %v", rep,
				routeString(again), again.Arrival, routeString(first), first.Arrival)
		}
	}
}

// adding a contact never worsens the best arrival; suppressing one never
// improves it
func TestSearchMonotonicity(t *testing.T) {
	cfg := CreateSimCfg()
	cfg.ContactSuppression = true

	cpc := fourNodeCfg()
	base, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building base plan: %v", err)
	}
	rs, _, _ := searchOver(base, cfg)

	src := base.NodeByName["A"].Number
	dst := base.NodeByName["D"].Number

	rt, _, err := rs.FindRoute(src, 0.0, dst, 10.0)
	if err != nil {
		t.Fatalf("base search failed: %v", err)
	}
	baseArrival := rt.Arrival

	// a direct A->D contact can only improve the arrival
	cpc.AddContact("A", "D", 0.0, 100.0, 10.0, 1.0)
	richer, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building richer plan: %v", err)
	}
	rsRich, _, _ := searchOver(richer, cfg)
	rtRich, _, err := rsRich.FindRoute(richer.NodeByName["A"].Number, 0.0,
		richer.NodeByName["D"].Number, 10.0)
	if err != nil {
		t.Fatalf("richer search failed: %v", err)
	}
	if rtRich.Arrival > baseArrival {
		t.Errorf("added contact worsened arrival: %v > %v", rtRich.Arrival, baseArrival)
	}

	// suppressing the A->B hop forces the slower path through C
	rsSup, _, sup := searchOver(base, cfg)
	for idx := 0; idx < base.numberOfContacts; idx++ {
		cnt := base.ContactByID[idx]
		if cnt.TxNode.Name == "A" && cnt.RxNode.Name == "B" {
			sup.Suppress(cnt)
		}
	}
	rtSup, _, err := rsSup.FindRoute(src, 0.0, dst, 10.0)
	if err != nil {
		t.Fatalf("suppressed search failed: %v", err)
	}
	if rtSup.Arrival < baseArrival {
		t.Errorf("suppression improved arrival: %v < %v", rtSup.Arrival, baseArrival)
	}
	if got := routeString(rtSup); got != "A->C,C->D" {
		t.Errorf("suppressed route %s, want A->C,C->D", got)
	}
}

func TestSearchNoRoute(t *testing.T) {
	cpc := fourNodeCfg()
	cpc.AddNode("E", 0.0, 0.0, 0.0)
	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}
	rs, _, _ := searchOver(cp, CreateSimCfg())

	_, _, err = rs.FindRoute(cp.NodeByName["A"].Number, 0.0, cp.NodeByName["E"].Number, 10.0)
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("isolated destination gave %v, want ErrNoRoute", err)
	}
}

func TestSearchHorizon(t *testing.T) {
	cp := fourNodePlan(t)
	cfg := CreateSimCfg()
	cfg.Horizon = 5.0
	rs, _, _ := searchOver(cp, cfg)

	// every path to D needs a transmission starting after time 5
	_, _, err := rs.FindRoute(cp.NodeByName["A"].Number, 0.0, cp.NodeByName["D"].Number, 10.0)
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("horizon-bounded search gave %v, want ErrNoRoute", err)
	}
}

// backlog committed on the fast path must push the search onto the slow one
func TestSearchRespectsBacklog(t *testing.T) {
	cp := fourNodePlan(t)
	rs, eto, _ := searchOver(cp, CreateSimCfg())

	for idx := 0; idx < cp.numberOfContacts; idx++ {
		cnt := cp.ContactByID[idx]
		if cnt.TxNode.Name == "A" && cnt.RxNode.Name == "B" {
			// queue 500 bytes of earlier traffic: opportunity moves to 50
			eto.Commit(cnt, 0.0, 50.0)
		}
	}

	rt, _, err := rs.FindRoute(cp.NodeByName["A"].Number, 0.0, cp.NodeByName["D"].Number, 10.0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got := routeString(rt); got != "A->C,C->D" {
		t.Errorf("backlogged search chose %s, want A->C,C->D", got)
	}
	if rt.Arrival != 23.0 {
		t.Errorf("arrival %v, want 23", rt.Arrival)
	}
}

func TestSearchConfidenceTieBreak(t *testing.T) {
	cpc := CreateContactPlanCfg("tieBreak")
	cpc.AddNode("A", 0.0, 0.0, 0.0)
	cpc.AddNode("B", 0.0, 0.0, 0.0)
	cpc.AddNode("C", 0.0, 0.0, 0.0)
	cpc.AddNode("D", 0.0, 0.0, 0.0)

	// two-hop paths through B and C with identical timing, the first leg
	// differing only in confidence
	cpc.Contacts = append(cpc.Contacts,
		ContactDesc{TxNode: "A", RxNode: "B", Start: 0.0, End: 10.0, Rate: 10.0,
			Delay: 1.0, Confidence: 0.5},
		ContactDesc{TxNode: "B", RxNode: "D", Start: 0.0, End: 100.0, Rate: 10.0, Delay: 1.0},
		ContactDesc{TxNode: "A", RxNode: "C", Start: 0.0, End: 10.0, Rate: 10.0,
			Delay: 1.0, Confidence: 0.9},
		ContactDesc{TxNode: "C", RxNode: "D", Start: 0.0, End: 100.0, Rate: 10.0, Delay: 1.0})

	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}
	rs, _, _ := searchOver(cp, CreateSimCfg())

	rt, _, err := rs.FindRoute(cp.NodeByName["A"].Number, 0.0, cp.NodeByName["D"].Number, 10.0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if got := routeString(rt); got != "A->C,C->D" {
		t.Errorf("tie broken to %s, want the higher-confidence A->C,C->D", got)
	}
	if rt.Confidence != 0.9 {
		t.Errorf("route confidence %v, want the hop product 0.9", rt.Confidence)
	}
}

func TestSearchHopsMetric(t *testing.T) {
	cpc := fourNodeCfg()

	// a late direct contact: one hop but a much later arrival
	cpc.AddContact("A", "D", 50.0, 100.0, 10.0, 1.0)
	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}

	src := cp.NodeByName["A"].Number
	dst := cp.NodeByName["D"].Number

	sabr, _, _ := searchOver(cp, CreateSimCfg())
	rt, _, err := sabr.FindRoute(src, 0.0, dst, 10.0)
	if err != nil {
		t.Fatalf("sabr search failed: %v", err)
	}
	if got := routeString(rt); got != "A->B,B->D" {
		t.Errorf("sabr metric chose %s, want the earlier A->B,B->D", got)
	}

	hopCfg := CreateSimCfg()
	hopCfg.Metric = DistanceHops
	hops, _, _ := searchOver(cp, hopCfg)
	rt, _, err = hops.FindRoute(src, 0.0, dst, 10.0)
	if err != nil {
		t.Fatalf("hops search failed: %v", err)
	}
	if got := routeString(rt); got != "A->D" {
		t.Errorf("hops metric chose %s, want the direct A->D", got)
	}
	if rt.Arrival != 52.0 {
		t.Errorf("direct arrival %v, want 52", rt.Arrival)
	}
}

func TestSearchBottleneck(t *testing.T) {
	cpc := fourNodeCfg()

	// cap the B->D leg's volume below the A->B leg's
	for idx := range cpc.Contacts {
		if cpc.Contacts[idx].TxNode == "B" {
			cpc.Contacts[idx].Volume = 40.0
		}
	}
	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}
	rs, _, _ := searchOver(cp, CreateSimCfg())

	rt, _, err := rs.FindRoute(cp.NodeByName["A"].Number, 0.0, cp.NodeByName["D"].Number, 10.0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if rt.Bottleneck != 40.0 {
		t.Errorf("bottleneck %v, want the capped leg's 40", rt.Bottleneck)
	}
}

func TestFindRouteTree(t *testing.T) {
	cp := fourNodePlan(t)
	rs, _, _ := searchOver(cp, CreateSimCfg())

	tree, err := rs.FindRouteTree(cp.NodeByName["A"].Number, 0.0, 10.0)
	if err != nil {
		t.Fatalf("tree search failed: %v", err)
	}

	if got := len(tree.Reachable()); got != 4 {
		t.Errorf("%d nodes reachable, want all 4", got)
	}

	rtD, err := tree.RouteTo(cp.NodeByName["D"].Number)
	if err != nil {
		t.Fatalf("tree route to D: %v", err)
	}
	if routeString(rtD) != "A->B,B->D" || rtD.Arrival != 12.0 {
		t.Errorf("tree route to D is %s at %v, want A->B,B->D at 12",
			routeString(rtD), rtD.Arrival)
	}

	rtC, err := tree.RouteTo(cp.NodeByName["C"].Number)
	if err != nil {
		t.Fatalf("tree route to C: %v", err)
	}
	if routeString(rtC) != "A->C" {
		t.Errorf("tree route to C is %s, want A->C", routeString(rtC))
	}
}

func TestWorkAreaArrivals(t *testing.T) {
	cp := fourNodePlan(t)
	rs, _, _ := searchOver(cp, CreateSimCfg())

	_, wa, err := rs.FindRoute(cp.NodeByName["A"].Number, 0.0, cp.NodeByName["D"].Number, 10.0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	arrival, reached := wa.ArrivalAt(cp.NodeByName["B"].Number)
	if !reached || arrival != 2.0 {
		t.Errorf("work area arrival at B is %v (reached %v), want 2", arrival, reached)
	}
	arrival, reached = wa.ArrivalAt(cp.NodeByName["D"].Number)
	if !reached || arrival != 12.0 {
		t.Errorf("work area arrival at D is %v (reached %v), want 12", arrival, reached)
	}
}
