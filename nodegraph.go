package cgr

// nodegraph.go provides functions to create and access the static
// node-connectivity view of a contact plan

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// The general approach we use is to convert the contact plan into the data
// structures used by a graph package that has built-in path discovery
// algorithms.  An edge connects transmitter to receiver if any contact
// between them is scheduled, ignoring windows and volumes entirely.
// Weighting each edge by 1, a shortest path minimizes the number of hops.
//   Because the static view ignores windows, residual volume, and
// suppression, every route the time-respecting search can produce traverses
// edges of this graph.  A destination unreachable here is therefore
// unreachable in every search against the plan, which makes the static view
// a sound fast-fail filter, and the hop count of its shortest path a lower
// bound on the hop count of any schedulable route.  The converse does not
// hold: static reachability promises nothing about windows lining up.
//
//   The Dijkstra algorithm we call computes a tree of shortest paths from a
// named node, so trees are cached per source and reused across bundles.

// A nodeGraph holds the static view and its cached shortest-path trees
type nodeGraph struct {
	// gNodes[i] refers to the contact plan node with number i
	gNodes map[int]simple.Node

	connGraph graph.Graph

	// cachedSP saves the result of computing shortest-path trees.
	// The key is the node number of the tree root.
	cachedSP map[int]path.Shortest
}

// buildNodeGraph returns the static connectivity view of the plan
func buildNodeGraph(cp *ContactPlan) *nodeGraph {
	ng := new(nodeGraph)
	ng.gNodes = make(map[int]simple.Node)
	ng.cachedSP = make(map[int]path.Shortest)

	connGraph := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for nodeID := range cp.NodeByID {
		ng.gNodes[nodeID] = simple.Node(nodeID)
	}

	// transform the plan's contacts into edges in the graph module
	// representation.  Repeated contacts between the same pair collapse
	// onto the one edge.
	for idx := 0; idx < cp.numberOfContacts; idx++ {
		cnt := cp.ContactByID[idx]
		txID := cnt.TxNode.Number
		rxID := cnt.RxNode.Number
		weightedEdge := simple.WeightedEdge{F: ng.gNodes[txID], T: ng.gNodes[rxID], W: 1.0}
		connGraph.SetWeightedEdge(weightedEdge)
	}
	ng.connGraph = connGraph

	return ng
}

// getSPTree returns the shortest path tree rooted in input argument 'from'.
// If the tree is found in the cache it is returned, if not it is computed,
// saved, and returned.
func (ng *nodeGraph) getSPTree(from int) path.Shortest {
	// look for existence of tree already
	spTree, present := ng.cachedSP[from]
	if present {
		// yes, we're done
		return spTree
	}

	// let graph/path.DijkstraFrom compute the tree. The first argument
	// is the root of the tree, the second is the graph
	spTree = path.DijkstraFrom(ng.gNodes[from], ng.connGraph)

	// save (using the plan's identity for the node) and return
	ng.cachedSP[from] = spTree

	return spTree
}

// reachable reports whether any sequence of contacts, schedulable or not,
// leads from src to dst
func (ng *nodeGraph) reachable(src, dst int) bool {
	if src == dst {
		return true
	}
	spTree := ng.getSPTree(src)
	_, weight := spTree.To(int64(dst))

	return !math.IsInf(weight, 1)
}

// hopBound reports the fewest hops any route from src to dst can have,
// and whether dst is statically reachable at all
func (ng *nodeGraph) hopBound(src, dst int) (int, bool) {
	if src == dst {
		return 0, true
	}
	spTree := ng.getSPTree(src)
	nodes, weight := spTree.To(int64(dst))
	if math.IsInf(weight, 1) {
		return 0, false
	}

	return len(nodes) - 1, true
}
