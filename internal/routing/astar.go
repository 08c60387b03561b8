package routing

import (
	"container/heap"
	"context"
	"math"
	"sort"
	"time"

	"nightpath/internal/geo"
	"nightpath/internal/navgraph"
	"nightpath/internal/nperr"
)

const component = "routing.AStarRouter"

// CostWeights scales an edge's distance, visibility, and safety
// contributions into a single traversal cost.
type CostWeights struct {
	Distance   float64
	Visibility float64
	Safety     float64
}

// PathfindingConfig bounds a single route calculation.
type PathfindingConfig struct {
	MaxGraphNodes             int
	RouteCalculationTimeoutMs int
	CostWeights               CostWeights
}

// Router finds a route between two geographic positions over a graph.
type Router interface {
	Route(ctx context.Context, start, goal geo.Position, graph navgraph.NavigationGraph, cfg PathfindingConfig) (*navgraph.Route, error)
}

// AStarRouter is the sole Router implementation: best-first search with a
// haversine heuristic scaled for admissibility when the distance weight is
// below 1.
type AStarRouter struct{}

// NewAStarRouter returns the router used across reroute and offline
// routing; it carries no state of its own.
func NewAStarRouter() *AStarRouter {
	return &AStarRouter{}
}

func edgeCost(e navgraph.NavigationEdge, w CostWeights) float64 {
	return e.Distance*w.Distance +
		(1-e.VisibilityScore)*e.Distance*w.Visibility +
		(1-e.SafetyScore)*e.Distance*w.Safety
}

// Route snaps start and goal to their nearest graph nodes, then runs A*
// with edge cost distance·w_d + (1−visibility)·distance·w_v +
// (1−safety)·distance·w_s and a haversine heuristic.
func (r *AStarRouter) Route(ctx context.Context, start, goal geo.Position, graph navgraph.NavigationGraph, cfg PathfindingConfig) (*navgraph.Route, error) {
	timeoutMs := cfg.RouteCalculationTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	startNode, ok := nearestNode(graph, start)
	if !ok {
		return nil, nperr.New(nperr.KindNoRoute, component, "graph has no nodes to snap start to")
	}
	goalNode, ok := nearestNode(graph, goal)
	if !ok {
		return nil, nperr.New(nperr.KindNoRoute, component, "graph has no nodes to snap goal to")
	}

	if startNode == goalNode {
		node := graph.Nodes[startNode]
		return &navgraph.Route{Nodes: []navgraph.NavigationNode{node}}, nil
	}

	outgoing := make(map[string][]navgraph.NavigationEdge)
	for _, e := range graph.Edges {
		outgoing[e.FromNodeID] = append(outgoing[e.FromNodeID], e)
	}
	// graph.Edges is a map, so the appends above happen in Go's randomized
	// iteration order. Sort each node's outgoing edges by ID so expansion
	// order — and therefore the seq tie-break on equal-f nodes — is fixed
	// across runs.
	for _, edges := range outgoing {
		sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	}

	// Admissibility scaling: the cost of any edge is at least
	// w_d·distance, so a heuristic of min(1, w_d)·haversine never
	// overestimates the remaining cost.
	heuristicScale := math.Min(1, cfg.CostWeights.Distance)
	heuristic := func(nodeID string) float64 {
		return heuristicScale * geo.HaversineMeters(graph.Nodes[nodeID].Position, graph.Nodes[goalNode].Position)
	}

	open := &openQueue{}
	heap.Init(open)
	var seq int
	push := func(nodeID string, g, f float64) {
		heap.Push(open, &openItem{nodeID: nodeID, g: g, f: f, seq: seq})
		seq++
	}

	gScore := map[string]float64{startNode: 0}
	cameFrom := map[string]string{}
	cameFromEdge := map[string]navgraph.NavigationEdge{}
	closed := map[string]bool{}

	push(startNode, 0, heuristic(startNode))

	var iterations int
	for open.Len() > 0 {
		iterations++
		if iterations&255 == 0 {
			if ctx.Err() != nil {
				return nil, nperr.Wrap(nperr.KindCancelled, component, "route calculation cancelled", ctx.Err())
			}
			if time.Now().After(deadline) {
				return nil, nperr.New(nperr.KindTimeout, component, "route calculation exceeded configured timeout")
			}
		}

		current := heap.Pop(open).(*openItem)
		if closed[current.nodeID] {
			continue
		}
		if current.nodeID == goalNode {
			return reconstructRoute(graph, cameFrom, cameFromEdge, startNode, goalNode, cfg.CostWeights), nil
		}
		closed[current.nodeID] = true

		for _, e := range outgoing[current.nodeID] {
			if closed[e.ToNodeID] {
				continue
			}
			tentativeG := gScore[current.nodeID] + edgeCost(e, cfg.CostWeights)
			if existing, seen := gScore[e.ToNodeID]; seen && tentativeG >= existing {
				continue
			}
			gScore[e.ToNodeID] = tentativeG
			cameFrom[e.ToNodeID] = current.nodeID
			cameFromEdge[e.ToNodeID] = e
			push(e.ToNodeID, tentativeG, tentativeG+heuristic(e.ToNodeID))
		}

		if time.Now().After(deadline) {
			return nil, nperr.New(nperr.KindTimeout, component, "route calculation exceeded configured timeout")
		}
	}

	return nil, nperr.New(nperr.KindNoRoute, component, "no path between snapped start and goal")
}

func reconstructRoute(graph navgraph.NavigationGraph, cameFrom map[string]string, cameFromEdge map[string]navgraph.NavigationEdge, startNode, goalNode string, w CostWeights) *navgraph.Route {
	var nodeIDs []string
	for n := goalNode; ; {
		nodeIDs = append(nodeIDs, n)
		if n == startNode {
			break
		}
		n = cameFrom[n]
	}
	for i, j := 0, len(nodeIDs)-1; i < j; i, j = i+1, j-1 {
		nodeIDs[i], nodeIDs[j] = nodeIDs[j], nodeIDs[i]
	}

	route := &navgraph.Route{}
	for _, id := range nodeIDs {
		route.Nodes = append(route.Nodes, graph.Nodes[id])
	}
	for _, id := range nodeIDs[1:] {
		e := cameFromEdge[id]
		route.Edges = append(route.Edges, e)
		route.TotalDistance += e.Distance
		route.TotalCost += edgeCost(e, w)
	}
	route.EstimatedTimeSeconds = navgraph.EstimatedTime(route.TotalDistance)
	return route
}

func nearestNode(graph navgraph.NavigationGraph, p geo.Position) (string, bool) {
	var bestID string
	var bestDist float64
	found := false
	for id, n := range graph.Nodes {
		d := geo.HaversineMeters(p, n.Position)
		if !found || d < bestDist {
			bestID, bestDist, found = id, d, true
		}
	}
	return bestID, found
}

// openItem is one entry in the A* open set.
type openItem struct {
	nodeID string
	g      float64
	f      float64
	seq    int
}

// openQueue is a container/heap priority queue ordered by f, tie-broken by
// insertion order so identical-cost expansions stay deterministic.
type openQueue []*openItem

func (q openQueue) Len() int { return len(q) }

func (q openQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq < q[j].seq
}

func (q openQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openQueue) Push(x any) {
	*q = append(*q, x.(*openItem))
}

func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
