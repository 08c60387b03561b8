// Package navgraph holds the weighted pedestrian navigation graph: nodes,
// edges, the exclusive-writer builder that maintains the endpoint
// invariant, and GeoJSON ingestion that populates it from map data.
package navgraph

import "nightpath/internal/geo"

// NavigationNode is a single point in the walking network.
type NavigationNode struct {
	ID       string
	Position geo.Position
	Metadata map[string]interface{}
}

// NavigationEdge connects two nodes. Invariant I1: FromNodeID and ToNodeID
// must refer to nodes present in the same graph.
type NavigationEdge struct {
	ID              string
	FromNodeID      string
	ToNodeID        string
	Distance        float64 // meters, >= 0
	VisibilityScore float64 // [0,1]
	SafetyScore     float64 // [0,1]
	Metadata        map[string]interface{}
}

// NavigationGraph is an immutable snapshot of the node and edge maps, safe
// to read concurrently. Obtain one from Builder.GetGraph.
type NavigationGraph struct {
	Nodes map[string]NavigationNode
	Edges map[string]NavigationEdge
}

// ConnectedEdges returns every edge touching nodeID, in either direction.
func (g NavigationGraph) ConnectedEdges(nodeID string) []NavigationEdge {
	var out []NavigationEdge
	for _, e := range g.Edges {
		if e.FromNodeID == nodeID || e.ToNodeID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingEdges returns every edge whose FromNodeID equals nodeID. A*
// expansion uses only outgoing edges.
func (g NavigationGraph) OutgoingEdges(nodeID string) []NavigationEdge {
	var out []NavigationEdge
	for _, e := range g.Edges {
		if e.FromNodeID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes a graph's size, returned by Builder.GetStats.
type Stats struct {
	NodeCount int
	EdgeCount int
}
