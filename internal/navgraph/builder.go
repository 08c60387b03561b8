package navgraph

import (
	"fmt"
	"sync"

	"nightpath/internal/nperr"
)

const component = "navgraph.Builder"

// Builder is the exclusive writer of a NavigationGraph. Readers obtain a
// point-in-time snapshot via GetGraph; the builder never hands out its
// internal maps directly, so a caller holding a snapshot is unaffected by
// subsequent mutation.
type Builder struct {
	mu            sync.RWMutex
	nodes         map[string]NavigationNode
	edges         map[string]NavigationEdge
	maxGraphNodes int
}

// NewBuilder creates an empty builder capped at maxGraphNodes nodes. A
// non-positive cap falls back to the spec's upper bound of 10,000.
func NewBuilder(maxGraphNodes int) *Builder {
	if maxGraphNodes <= 0 {
		maxGraphNodes = 10000
	}
	return &Builder{
		nodes:         make(map[string]NavigationNode),
		edges:         make(map[string]NavigationEdge),
		maxGraphNodes: maxGraphNodes,
	}
}

// AddNode inserts or replaces a node. Fails with LimitExceeded when the
// insertion would grow the graph past maxGraphNodes.
func (b *Builder) AddNode(node NavigationNode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.nodes[node.ID]; !exists && len(b.nodes) >= b.maxGraphNodes {
		return nperr.New(nperr.KindLimitExceeded, component,
			fmt.Sprintf("graph already holds the maximum of %d nodes", b.maxGraphNodes))
	}
	b.nodes[node.ID] = node
	return nil
}

// AddEdge inserts or replaces an edge. Fails with InvalidArgument if either
// endpoint is not a node already present in the graph (invariant I1).
func (b *Builder) AddEdge(edge NavigationEdge) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.nodes[edge.FromNodeID]; !ok {
		return nperr.New(nperr.KindInvalidArgument, component,
			fmt.Sprintf("edge %s: fromNodeId %q does not exist", edge.ID, edge.FromNodeID))
	}
	if _, ok := b.nodes[edge.ToNodeID]; !ok {
		return nperr.New(nperr.KindInvalidArgument, component,
			fmt.Sprintf("edge %s: toNodeId %q does not exist", edge.ID, edge.ToNodeID))
	}
	b.edges[edge.ID] = edge
	return nil
}

// RemoveNode deletes a node and every edge touching it, preserving I1.
func (b *Builder) RemoveNode(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.nodes[id]; !ok {
		return nperr.New(nperr.KindInvalidArgument, component, fmt.Sprintf("node %q does not exist", id))
	}
	delete(b.nodes, id)
	for edgeID, e := range b.edges {
		if e.FromNodeID == id || e.ToNodeID == id {
			delete(b.edges, edgeID)
		}
	}
	return nil
}

// RemoveEdge deletes a single edge by id.
func (b *Builder) RemoveEdge(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.edges[id]; !ok {
		return nperr.New(nperr.KindInvalidArgument, component, fmt.Sprintf("edge %q does not exist", id))
	}
	delete(b.edges, id)
	return nil
}

// Clear empties the graph.
func (b *Builder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = make(map[string]NavigationNode)
	b.edges = make(map[string]NavigationEdge)
}

// GetGraph returns a copy-on-write snapshot: independent maps the caller
// may hold onto across subsequent builder mutations.
func (b *Builder) GetGraph() NavigationGraph {
	b.mu.RLock()
	defer b.mu.RUnlock()

	nodes := make(map[string]NavigationNode, len(b.nodes))
	for k, v := range b.nodes {
		nodes[k] = v
	}
	edges := make(map[string]NavigationEdge, len(b.edges))
	for k, v := range b.edges {
		edges[k] = v
	}
	return NavigationGraph{Nodes: nodes, Edges: edges}
}

// ValidateGraph checks invariant I1: every edge's endpoints exist as nodes.
func (b *Builder) ValidateGraph() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, e := range b.edges {
		if _, ok := b.nodes[e.FromNodeID]; !ok {
			return nperr.New(nperr.KindInvalidArgument, component,
				fmt.Sprintf("edge %s: dangling fromNodeId %q", id, e.FromNodeID))
		}
		if _, ok := b.nodes[e.ToNodeID]; !ok {
			return nperr.New(nperr.KindInvalidArgument, component,
				fmt.Sprintf("edge %s: dangling toNodeId %q", id, e.ToNodeID))
		}
	}
	return nil
}

// GetConnectedEdges returns every edge touching nodeID, in either direction.
func (b *Builder) GetConnectedEdges(nodeID string) []NavigationEdge {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []NavigationEdge
	for _, e := range b.edges {
		if e.FromNodeID == nodeID || e.ToNodeID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// GetStats reports the current node and edge counts.
func (b *Builder) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{NodeCount: len(b.nodes), EdgeCount: len(b.edges)}
}

// NodeCount reports the current node count without allocating a snapshot,
// used by ingestion to check the node cap cheaply.
func (b *Builder) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes)
}

// MaxGraphNodes reports the configured node cap.
func (b *Builder) MaxGraphNodes() int {
	return b.maxGraphNodes
}
