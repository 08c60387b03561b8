package navgraph

import (
	"errors"
	"testing"

	"nightpath/internal/geo"
	"nightpath/internal/nperr"
)

func node(id string) NavigationNode {
	return NavigationNode{ID: id, Position: geo.Position{Latitude: 0, Longitude: 0}}
}

func TestBuilderAddNodeAndEdge(t *testing.T) {
	b := NewBuilder(10)
	if err := b.AddNode(node("a")); err != nil {
		t.Fatalf("AddNode(a): %v", err)
	}
	if err := b.AddNode(node("b")); err != nil {
		t.Fatalf("AddNode(b): %v", err)
	}
	edge := NavigationEdge{ID: "e1", FromNodeID: "a", ToNodeID: "b", Distance: 10, VisibilityScore: 1, SafetyScore: 1}
	if err := b.AddEdge(edge); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	g := b.GetGraph()
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Fatalf("graph = %d nodes, %d edges; want 2, 1", len(g.Nodes), len(g.Edges))
	}
}

func TestBuilderAddEdgeRejectsDanglingEndpoint(t *testing.T) {
	b := NewBuilder(10)
	if err := b.AddNode(node("a")); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	err := b.AddEdge(NavigationEdge{ID: "e1", FromNodeID: "a", ToNodeID: "missing"})
	if err == nil {
		t.Fatal("expected error for dangling toNodeId")
	}
	var npe *nperr.Error
	if !errors.As(err, &npe) || npe.Kind != nperr.KindInvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestBuilderRemoveNodeCascadesEdges(t *testing.T) {
	b := NewBuilder(10)
	_ = b.AddNode(node("a"))
	_ = b.AddNode(node("b"))
	_ = b.AddNode(node("c"))
	_ = b.AddEdge(NavigationEdge{ID: "ab", FromNodeID: "a", ToNodeID: "b"})
	_ = b.AddEdge(NavigationEdge{ID: "bc", FromNodeID: "b", ToNodeID: "c"})

	if err := b.RemoveNode("b"); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	g := b.GetGraph()
	if _, ok := g.Nodes["b"]; ok {
		t.Error("node b should have been removed")
	}
	if len(g.Edges) != 0 {
		t.Errorf("expected both edges touching b to be removed, got %d remaining", len(g.Edges))
	}
	if err := b.ValidateGraph(); err != nil {
		t.Errorf("graph should still satisfy I1 after cascade removal: %v", err)
	}
}

func TestBuilderAddNodeEnforcesLimit(t *testing.T) {
	b := NewBuilder(2)
	_ = b.AddNode(node("a"))
	_ = b.AddNode(node("b"))
	err := b.AddNode(node("c"))
	if err == nil {
		t.Fatal("expected LimitExceeded when exceeding maxGraphNodes")
	}
	var npe *nperr.Error
	if !errors.As(err, &npe) || npe.Kind != nperr.KindLimitExceeded {
		t.Errorf("expected LimitExceeded, got %v", err)
	}
}

func TestBuilderAddNodeReplaceDoesNotCountTowardLimit(t *testing.T) {
	b := NewBuilder(1)
	if err := b.AddNode(node("a")); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	// Re-adding the same id replaces, not grows, so it must stay under cap.
	if err := b.AddNode(node("a")); err != nil {
		t.Fatalf("expected replace of existing node to succeed: %v", err)
	}
}

func TestBuilderGetGraphSnapshotIsIndependent(t *testing.T) {
	b := NewBuilder(10)
	_ = b.AddNode(node("a"))
	snapshot := b.GetGraph()

	_ = b.AddNode(node("b"))

	if len(snapshot.Nodes) != 1 {
		t.Errorf("snapshot should not observe later mutation, has %d nodes", len(snapshot.Nodes))
	}
}

func TestBuilderClear(t *testing.T) {
	b := NewBuilder(10)
	_ = b.AddNode(node("a"))
	_ = b.AddNode(node("b"))
	_ = b.AddEdge(NavigationEdge{ID: "ab", FromNodeID: "a", ToNodeID: "b"})

	b.Clear()
	stats := b.GetStats()
	if stats.NodeCount != 0 || stats.EdgeCount != 0 {
		t.Errorf("expected empty graph after Clear, got %+v", stats)
	}
}

func TestBuilderGetConnectedEdges(t *testing.T) {
	b := NewBuilder(10)
	_ = b.AddNode(node("a"))
	_ = b.AddNode(node("b"))
	_ = b.AddNode(node("c"))
	_ = b.AddEdge(NavigationEdge{ID: "ab", FromNodeID: "a", ToNodeID: "b"})
	_ = b.AddEdge(NavigationEdge{ID: "bc", FromNodeID: "b", ToNodeID: "c"})

	edges := b.GetConnectedEdges("b")
	if len(edges) != 2 {
		t.Errorf("expected 2 edges touching b, got %d", len(edges))
	}
}
