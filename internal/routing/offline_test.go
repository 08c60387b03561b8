package routing

import (
	"context"
	"testing"

	"nightpath/internal/geo"
	"nightpath/internal/navgraph"
	"nightpath/internal/nperr"
)

func regionWithEdge(id string, bounds geo.Bounds, e navgraph.NavigationEdge, nodes map[string]navgraph.NavigationNode) *navgraph.CachedRegion {
	edges := map[string]navgraph.NavigationEdge{e.ID: e}
	return &navgraph.CachedRegion{ID: id, Bounds: bounds, Graph: navgraph.NavigationGraph{Nodes: nodes, Edges: edges}}
}

func TestOfflineRouterNoRouteWithoutCoveringRegion(t *testing.T) {
	router := NewOfflineRouter(NewAStarRouter())
	_, err := router.Route(context.Background(), geo.Position{Latitude: 50, Longitude: 50}, geo.Position{Latitude: 51, Longitude: 51}, defaultConfig(CostWeights{Distance: 1}))
	if !nperr.Is(err, nperr.KindNoRoute) {
		t.Fatalf("expected KindNoRoute with no cached regions, got %v", err)
	}
}

func TestOfflineRouterRoutesOverMergedRegions(t *testing.T) {
	router := NewOfflineRouter(NewAStarRouter())

	nodesAB := map[string]navgraph.NavigationNode{
		"a": node("a", 0, 0),
		"b": node("b", 0, 0.001),
	}
	nodesBC := map[string]navgraph.NavigationNode{
		"b": node("b", 0, 0.001),
		"c": node("c", 0, 0.002),
	}
	boundsWide := geo.Bounds{North: 1, South: -1, East: 1, West: -1}

	router.PutRegion(regionWithEdge("r1", boundsWide, edge("ab", "a", "b", 111.195, 1, 1), nodesAB))
	router.PutRegion(regionWithEdge("r2", boundsWide, edge("bc", "b", "c", 111.195, 1, 1), nodesBC))

	route, err := router.Route(context.Background(), geo.Position{Latitude: 0, Longitude: 0}, geo.Position{Latitude: 0, Longitude: 0.002}, defaultConfig(CostWeights{Distance: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Nodes) != 3 {
		t.Errorf("expected a 3-node merged route, got %d nodes", len(route.Nodes))
	}
}

func TestOfflineRouterIgnoresNonIntersectingRegions(t *testing.T) {
	router := NewOfflineRouter(NewAStarRouter())
	farBounds := geo.Bounds{North: 80, South: 79, East: 10, West: 9}
	router.PutRegion(regionWithEdge("far", farBounds, edge("xy", "x", "y", 10, 1, 1), map[string]navgraph.NavigationNode{
		"x": node("x", 79.5, 9.5),
		"y": node("y", 79.5, 9.6),
	}))

	_, err := router.Route(context.Background(), geo.Position{Latitude: 0, Longitude: 0}, geo.Position{Latitude: 0, Longitude: 0.001}, defaultConfig(CostWeights{Distance: 1}))
	if !nperr.Is(err, nperr.KindNoRoute) {
		t.Fatalf("expected KindNoRoute since the only region is far away, got %v", err)
	}
}

func TestOfflineRouterPutRegionGeneratesIDWhenEmpty(t *testing.T) {
	router := NewOfflineRouter(NewAStarRouter())
	boundsWide := geo.Bounds{North: 1, South: -1, East: 1, West: -1}
	region := regionWithEdge("", boundsWide, edge("ab", "a", "b", 111.195, 1, 1), map[string]navgraph.NavigationNode{
		"a": node("a", 0, 0),
		"b": node("b", 0, 0.001),
	})

	if err := router.PutRegion(region); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if region.ID == "" {
		t.Fatal("expected PutRegion to assign a generated ID")
	}

	route, err := router.Route(context.Background(), geo.Position{Latitude: 0, Longitude: 0}, geo.Position{Latitude: 0, Longitude: 0.001}, defaultConfig(CostWeights{Distance: 1}))
	if err != nil {
		t.Fatalf("unexpected error routing over the generated-id region: %v", err)
	}
	if len(route.Nodes) != 2 {
		t.Errorf("expected a 2-node route, got %d", len(route.Nodes))
	}
}

func TestOfflineRouterRemoveRegion(t *testing.T) {
	router := NewOfflineRouter(NewAStarRouter())
	boundsWide := geo.Bounds{North: 1, South: -1, East: 1, West: -1}
	router.PutRegion(regionWithEdge("r1", boundsWide, edge("ab", "a", "b", 111.195, 1, 1), map[string]navgraph.NavigationNode{
		"a": node("a", 0, 0),
		"b": node("b", 0, 0.001),
	}))
	router.RemoveRegion("r1")

	_, err := router.Route(context.Background(), geo.Position{Latitude: 0, Longitude: 0}, geo.Position{Latitude: 0, Longitude: 0.001}, defaultConfig(CostWeights{Distance: 1}))
	if !nperr.Is(err, nperr.KindNoRoute) {
		t.Fatalf("expected KindNoRoute after region removal, got %v", err)
	}
}
