// Package routing scores navigation-graph edges against the current
// environmental state and finds weighted shortest paths over the result.
package routing

import (
	"math"

	"nightpath/internal/cv"
	"nightpath/internal/fusion"
	"nightpath/internal/geo"
	"nightpath/internal/navgraph"
)

// DefaultHazardProximityThresholdMeters is the distance within which a
// hazard's world position is considered to threaten an edge endpoint.
const DefaultHazardProximityThresholdMeters = 20.0

// VisibilityScore derives an edge's visibility from the current fused
// light level, discounted by shadow coverage.
func VisibilityScore(light fusion.LightMetrics) float64 {
	return clamp01(light.UnifiedLightLevel * (1 - 0.5*light.ShadowCoverage))
}

// SafetyScore derives an edge's safety from hazards near either endpoint.
// A hazard without a world position is ignored; it cannot be localized
// relative to the graph.
func SafetyScore(from, to navgraph.NavigationNode, hazards []cv.HazardDetection, thresholdMeters float64) float64 {
	var nearby []cv.HazardDetection
	for _, h := range hazards {
		if h.World == nil {
			continue
		}
		hazardPos := geo.Position{Latitude: h.World.Latitude, Longitude: h.World.Longitude}
		if geo.HaversineMeters(hazardPos, from.Position) <= thresholdMeters ||
			geo.HaversineMeters(hazardPos, to.Position) <= thresholdMeters {
			nearby = append(nearby, h)
		}
	}
	if len(nearby) == 0 {
		return 1
	}

	var confidenceSum float64
	for _, h := range nearby {
		confidenceSum += h.Confidence
	}
	averageConfidence := confidenceSum / float64(len(nearby))
	density := float64(len(nearby)) / 10.0
	return clamp01(1 - math.Min(1, density*averageConfidence))
}

// RefreshEdgeScores returns a derived graph whose edges carry visibility
// and safety scores recomputed from the given environmental snapshot. The
// canonical graph passed in is never mutated; a fresh edge map is built.
func RefreshEdgeScores(graph navgraph.NavigationGraph, light fusion.LightMetrics, hazards []cv.HazardDetection, thresholdMeters float64) navgraph.NavigationGraph {
	visibility := VisibilityScore(light)

	refreshed := make(map[string]navgraph.NavigationEdge, len(graph.Edges))
	for id, e := range graph.Edges {
		from, to := graph.Nodes[e.FromNodeID], graph.Nodes[e.ToNodeID]
		e.VisibilityScore = visibility
		e.SafetyScore = SafetyScore(from, to, hazards, thresholdMeters)
		refreshed[id] = e
	}
	return navgraph.NavigationGraph{Nodes: graph.Nodes, Edges: refreshed}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
