package navgraph

import (
	"time"

	"nightpath/internal/geo"
)

// walkingSpeedMetersPerSecond is the nominal pedestrian speed used to
// derive estimatedTimeSeconds from a route's total distance.
const walkingSpeedMetersPerSecond = 1.4

// Route is an ordered path through a NavigationGraph: one more node than
// edge, empty Edges when start and goal snap to the same node.
type Route struct {
	Nodes                []NavigationNode
	Edges                []NavigationEdge
	TotalDistance        float64
	TotalCost            float64
	EstimatedTimeSeconds float64
}

// EstimatedTime derives estimatedTimeSeconds from a distance in meters.
func EstimatedTime(totalDistanceMeters float64) float64 {
	return totalDistanceMeters / walkingSpeedMetersPerSecond
}

// CachedRegion is a previously computed, geographically bounded graph
// fragment persisted for offline routing.
type CachedRegion struct {
	ID        string
	Bounds    geo.Bounds
	Graph     NavigationGraph
	Timestamp time.Time
	Source    string
}
