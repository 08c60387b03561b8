package routing

import (
	"context"
	"time"

	"nightpath/internal/cv"
	"nightpath/internal/fusion"
	"nightpath/internal/geo"
	"nightpath/internal/monitoring"
	"nightpath/internal/navgraph"
	"nightpath/internal/timeutil"
)

const rerouteComponent = "routing.RerouteManager"

// EnvironmentalState is a snapshot of the conditions a route was computed
// or evaluated against.
type EnvironmentalState struct {
	Light     fusion.LightMetrics
	Hazards   []cv.HazardDetection
	Timestamp time.Time
}

// RerouteConfig bounds how aggressively the manager recomputes routes.
type RerouteConfig struct {
	LightChangeThreshold     float64
	HazardProximityThreshold float64
	MinRerouteInterval       time.Duration
}

// DefaultRerouteConfig matches the documented defaults.
func DefaultRerouteConfig() RerouteConfig {
	return RerouteConfig{
		LightChangeThreshold:     0.2,
		HazardProximityThreshold: 20,
		MinRerouteInterval:       5 * time.Second,
	}
}

// RerouteManager holds the in-flight route and the last observed
// environmental state, deciding when a change warrants recomputation.
type RerouteManager struct {
	clock  timeutil.Clock
	router Router

	currentRoute      *navgraph.Route
	lastRerouteTime   time.Time
	haveLastState     bool
	lastEnvironmental EnvironmentalState
}

// NewRerouteManager builds a manager driving the given router, using clock
// for all time observations so tests can control elapsed time.
func NewRerouteManager(router Router, clock timeutil.Clock) *RerouteManager {
	return &RerouteManager{router: router, clock: clock}
}

// CurrentRoute returns the most recently committed route, or nil.
func (m *RerouteManager) CurrentRoute() *navgraph.Route {
	return m.currentRoute
}

// ShouldReroute decides whether current conditions warrant recomputing the
// route. It reports false while no route is committed or while
// MinRerouteInterval has not elapsed since the last reroute; the first call
// past those checks with no recorded state only records current and
// reports false.
func (m *RerouteManager) ShouldReroute(cfg RerouteConfig, current EnvironmentalState, routeNodes []navgraph.NavigationNode) bool {
	if m.currentRoute == nil {
		return false
	}
	if !m.lastRerouteTime.IsZero() && m.clock.Since(m.lastRerouteTime) < cfg.MinRerouteInterval {
		return false
	}
	if !m.haveLastState {
		m.lastEnvironmental = current
		m.haveLastState = true
		return false
	}

	lightDelta := current.Light.UnifiedLightLevel - m.lastEnvironmental.Light.UnifiedLightLevel
	if lightDelta < 0 {
		lightDelta = -lightDelta
	}
	if lightDelta >= cfg.LightChangeThreshold {
		return true
	}

	previousHazards := make(map[string]bool, len(m.lastEnvironmental.Hazards))
	for _, h := range m.lastEnvironmental.Hazards {
		previousHazards[h.ID] = true
	}
	for _, h := range current.Hazards {
		if previousHazards[h.ID] || h.World == nil {
			continue
		}
		hazardPos := geo.Position{Latitude: h.World.Latitude, Longitude: h.World.Longitude}
		for _, n := range routeNodes {
			if geo.HaversineMeters(hazardPos, n.Position) <= cfg.HazardProximityThreshold {
				return true
			}
		}
	}

	return false
}

// Reroute refreshes edge scores from state and recomputes a route from
// position to destination. On success the manager adopts the new route
// and records the state and time it was computed against. Exceeding the
// 2-second soft deadline logs a warning but does not invalidate the
// returned route; the hard timeout is still enforced by cfg.
func (m *RerouteManager) Reroute(ctx context.Context, position, destination geo.Position, graph navgraph.NavigationGraph, cfg PathfindingConfig, state EnvironmentalState) (*navgraph.Route, error) {
	const softDeadline = 2 * time.Second
	started := m.clock.Now()

	refreshed := RefreshEdgeScores(graph, state.Light, state.Hazards, DefaultHazardProximityThresholdMeters)
	route, err := m.router.Route(ctx, position, destination, refreshed, cfg)
	if err != nil {
		return nil, err
	}

	if elapsed := m.clock.Since(started); elapsed > softDeadline {
		monitoring.Event(monitoring.SeverityWarning, rerouteComponent, "reroute took %s, exceeding the %s soft deadline", elapsed, softDeadline)
	}

	m.currentRoute = route
	m.lastRerouteTime = m.clock.Now()
	m.lastEnvironmental = state
	m.haveLastState = true
	return route, nil
}
