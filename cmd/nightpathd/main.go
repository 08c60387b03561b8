// Command nightpathd wires the perception pipeline, sensor fusion,
// navigation graph, and router into a fixed-length demo loop: each tick
// feeds a synthetic frame and ambient reading through the stack and
// reports the resulting route.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"nightpath/internal/config"
	"nightpath/internal/cv"
	"nightpath/internal/cvpipeline"
	"nightpath/internal/debugviz"
	"nightpath/internal/fsutil"
	"nightpath/internal/fusion"
	"nightpath/internal/geo"
	"nightpath/internal/monitoring"
	"nightpath/internal/navgraph"
	"nightpath/internal/regionstore"
	"nightpath/internal/routing"
	"nightpath/internal/timeutil"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "path to a tuning config JSON file")
	graphPath   = flag.String("graph", "", "path to a GeoJSON FeatureCollection to build the navigation graph from; a small built-in demo grid is used when empty")
	regionDBDir = flag.String("region-db", "", "directory for a SQLite offline-region cache; disabled when empty")
	debugDir    = flag.String("debug-dir", "", "directory to write per-tick histogram/contrast-map PNGs to; disabled when empty")
	debugAddr   = flag.String("debug-addr", "", "address for a live HTML debug dashboard (e.g. localhost:6060); disabled when empty")
	ticks       = flag.Int("ticks", 10, "number of simulated frame/position ticks to run")
	startLat    = flag.Float64("start-lat", 0.0, "starting latitude")
	startLon    = flag.Float64("start-lon", 0.0, "starting longitude")
	destLat     = flag.Float64("dest-lat", 0.0, "destination latitude")
	destLon     = flag.Float64("dest-lon", 0.003, "destination longitude")
)

func main() {
	flag.Parse()

	monitoring.SetLogger(log.Printf)

	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Printf("falling back to built-in tuning defaults: %v", err)
		cfg = config.EmptyTuningConfig()
	}

	graph, err := loadGraph(cfg, fsutil.OSFileSystem{})
	if err != nil {
		log.Fatalf("build navigation graph: %v", err)
	}

	var dashboard *debugviz.Server
	if *debugAddr != "" {
		dashboard = debugviz.NewServer(*debugAddr)
		dashboardCtx, cancelDashboard := context.WithCancel(context.Background())
		defer cancelDashboard()
		go func() {
			if err := dashboard.Start(dashboardCtx); err != nil {
				log.Printf("debug dashboard stopped: %v", err)
			}
		}()
	}

	pipeline := cvpipeline.New(timeutil.RealClock{})
	pipeline.Initialize(cvpipeline.Config{
		TargetFPS:             cfg.GetTargetFPS(),
		MaxQueueDepth:         cfg.GetMaxQueueDepth(),
		ConsecutiveErrorLimit: cfg.GetConsecutiveErrorLimit(),
		EnableHazardDetection: cfg.GetEnableHazardDetection(),
		EnableContrastMap:     cfg.GetEnableContrastMap(),
	})
	defer pipeline.Shutdown()

	router := routing.NewAStarRouter()
	var offline *routing.OfflineRouter
	if *regionDBDir != "" {
		store, err := regionstore.Open(filepath.Join(*regionDBDir, "regions.db"))
		if err != nil {
			log.Fatalf("open region store: %v", err)
		}
		defer store.Close()
		offline = routing.NewPersistentOfflineRouter(router, store)
		if err := offline.LoadFromStore(store); err != nil {
			log.Fatalf("warm offline cache: %v", err)
		}
		seedRegion := navgraph.CachedRegion{
			ID:        "demo-seed",
			Bounds:    geo.PaddedBounds(geo.Position{Latitude: *startLat, Longitude: *startLon}, geo.Position{Latitude: *destLat, Longitude: *destLon}, 2000),
			Graph:     graph,
			Timestamp: time.Now(),
			Source:    "nightpathd-demo",
		}
		if err := offline.PutRegion(&seedRegion); err != nil {
			log.Fatalf("seed offline cache: %v", err)
		}
	}

	rerouter := routing.NewRerouteManager(router, timeutil.RealClock{})
	pathCfg := routing.PathfindingConfig{
		MaxGraphNodes:             cfg.GetMaxGraphNodes(),
		RouteCalculationTimeoutMs: int(cfg.GetRouteTimeout() / time.Millisecond),
		CostWeights: routing.CostWeights{
			Distance:   cfg.GetDistanceWeight(),
			Visibility: cfg.GetVisibilityWeight(),
			Safety:     cfg.GetSafetyWeight(),
		},
	}
	rerouteCfg := routing.RerouteConfig{
		LightChangeThreshold:     0.2,
		HazardProximityThreshold: routing.DefaultHazardProximityThresholdMeters,
		MinRerouteInterval:       cfg.GetRerouteDebounce(),
	}

	weights := fusion.Weights{
		Camera:      cfg.GetFusionCameraWeight(),
		LightSensor: cfg.GetFusionLightSensorWeight(),
		Shadow:      cfg.GetFusionShadowWeight(),
	}

	start := geo.Position{Latitude: *startLat, Longitude: *startLon}
	dest := geo.Position{Latitude: *destLat, Longitude: *destLon}

	ctx := context.Background()

	for tick := 0; tick < *ticks; tick++ {
		frame := syntheticFrame(tick)

		result, future, err := pipeline.ProcessFrame(frame)
		if err != nil {
			log.Fatalf("tick %d: process frame: %v", tick, err)
		}
		if future != nil {
			awaited, err := future.Wait(ctx)
			if err != nil {
				log.Fatalf("tick %d: await queued frame: %v", tick, err)
			}
			result = &awaited
		}

		maxLux := cfg.GetFusionMaxLux()
		ambientLux := maxLux * float64(tick%5) / 4
		light := fusion.Fuse(weights, fusion.Inputs{
			MeanLuminance:  &result.Histogram.Mean,
			AmbientLux:     &ambientLux,
			MaxLux:         maxLux,
			ShadowCoverage: &result.Shadow.Coverage,
		}, time.Now())

		state := routing.EnvironmentalState{Light: light, Hazards: result.Hazards, Timestamp: light.Timestamp}
		graph = routing.RefreshEdgeScores(graph, light, result.Hazards, routing.DefaultHazardProximityThresholdMeters)

		route := rerouter.CurrentRoute()
		var routeNodes []navgraph.NavigationNode
		if route != nil {
			routeNodes = route.Nodes
		}

		needsRoute := route == nil
		if !needsRoute {
			needsRoute = rerouter.ShouldReroute(rerouteCfg, state, routeNodes)
		}

		if needsRoute {
			var err error
			route, err = rerouter.Reroute(ctx, start, dest, graph, pathCfg, state)
			if err != nil && offline != nil {
				log.Printf("tick %d: live route failed (%v), falling back to offline cache", tick, err)
				route, err = offline.Route(ctx, start, dest, pathCfg)
			}
			if err != nil {
				log.Printf("tick %d: no route available: %v", tick, err)
				continue
			}
		}

		log.Printf("tick %d: light=%.2f hazards=%d route nodes=%d distance=%.1fm cost=%.2f eta=%.0fs",
			tick, light.UnifiedLightLevel, len(result.Hazards), len(route.Nodes), route.TotalDistance, route.TotalCost, route.EstimatedTimeSeconds)

		if dashboard != nil {
			dashboard.RecordTick(debugviz.TickSample{
				Tick:        tick,
				Timestamp:   light.Timestamp,
				LightLevel:  light.UnifiedLightLevel,
				HazardCount: len(result.Hazards),
				RouteNodes:  len(route.Nodes),
			})
			dashboard.RecordHistogram(result.Histogram)
		}

		if *debugDir != "" && tick == 0 {
			if err := writeDebugArtifacts(*debugDir, result); err != nil {
				log.Printf("tick %d: debug export failed: %v", tick, err)
			}
		}
	}
}

// loadGraph builds the navigation graph from a GeoJSON file when graphPath
// is set, or from a small built-in demo grid otherwise. File access goes
// through fsys so tests can substitute fsutil.NewMemoryFileSystem().
func loadGraph(cfg *config.TuningConfig, fsys fsutil.FileSystem) (navgraph.NavigationGraph, error) {
	builder := navgraph.NewBuilder(cfg.GetMaxGraphNodes())

	if *graphPath != "" {
		data, err := fsys.ReadFile(*graphPath)
		if err != nil {
			return navgraph.NavigationGraph{}, fmt.Errorf("read graph file: %w", err)
		}
		rejected, err := builder.IngestGeoJSON(data)
		if err != nil {
			return navgraph.NavigationGraph{}, fmt.Errorf("ingest geojson: %w", err)
		}
		for _, r := range rejected {
			log.Printf("rejected feature: %s", r.Error())
		}
		return builder.GetGraph(), nil
	}

	return buildDemoGrid(builder, *startLat, *startLon, *destLat, *destLon)
}

// buildDemoGrid lays five nodes in a line between start and dest so the
// demo loop always has a route to compute without external map data.
func buildDemoGrid(builder *navgraph.Builder, startLat, startLon, destLat, destLon float64) (navgraph.NavigationGraph, error) {
	const steps = 4
	var prevID string
	for i := 0; i <= steps; i++ {
		frac := float64(i) / steps
		pos := geo.Position{
			Latitude:  startLat + frac*(destLat-startLat),
			Longitude: startLon + frac*(destLon-startLon),
		}
		id := fmt.Sprintf("demo-%d", i)
		if err := builder.AddNode(navgraph.NavigationNode{ID: id, Position: pos}); err != nil {
			return navgraph.NavigationGraph{}, err
		}
		if i > 0 {
			dist := geo.HaversineMeters(builder.GetGraph().Nodes[prevID].Position, pos)
			fwd := navgraph.NavigationEdge{ID: prevID + "_" + id, FromNodeID: prevID, ToNodeID: id, Distance: dist, VisibilityScore: 1, SafetyScore: 1}
			rev := navgraph.NavigationEdge{ID: id + "_" + prevID, FromNodeID: id, ToNodeID: prevID, Distance: dist, VisibilityScore: 1, SafetyScore: 1}
			if err := builder.AddEdge(fwd); err != nil {
				return navgraph.NavigationGraph{}, err
			}
			if err := builder.AddEdge(rev); err != nil {
				return navgraph.NavigationGraph{}, err
			}
		}
		prevID = id
	}
	return builder.GetGraph(), nil
}

// syntheticFrame produces a small RGBA buffer whose brightness oscillates
// over ticks to exercise fusion's day/night transition.
func syntheticFrame(tick int) cv.Frame {
	const w, h = 16, 16
	level := uint8(128 + 96*math.Sin(float64(tick)/2))
	pixels := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pixels[i*4] = level
		pixels[i*4+1] = level
		pixels[i*4+2] = level
		pixels[i*4+3] = 255
	}
	return cv.Frame{Width: w, Height: h, Pixels: pixels}
}

func writeDebugArtifacts(dir string, result *cvpipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	if err := debugviz.HistogramPNG(result.Histogram, "tick 0 brightness", filepath.Join(dir, "histogram.png")); err != nil {
		return err
	}
	if len(result.ContrastMap.Values) > 0 {
		if err := debugviz.ContrastMapPNG(result.ContrastMap, "tick 0 contrast", filepath.Join(dir, "contrast.png")); err != nil {
			return err
		}
	}
	return nil
}
