package routing

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"nightpath/internal/geo"
	"nightpath/internal/navgraph"
	"nightpath/internal/nperr"
	"nightpath/internal/regionstore"
)

func generateRegionID() string {
	return uuid.New().String()
}

const offlineComponent = "routing.OfflineRouter"

// offlineRegionPadMeters is the default padding applied around start and
// goal when collecting cached regions to merge.
const offlineRegionPadMeters = 1000.0

// OfflineRouter answers route requests from a cache of previously
// persisted CachedRegions when no live graph is available.
type OfflineRouter struct {
	mu      sync.RWMutex
	regions map[string]navgraph.CachedRegion
	router  Router
	store   *regionstore.Store
}

// NewOfflineRouter builds an offline router backed by router for the
// actual search once a merged graph is assembled. The in-memory cache
// starts empty; use PutRegion or LoadFromStore to populate it.
func NewOfflineRouter(router Router) *OfflineRouter {
	return &OfflineRouter{regions: make(map[string]navgraph.CachedRegion), router: router}
}

// NewPersistentOfflineRouter is like NewOfflineRouter, but every PutRegion
// and RemoveRegion call is mirrored to store so the cache survives a
// restart. Its in-memory cache starts empty; warm it with LoadFromStore
// after construction.
func NewPersistentOfflineRouter(router Router, store *regionstore.Store) *OfflineRouter {
	return &OfflineRouter{regions: make(map[string]navgraph.CachedRegion), router: router, store: store}
}

// LoadFromStore adds every region currently persisted in store to the
// in-memory cache, replacing any cached region with the same ID. Regions
// already cached under other IDs are kept.
func (o *OfflineRouter) LoadFromStore(store *regionstore.Store) error {
	regions, err := store.All()
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range regions {
		o.regions[r.ID] = r
	}
	return nil
}

// PutRegion stores or replaces a cached region by id, and persists it when
// the router was constructed with NewPersistentOfflineRouter. If
// region.ID is empty and a backing store is configured, the store
// assigns a new ID which is written back to region before it is cached
// in memory.
func (o *OfflineRouter) PutRegion(region *navgraph.CachedRegion) error {
	if o.store != nil {
		if err := o.store.Put(region); err != nil {
			return err
		}
	} else if region.ID == "" {
		region.ID = generateRegionID()
	}

	o.mu.Lock()
	o.regions[region.ID] = *region
	o.mu.Unlock()
	return nil
}

// RemoveRegion evicts a cached region by id, and deletes it from the
// backing store when one is configured.
func (o *OfflineRouter) RemoveRegion(id string) error {
	o.mu.Lock()
	delete(o.regions, id)
	store := o.store
	o.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Delete(id)
}

// Route computes a padded bounding box around start and goal, merges every
// cached region intersecting it, and runs the underlying router over the
// merged graph. It returns NoRoute when no cached region covers the area
// or the underlying router finds no path.
func (o *OfflineRouter) Route(ctx context.Context, start, goal geo.Position, cfg PathfindingConfig) (*navgraph.Route, error) {
	bounds := geo.PaddedBounds(start, goal, offlineRegionPadMeters)

	o.mu.RLock()
	var covering []navgraph.CachedRegion
	for _, r := range o.regions {
		if r.Bounds.Intersects(bounds) {
			covering = append(covering, r)
		}
	}
	o.mu.RUnlock()

	if len(covering) == 0 {
		return nil, nperr.New(nperr.KindNoRoute, offlineComponent, "no cached region covers the requested area")
	}

	merged := mergeGraphs(covering)
	return o.router.Route(ctx, start, goal, merged, cfg)
}

// mergeGraphs unions the node and edge maps of every region, first-writer-
// wins on id collision. Regions are visited in a fixed order (by ID) so
// the merge is deterministic across calls.
func mergeGraphs(regions []navgraph.CachedRegion) navgraph.NavigationGraph {
	sortedRegions := append([]navgraph.CachedRegion(nil), regions...)
	sortRegionsByID(sortedRegions)

	nodes := make(map[string]navgraph.NavigationNode)
	edges := make(map[string]navgraph.NavigationEdge)
	for _, r := range sortedRegions {
		for id, n := range r.Graph.Nodes {
			if _, exists := nodes[id]; !exists {
				nodes[id] = n
			}
		}
		for id, e := range r.Graph.Edges {
			if _, exists := edges[id]; !exists {
				edges[id] = e
			}
		}
	}
	return navgraph.NavigationGraph{Nodes: nodes, Edges: edges}
}

func sortRegionsByID(regions []navgraph.CachedRegion) {
	for i := 1; i < len(regions); i++ {
		for j := i; j > 0 && regions[j].ID < regions[j-1].ID; j-- {
			regions[j], regions[j-1] = regions[j-1], regions[j]
		}
	}
}
