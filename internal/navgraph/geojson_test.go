package navgraph

import "testing"

func TestIngestGeoJSONPointCreatesNode(t *testing.T) {
	b := NewBuilder(100)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.42, 37.77]}, "properties": {}}
		]
	}`)

	rejected, err := b.IngestGeoJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("expected no rejected features, got %v", rejected)
	}
	if b.GetStats().NodeCount != 1 {
		t.Fatalf("expected 1 node, got %d", b.GetStats().NodeCount)
	}
}

func TestIngestGeoJSONLineStringChainsEdges(t *testing.T) {
	b := NewBuilder(100)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[0,0.001],[0,0.002]]}, "properties": {}}
		]
	}`)

	rejected, err := b.IngestGeoJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("expected no rejected features, got %v", rejected)
	}
	stats := b.GetStats()
	if stats.NodeCount != 3 {
		t.Errorf("expected 3 nodes, got %d", stats.NodeCount)
	}
	if stats.EdgeCount != 2 {
		t.Errorf("expected 2 edges, got %d", stats.EdgeCount)
	}
	if err := b.ValidateGraph(); err != nil {
		t.Errorf("ingested graph must satisfy I1: %v", err)
	}
}

func TestIngestGeoJSONPolygonTreatsRingAsLineString(t *testing.T) {
	b := NewBuilder(100)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]}, "properties": {}}
		]
	}`)

	rejected, err := b.IngestGeoJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("expected no rejected features, got %v", rejected)
	}
	stats := b.GetStats()
	// The closing coordinate repeats the first, so it maps to the same
	// rounded-coordinate node id: 5 coordinates, 4 distinct nodes.
	if stats.NodeCount != 4 {
		t.Errorf("expected 4 nodes (closing coordinate reuses the first node), got %d", stats.NodeCount)
	}
	if stats.EdgeCount != 4 {
		t.Errorf("expected 4 chained edges, got %d", stats.EdgeCount)
	}
}

func TestIngestGeoJSONRejectsShortPolygonRing(t *testing.T) {
	b := NewBuilder(100)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1]]]}, "properties": {}}
		]
	}`)

	rejected, err := b.IngestGeoJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejected) != 1 {
		t.Fatalf("expected the 3-point ring to be rejected, got %v", rejected)
	}
	stats := b.GetStats()
	if stats.NodeCount != 0 || stats.EdgeCount != 0 {
		t.Errorf("expected nothing ingested from a rejected ring, got %d nodes %d edges", stats.NodeCount, stats.EdgeCount)
	}
}

func TestIngestGeoJSONRejectsOutOfRangeCoordinate(t *testing.T) {
	b := NewBuilder(100)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [200, 37.77]}, "properties": {}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.4, 37.77]}, "properties": {}}
		]
	}`)

	rejected, err := b.IngestGeoJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejected) != 1 {
		t.Fatalf("expected exactly 1 rejected feature, got %d: %v", len(rejected), rejected)
	}
	if b.GetStats().NodeCount != 1 {
		t.Errorf("expected the valid feature to still be ingested, got %d nodes", b.GetStats().NodeCount)
	}
}

func TestIngestGeoJSONRejectsShortLineString(t *testing.T) {
	b := NewBuilder(100)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0]]}, "properties": {}}
		]
	}`)

	rejected, err := b.IngestGeoJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejected) != 1 {
		t.Fatalf("expected the short LineString to be rejected, got %v", rejected)
	}
}

func TestIngestGeoJSONStopsWithLimitExceeded(t *testing.T) {
	b := NewBuilder(1)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0,0]}, "properties": {}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1,1]}, "properties": {}}
		]
	}`)

	_, err := b.IngestGeoJSON(data)
	if err == nil {
		t.Fatal("expected LimitExceeded when ingestion exceeds the node cap")
	}
}

func TestIngestGeoJSONDeterministicNodeIDFromRoundedCoordinate(t *testing.T) {
	b := NewBuilder(100)
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1.1234567, 2.7654321]}, "properties": {}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1.1234569, 2.7654322]}, "properties": {}}
		]
	}`)

	_, err := b.IngestGeoJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both coordinates round to the same 6-decimal id, so they should
	// collapse into a single node rather than two.
	if b.GetStats().NodeCount != 1 {
		t.Errorf("expected coordinates rounding to the same id to collapse to 1 node, got %d", b.GetStats().NodeCount)
	}
}
