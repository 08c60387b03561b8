package navgraph

import (
	"fmt"
	"math"

	geojson "github.com/paulmach/go.geojson"
	"github.com/google/uuid"

	"nightpath/internal/geo"
	"nightpath/internal/monitoring"
	"nightpath/internal/nperr"
)

// ValidationError reports a single rejected GeoJSON feature. Field follows
// the dotted-path convention (e.g. "features[3].geometry.coordinates[0]").
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// defaultEdgeScore is assigned to every edge derived from GeoJSON geometry,
// since raw map data carries no lighting or hazard information yet.
const defaultEdgeScore = 0.5

// Minimum coordinate counts per the GeoJSON ingestion contract: a
// LineString needs at least two points to form an edge, a Polygon (or
// MultiPolygon) ring needs at least four to close a loop.
const (
	minLineStringCoords = 2
	minPolygonRingCoords = 4
)

// IngestGeoJSON parses a FeatureCollection and populates the builder with
// nodes and edges. Point features become a single node and MultiPoint
// features one unconnected node per point; LineString, Polygon,
// MultiLineString, and MultiPolygon decompose into node chains with one
// edge per consecutive coordinate pair. A feature
// with an invalid geometry or out-of-range coordinate is rejected and
// reported in the returned slice; ingestion continues with the remaining
// features. The only fatal error is malformed top-level JSON or a node cap
// overflow (LimitExceeded), since exceeding the cap mid-ingestion leaves
// the graph in an unpredictable partial state.
func (b *Builder) IngestGeoJSON(data []byte) ([]ValidationError, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nperr.Wrap(nperr.KindInvalidArgument, component, "malformed GeoJSON FeatureCollection", err)
	}

	var rejected []ValidationError
	for i, feature := range fc.Features {
		prefix := fmt.Sprintf("features[%d]", i)
		if feature == nil || feature.Geometry == nil {
			rejected = append(rejected, ValidationError{Field: prefix + ".geometry", Message: "missing geometry"})
			continue
		}

		var verrs []ValidationError
		switch feature.Geometry.Type {
		case geojson.GeometryPoint:
			verrs, err = b.ingestPoint(prefix, feature.Geometry.Point)
		case geojson.GeometryMultiPoint:
			for j, c := range feature.Geometry.MultiPoint {
				var pverrs []ValidationError
				pverrs, err = b.ingestPoint(fmt.Sprintf("%s.geometry.coordinates[%d]", prefix, j), c)
				verrs = append(verrs, pverrs...)
				if err != nil {
					break
				}
			}
		case geojson.GeometryLineString:
			verrs, err = b.ingestLine(prefix+".geometry.coordinates", feature.Geometry.LineString, minLineStringCoords)
		case geojson.GeometryPolygon:
			for j, ring := range feature.Geometry.Polygon {
				var rverrs []ValidationError
				rverrs, err = b.ingestLine(fmt.Sprintf("%s.geometry.coordinates[%d]", prefix, j), ring, minPolygonRingCoords)
				verrs = append(verrs, rverrs...)
				if err != nil {
					break
				}
			}
		case geojson.GeometryMultiLineString:
			for j, line := range feature.Geometry.MultiLineString {
				var lverrs []ValidationError
				lverrs, err = b.ingestLine(fmt.Sprintf("%s.geometry.coordinates[%d]", prefix, j), line, minLineStringCoords)
				verrs = append(verrs, lverrs...)
				if err != nil {
					break
				}
			}
		case geojson.GeometryMultiPolygon:
			for j, poly := range feature.Geometry.MultiPolygon {
				for k, ring := range poly {
					var rverrs []ValidationError
					rverrs, err = b.ingestLine(fmt.Sprintf("%s.geometry.coordinates[%d][%d]", prefix, j, k), ring, minPolygonRingCoords)
					verrs = append(verrs, rverrs...)
					if err != nil {
						break
					}
				}
				if err != nil {
					break
				}
			}
		default:
			verrs = []ValidationError{{Field: prefix + ".geometry.type", Message: fmt.Sprintf("unsupported geometry type %q", feature.Geometry.Type)}}
		}

		if err != nil {
			// Only a fatal builder error (LimitExceeded) reaches here; everything
			// else is reported as a per-feature ValidationError instead.
			return rejected, err
		}
		if len(verrs) > 0 {
			monitoring.Event(monitoring.SeverityWarning, component, "rejecting feature %d: %v", i, verrs)
			rejected = append(rejected, verrs...)
		}
	}

	return rejected, nil
}

func (b *Builder) ingestPoint(field string, coord []float64) ([]ValidationError, error) {
	pos, verr := validateCoordinate(field, coord)
	if verr != nil {
		return []ValidationError{*verr}, nil
	}
	if err := b.AddNode(NavigationNode{ID: nodeIDFor(pos), Position: pos}); err != nil {
		if nperr.Is(err, nperr.KindLimitExceeded) {
			return nil, err
		}
		return []ValidationError{{Field: field, Message: err.Error()}}, nil
	}
	return nil, nil
}

// ingestLine validates every coordinate of a line (or ring), adds a node
// per coordinate, and chains consecutive coordinates into edges. The whole
// line is rejected as a unit if any coordinate is invalid. minCoords is 2
// for a LineString and 4 for a Polygon/MultiPolygon ring.
func (b *Builder) ingestLine(field string, coords [][]float64, minCoords int) ([]ValidationError, error) {
	if len(coords) < minCoords {
		return []ValidationError{{Field: field, Message: fmt.Sprintf("line requires at least %d coordinates", minCoords)}}, nil
	}

	positions := make([]geo.Position, 0, len(coords))
	for idx, c := range coords {
		pos, verr := validateCoordinate(fmt.Sprintf("%s[%d]", field, idx), c)
		if verr != nil {
			return []ValidationError{*verr}, nil
		}
		positions = append(positions, pos)
	}

	nodeIDs := make([]string, len(positions))
	for i, pos := range positions {
		nodeIDs[i] = nodeIDFor(pos)
		if err := b.AddNode(NavigationNode{ID: nodeIDs[i], Position: pos}); err != nil {
			return nil, err
		}
	}

	for i := 0; i+1 < len(positions); i++ {
		edge := NavigationEdge{
			ID:              fmt.Sprintf("edge_%s", uuid.NewString()),
			FromNodeID:      nodeIDs[i],
			ToNodeID:        nodeIDs[i+1],
			Distance:        geo.HaversineMeters(positions[i], positions[i+1]),
			VisibilityScore: defaultEdgeScore,
			SafetyScore:     defaultEdgeScore,
		}
		if err := b.AddEdge(edge); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// validateCoordinate checks a raw [lon, lat] or [lon, lat, alt] coordinate
// against the GeoJSON ordering convention and the valid lon/lat ranges.
func validateCoordinate(field string, coord []float64) (geo.Position, *ValidationError) {
	if len(coord) < 2 {
		return geo.Position{}, &ValidationError{Field: field, Message: "coordinate requires at least [lon, lat]"}
	}
	lon, lat := coord[0], coord[1]
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return geo.Position{}, &ValidationError{Field: field, Message: fmt.Sprintf("longitude %v out of range [-180,180]", lon)}
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return geo.Position{}, &ValidationError{Field: field, Message: fmt.Sprintf("latitude %v out of range [-90,90]", lat)}
	}
	pos := geo.Position{Latitude: lat, Longitude: lon}
	if len(coord) >= 3 {
		alt := coord[2]
		pos.Altitude = &alt
	}
	return pos, nil
}

// nodeIDFor derives a deterministic node identifier from a position's
// longitude and latitude rounded to 6 decimal places, so repeated
// ingestion of the same map data converges onto the same node set.
func nodeIDFor(pos geo.Position) string {
	return fmt.Sprintf("%.6f,%.6f", pos.Longitude, pos.Latitude)
}
