package gpkg

import (
	"github.com/go-spatial/geom"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/spatial"
)

// Feature is one row of a feature table.
type Feature struct {
	FID     int64
	Geom    geom.Geometry
	Columns map[string]any
}

func (f Feature) RowID() int {
	return int(f.FID)
}

// Geometry converts the geometry for indexing. Lines need exactly two points,
// polygons are taken by their outer ring. Anything else is nil.
func (f Feature) Geometry() spatial.Geometry {
	switch g := f.Geom.(type) {
	case geom.Point:
		return spatial.Point{At: coordinate(g)}
	case geom.Line:
		return spatial.Line{Segment: geo.Segment(coordinate(g[0]), coordinate(g[1]))}
	case geom.LineString:
		if len(g) != 2 {
			return nil
		}
		return spatial.Line{Segment: geo.Segment(coordinate(g[0]), coordinate(g[1]))}
	case geom.Polygon:
		if len(g) == 0 {
			return nil
		}
		points := g[0]
		if n := len(points); n > 1 && points[0] == points[n-1] {
			points = points[:n-1]
		}
		if len(points) < 3 {
			return nil
		}
		ring := geo.NewPolygon()
		for _, p := range points {
			ring.Add(coordinate(p))
		}
		return spatial.Polygon{Ring: ring}
	case *geom.Extent:
		if g == nil {
			return nil
		}
		return spatial.Rectangle{Box: geo.NewRectangle(g.MinX(), g.MaxY(), g.MaxX(), g.MinY())}
	}
	return nil
}

// String returns the text column name, empty when absent.
func (f Feature) String(name string) string {
	s, _ := f.Columns[name].(string)
	return s
}

// Float returns the numeric column name, 0 when absent.
func (f Feature) Float(name string) float64 {
	switch v := f.Columns[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func coordinate(p [2]float64) geo.Coordinate {
	return geo.NewCoordinate(p[0], p[1])
}
