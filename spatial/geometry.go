package spatial

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/pdok/gridmap/geo"
)

// Geometry is one of Point, Line, Rectangle or Polygon.
type Geometry interface {
	Bounds() geo.Rectangle
	Geom() geom.Geometry
	isGeometry()
}

type Point struct {
	At geo.Coordinate
}

// Line is a single segment.
type Line struct {
	Segment geo.Rectangle
}

type Rectangle struct {
	Box geo.Rectangle
}

type Polygon struct {
	Ring geo.Polygon
}

func (Point) isGeometry()     {}
func (Line) isGeometry()      {}
func (Rectangle) isGeometry() {}
func (Polygon) isGeometry()   {}

func (g Point) Bounds() geo.Rectangle {
	return geo.Segment(g.At, g.At)
}

func (g Line) Bounds() geo.Rectangle {
	return g.Segment.Bounds()
}

func (g Rectangle) Bounds() geo.Rectangle {
	return g.Box.Bounds()
}

func (g Polygon) Bounds() geo.Rectangle {
	return g.Ring.Bounds()
}

func (g Point) Geom() geom.Geometry     { return g.At.ToGeomPoint() }
func (g Line) Geom() geom.Geometry      { return g.Segment.ToGeomLine() }
func (g Rectangle) Geom() geom.Geometry { return g.Box.ToGeomExtent() }
func (g Polygon) Geom() geom.Geometry   { return g.Ring.ToGeomPolygon() }

// matches tests a stored geometry against a query box.
func matches(q geo.Rectangle, g Geometry) bool {
	switch g := g.(type) {
	case Point:
		return q.PointContains(g.At) != geo.None
	case Line:
		return q.LineContains(g.Segment) != geo.None
	case Rectangle:
		return q.RectangleContains(g.Box) != geo.None
	case Polygon:
		return q.PolygonContains(g.Ring) != geo.None
	}
	panic(unknownGeometry(g))
}

// Distance is the distance in metres from pt to g, zero when pt lies on or in g.
func Distance(pt geo.Coordinate, g Geometry) float64 {
	switch g := g.(type) {
	case Point:
		return geo.Distance(pt, g.At)
	case Line:
		return geo.SegmentDistance(g.Segment, pt)
	case Rectangle:
		return g.Box.Distance(pt)
	case Polygon:
		return g.Ring.Distance(pt)
	}
	return math.NaN()
}
