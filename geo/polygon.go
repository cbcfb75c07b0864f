package geo

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/pdok/gridmap/geomhelp"
)

// Polygon is a single ring, implicitly closed from the last point back to the first.
type Polygon struct {
	Points []Coordinate
}

func NewPolygon(points ...Coordinate) Polygon {
	return Polygon{Points: points}
}

// Add appends c unless one of the two new edges would cross an existing one.
func (p *Polygon) Add(c Coordinate) bool {
	n := len(p.Points)
	if n >= 3 {
		closing := Segment(p.Points[n-1], c)
		opening := Segment(c, p.Points[0])
		for i := 0; i < n-1; i++ {
			edge := Segment(p.Points[i], p.Points[i+1])
			if i < n-2 && SegmentsIntersect(edge, closing) {
				return false
			}
			if i > 0 && SegmentsIntersect(edge, opening) {
				return false
			}
		}
	}
	p.Points = append(p.Points, c)
	return true
}

// Edges returns the ring's sides, including the closing one.
func (p Polygon) Edges() []Rectangle {
	n := len(p.Points)
	if n < 2 {
		return nil
	}
	edges := make([]Rectangle, n)
	for i := range p.Points {
		edges[i] = Segment(p.Points[i], p.Points[(i+1)%n])
	}
	return edges
}

func (p Polygon) Bounds() Rectangle {
	if len(p.Points) == 0 {
		return Rectangle{}
	}
	b := Rectangle{Left: math.Inf(1), Top: math.Inf(-1), Right: math.Inf(-1), Bottom: math.Inf(1)}
	for _, c := range p.Points {
		b.Left = math.Min(b.Left, c.Lon)
		b.Right = math.Max(b.Right, c.Lon)
		b.Top = math.Max(b.Top, c.Lat)
		b.Bottom = math.Min(b.Bottom, c.Lat)
	}
	return b
}

// PointContains reports Contains for points inside the ring or on its boundary.
func (p Polygon) PointContains(c Coordinate) Intersect {
	if len(p.Points) < 3 {
		return None
	}
	in := false
	for _, edge := range p.Edges() {
		intersects, on := geomhelp.RayIntersect(c.xy(), edge.LeftTop().xy(), edge.RightBottom().xy())
		if on {
			return Contains
		}
		if intersects {
			in = !in
		}
	}
	if in {
		return Contains
	}
	return None
}

// Distance is the distance in metres from c to the polygon, zero when c is inside.
func (p Polygon) Distance(c Coordinate) float64 {
	switch len(p.Points) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p.Points[0], c)
	}
	if p.PointContains(c) == Contains {
		return 0
	}
	d := math.Inf(1)
	for _, edge := range p.Edges() {
		d = math.Min(d, SegmentDistance(edge, c))
	}
	return d
}

func (p Polygon) ToGeomPolygon() geom.Polygon {
	ring := make([][2]float64, len(p.Points))
	for i, c := range p.Points {
		ring[i] = c.xy()
	}
	return geom.Polygon{ring}
}
