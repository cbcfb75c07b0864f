package geo

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	"github.com/pdok/gridmap/mathhelp"
)

// Rectangle is an axis aligned box with Top being the northern edge.
// It doubles as a line segment running from LeftTop to RightBottom, in which
// case the fields are not required to be ordered.
type Rectangle struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// World covers the whole projectable earth.
var World = Rectangle{Left: -180, Top: MaxLatitude, Right: 180, Bottom: -MaxLatitude}

func NewRectangle(left, top, right, bottom float64) Rectangle {
	return Rectangle{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Segment builds the line from start to end.
func Segment(start, end Coordinate) Rectangle {
	return Rectangle{Left: start.Lon, Top: start.Lat, Right: end.Lon, Bottom: end.Lat}
}

func (r Rectangle) LeftTop() Coordinate     { return Coordinate{Lon: r.Left, Lat: r.Top} }
func (r Rectangle) RightBottom() Coordinate { return Coordinate{Lon: r.Right, Lat: r.Bottom} }
func (r Rectangle) LeftBottom() Coordinate  { return Coordinate{Lon: r.Left, Lat: r.Bottom} }
func (r Rectangle) RightTop() Coordinate    { return Coordinate{Lon: r.Right, Lat: r.Top} }

func (r Rectangle) Width() float64  { return math.Abs(r.Right - r.Left) }
func (r Rectangle) Height() float64 { return math.Abs(r.Top - r.Bottom) }

// Bounds returns r with ordered edges, useful when r was built as a segment.
func (r Rectangle) Bounds() Rectangle {
	return Rectangle{
		Left:   math.Min(r.Left, r.Right),
		Top:    math.Max(r.Top, r.Bottom),
		Right:  math.Max(r.Left, r.Right),
		Bottom: math.Min(r.Top, r.Bottom),
	}
}

// Edges returns the four sides clockwise from the top one, each as a segment.
func (r Rectangle) Edges() [4]Rectangle {
	return [4]Rectangle{
		{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Top},
		{Left: r.Right, Top: r.Top, Right: r.Right, Bottom: r.Bottom},
		{Left: r.Right, Top: r.Bottom, Right: r.Left, Bottom: r.Bottom},
		{Left: r.Left, Top: r.Bottom, Right: r.Left, Bottom: r.Top},
	}
}

func (r Rectangle) PointContains(c Coordinate) Intersect {
	if r.Left <= c.Lon && c.Lon <= r.Right && r.Bottom <= c.Lat && c.Lat <= r.Top {
		return Contains
	}
	return None
}

func (r Rectangle) RectangleContains(o Rectangle) Intersect {
	switch {
	case r.encloses(o):
		return Contains
	case o.encloses(r):
		return Supersets
	case o.Left <= r.Right && r.Left <= o.Right && o.Bottom <= r.Top && r.Bottom <= o.Top:
		return Intersects
	}
	return None
}

func (r Rectangle) encloses(o Rectangle) bool {
	return r.Left <= o.Left && o.Right <= r.Right && r.Bottom <= o.Bottom && o.Top <= r.Top
}

// LineContains tests the segment line against the box r.
func (r Rectangle) LineContains(line Rectangle) Intersect {
	start := r.PointContains(line.LeftTop()) == Contains
	end := r.PointContains(line.RightBottom()) == Contains
	if start && end {
		return Contains
	}
	if start || end {
		return Intersects
	}
	for _, edge := range r.Edges() {
		if SegmentsIntersect(edge, line) {
			return Intersects
		}
	}
	return None
}

// PolygonContains tests the polygon p against the box r.
func (r Rectangle) PolygonContains(p Polygon) Intersect {
	if len(p.Points) == 0 {
		return None
	}
	inside := true
	for _, pt := range p.Points {
		if r.PointContains(pt) == None {
			inside = false
			break
		}
	}
	if inside {
		return Contains
	}
	for _, edge := range p.Edges() {
		if r.LineContains(edge) != None {
			return Intersects
		}
	}
	for _, corner := range [4]Coordinate{r.LeftTop(), r.RightTop(), r.RightBottom(), r.LeftBottom()} {
		if p.PointContains(corner) == None {
			return None
		}
	}
	return Supersets
}

// Distance is the distance in metres from c to the box, zero when c is inside.
// It measures to the point of the box nearest in longitude and latitude, so the
// edges are the parallels and meridians of the box and not chords between its corners.
func (r Rectangle) Distance(c Coordinate) float64 {
	b := r.Bounds()
	nearest := Coordinate{
		Lon: mathhelp.Clamp(c.Lon, b.Left, b.Right),
		Lat: mathhelp.Clamp(c.Lat, b.Bottom, b.Top),
	}
	return Distance(c, nearest)
}

// LineDistance is the distance in metres from c to r taken as a segment.
func (r Rectangle) LineDistance(c Coordinate) float64 {
	return SegmentDistance(r, c)
}

// LineLength is the length in metres of r taken as a segment.
func (r Rectangle) LineLength() float64 {
	return Distance(r.LeftTop(), r.RightBottom())
}

func (r Rectangle) LineMiddle() Coordinate {
	return Coordinate{
		Lon: mathhelp.Round((r.Left+r.Right)/2, Precision),
		Lat: mathhelp.Round((r.Top+r.Bottom)/2, Precision),
	}
}

func (r Rectangle) ToGeomExtent() geom.Extent {
	b := r.Bounds()
	return geom.Extent{b.Left, b.Bottom, b.Right, b.Top}
}

func (r Rectangle) ToGeomLine() geom.Line {
	return geom.Line{r.LeftTop().xy(), r.RightBottom().xy()}
}

func (r Rectangle) String() string {
	return fmt.Sprintf("[%v %v]", r.LeftTop(), r.RightBottom())
}
