package spatial

import (
	"fmt"
	"slices"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/mapslicehelp"
)

// Record is what the index stores: a geometry with a stable id and an opaque
// payload that is handed back untouched.
type Record struct {
	ID       int
	Geometry Geometry
	Payload  any
}

func NewPoint(id int, at geo.Coordinate, payload any) Record {
	return Record{ID: id, Geometry: Point{At: at}, Payload: payload}
}

func NewLine(id int, segment geo.Rectangle, payload any) Record {
	return Record{ID: id, Geometry: Line{Segment: segment}, Payload: payload}
}

func NewRectangle(id int, box geo.Rectangle, payload any) Record {
	return Record{ID: id, Geometry: Rectangle{Box: box}, Payload: payload}
}

func NewPolygon(id int, ring geo.Polygon, payload any) Record {
	return Record{ID: id, Geometry: Polygon{Ring: ring}, Payload: payload}
}

// RecordSet holds query results by id. A record spanning several sheets is found once.
type RecordSet map[int]Record

func (rs RecordSet) IDs() []int {
	return mapslicehelp.SortedKeys(rs)
}

// Sorted returns the records ordered by id.
func (rs RecordSet) Sorted() []Record {
	records := make([]Record, 0, len(rs))
	for _, id := range rs.IDs() {
		records = append(records, rs[id])
	}
	return records
}

type Hit struct {
	Record
	Distance float64
}

// RankByDistance orders the records by their distance to pt, closest first.
func (rs RecordSet) RankByDistance(pt geo.Coordinate) []Hit {
	hits := make([]Hit, 0, len(rs))
	for _, r := range rs {
		hits = append(hits, Hit{Record: r, Distance: Distance(pt, r.Geometry)})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return a.ID - b.ID
	})
	return hits
}

func unknownGeometry(g Geometry) error {
	return fmt.Errorf("unknown geometry %T", g)
}
