// Package geo holds the geographic primitives and the earth math on top of them.
// Coordinates are in degrees, longitude first.
package geo

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/pdok/gridmap/mathhelp"
)

// Precision is the number of decimals geographic outputs are rounded to.
const Precision = 5

type Coordinate struct {
	Lon float64
	Lat float64
}

func NewCoordinate(lon, lat float64) Coordinate {
	return Coordinate{Lon: lon, Lat: lat}
}

// Round returns c rounded to Precision decimals.
func (c Coordinate) Round() Coordinate {
	return Coordinate{Lon: mathhelp.Round(c.Lon, Precision), Lat: mathhelp.Round(c.Lat, Precision)}
}

// Compare orders by latitude descending, then longitude descending.
// Only meant for keying sorted collections, it says nothing about proximity.
func (c Coordinate) Compare(o Coordinate) int {
	switch {
	case c.Lat > o.Lat:
		return -1
	case c.Lat < o.Lat:
		return 1
	case c.Lon > o.Lon:
		return -1
	case c.Lon < o.Lon:
		return 1
	}
	return 0
}

func (c Coordinate) ToGeomPoint() geom.Point {
	return geom.Point{c.Lon, c.Lat}
}

func (c Coordinate) xy() [2]float64 {
	return [2]float64{c.Lon, c.Lat}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.5f %.5f)", c.Lon, c.Lat)
}
