// Package tile maps geographic coordinates onto the square tile grid of a zoom level.
//
// Level 1 is a single 256px tile covering the world, each next level doubles the
// pixel space in both directions. Longitude maps linearly onto x, latitude goes
// through the Mercator transform onto y, both relative to the bitmap origin in the
// middle of the pixel space.
package tile

import (
	"math"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/mathhelp"
)

// Size is the width and height of one tile in pixels.
const Size = 256

// NumTiles is the number of tiles along one axis.
func NumTiles(level int) int64 {
	return int64(mathhelp.Pow2(uint(level - 1)))
}

// BitmapSize is the side of the pixel space in pixels.
func BitmapSize(level int) float64 {
	return float64(NumTiles(level) * Size)
}

func BitmapOrigin(level int) float64 {
	return BitmapSize(level) / 2
}

func PixelsPerDegree(level int) float64 {
	return BitmapSize(level) / 360
}

func PixelsPerRadian(level int) float64 {
	return BitmapSize(level) / (2 * math.Pi)
}

// LevelSkip is the number of zoom levels spanned by a grid that splits one tile
// into power children, that is log2(sqrt(power)).
func LevelSkip(power uint) int {
	return int(math.Round(math.Log2(math.Sqrt(float64(power)))))
}

// Pixel is a position in the pixel space of a zoom level. It is fractional,
// floor it (or take its Block) for addressing.
type Pixel struct {
	X     float64
	Y     float64
	Level int
}

// ToPixel projects c into the pixel space of level. Latitudes outside the
// Mercator band are clamped onto it.
func ToPixel(c geo.Coordinate, level int) Pixel {
	origin := BitmapOrigin(level)
	lat := mathhelp.Clamp(c.Lat, -geo.MaxLatitude, geo.MaxLatitude)
	sinLat := math.Sin(lat * math.Pi / 180)
	return Pixel{
		X:     origin + c.Lon*PixelsPerDegree(level),
		Y:     origin - 0.5*math.Log((1+sinLat)/(1-sinLat))*PixelsPerRadian(level),
		Level: level,
	}
}

// ToGeographic is the inverse of ToPixel, rounded to geo.Precision decimals.
func (p Pixel) ToGeographic() geo.Coordinate {
	return p.geographic().Round()
}

func (p Pixel) geographic() geo.Coordinate {
	origin := BitmapOrigin(p.Level)
	lon := (p.X - origin) / PixelsPerDegree(p.Level)
	lat := (2*math.Atan(math.Exp((p.Y-origin)/-PixelsPerRadian(p.Level))) - math.Pi/2) * 180 / math.Pi
	return geo.Coordinate{Lon: lon, Lat: lat}
}

// AtLevel returns the same position in the pixel space of another level.
func (p Pixel) AtLevel(level int) Pixel {
	f := BitmapSize(level) / BitmapSize(p.Level)
	return Pixel{X: p.X * f, Y: p.Y * f, Level: level}
}

// Block returns the tile p falls in.
func (p Pixel) Block() Block {
	return Block{
		X:     int64(math.Floor(p.X / Size)),
		Y:     int64(math.Floor(p.Y / Size)),
		Level: p.Level,
	}
}
