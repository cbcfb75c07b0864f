package tile

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdok/gridmap/geo"
)

// Block addresses one tile of a zoom level.
type Block struct {
	X     int64
	Y     int64
	Level int
}

// BlockOf returns the tile containing c at level.
func BlockOf(c geo.Coordinate, level int) Block {
	return ToPixel(c, level).Block()
}

// Compare orders by level descending, then y descending, then x descending.
func (b Block) Compare(o Block) int {
	switch {
	case b.Level != o.Level:
		return cmpDesc(int64(b.Level), int64(o.Level))
	case b.Y != o.Y:
		return cmpDesc(b.Y, o.Y)
	}
	return cmpDesc(b.X, o.X)
}

func cmpDesc(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// Valid reports whether b lies inside the grid of its level.
func (b Block) Valid() bool {
	n := NumTiles(b.Level)
	return b.Level >= 1 && b.X >= 0 && b.Y >= 0 && b.X < n && b.Y < n
}

// Rect is the pixel box of b.
func (b Block) Rect() PixelRect {
	return PixelRect{
		Left:   float64(b.X * Size),
		Top:    float64(b.Y * Size),
		Right:  float64((b.X + 1) * Size),
		Bottom: float64((b.Y + 1) * Size),
		Level:  b.Level,
	}
}

// Bounds is the geographic box of b. It is not rounded, so that every
// coordinate whose BlockOf is b lies within it.
func (b Block) Bounds() geo.Rectangle {
	r := b.Rect()
	lt := Pixel{X: r.Left, Y: r.Top, Level: b.Level}.geographic()
	rb := Pixel{X: r.Right, Y: r.Bottom, Level: b.Level}.geographic()
	return geo.Rectangle{Left: lt.Lon, Top: lt.Lat, Right: rb.Lon, Bottom: rb.Lat}
}

func (b Block) String() string {
	return fmt.Sprintf("%d/%d/%d", b.Level, b.X, b.Y)
}

// Path is where the image of b is kept below base:
// base/level/(x/100)_(y/100)/level_x_y.png
func Path(base string, b Block) string {
	return filepath.Join(base,
		strconv.Itoa(b.Level),
		fmt.Sprintf("%d_%d", b.X/100, b.Y/100),
		fmt.Sprintf("%d_%d_%d.png", b.Level, b.X, b.Y))
}

// URL fills the {x}, {y} and {z} placeholders of template. Tile services count
// zoom from 0, so z is the level minus one.
func URL(template string, b Block) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatInt(b.X, 10),
		"{y}", strconv.FormatInt(b.Y, 10),
		"{z}", strconv.Itoa(b.Level-1),
	).Replace(template)
}
