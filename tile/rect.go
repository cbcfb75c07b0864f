package tile

import (
	"math"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/mathhelp"
)

// PixelRect is a box in the pixel space of a level. Top is the smaller y.
type PixelRect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
	Level  int
}

// RectOf projects both corners of r.
func RectOf(r geo.Rectangle, level int) PixelRect {
	lt := ToPixel(r.LeftTop(), level)
	rb := ToPixel(r.RightBottom(), level)
	return PixelRect{Left: lt.X, Top: lt.Y, Right: rb.X, Bottom: rb.Y, Level: level}
}

func PolygonRect(p geo.Polygon, level int) PixelRect {
	return RectOf(p.Bounds(), level)
}

// ScreenView is the pixel box of a width x height viewport centered on center.
func ScreenView(center geo.Coordinate, width, height, level int) PixelRect {
	c := ToPixel(center, level)
	left := c.X - float64(width)/2
	top := c.Y - float64(height)/2
	return PixelRect{Left: left, Top: top, Right: left + float64(width), Bottom: top + float64(height), Level: level}
}

func (r PixelRect) LeftTop() Pixel     { return Pixel{X: r.Left, Y: r.Top, Level: r.Level} }
func (r PixelRect) RightBottom() Pixel { return Pixel{X: r.Right, Y: r.Bottom, Level: r.Level} }

func (r PixelRect) AtLevel(level int) PixelRect {
	lt := r.LeftTop().AtLevel(level)
	rb := r.RightBottom().AtLevel(level)
	return PixelRect{Left: lt.X, Top: lt.Y, Right: rb.X, Bottom: rb.Y, Level: level}
}

// ToGeographic converts r back, rounded to geo.Precision decimals.
func (r PixelRect) ToGeographic() geo.Rectangle {
	lt := r.LeftTop().ToGeographic()
	rb := r.RightBottom().ToGeographic()
	return geo.Rectangle{Left: lt.Lon, Top: lt.Lat, Right: rb.Lon, Bottom: rb.Lat}
}

func (r PixelRect) Contains(p Pixel) bool {
	p = p.AtLevel(r.Level)
	return mathhelp.BetweenInc(p.X, r.Left, r.Right) && mathhelp.BetweenInc(p.Y, r.Top, r.Bottom)
}

// Blocks returns the range of tiles touched by r, clipped to the grid.
func (r PixelRect) Blocks() BlockRange {
	last := NumTiles(r.Level) - 1
	block := func(v float64) int64 {
		return mathhelp.Clamp(int64(math.Floor(v/Size)), 0, last)
	}
	return BlockRange{
		MinX:  block(math.Min(r.Left, r.Right)),
		MinY:  block(math.Min(r.Top, r.Bottom)),
		MaxX:  block(math.Max(r.Left, r.Right)),
		MaxY:  block(math.Max(r.Top, r.Bottom)),
		Level: r.Level,
	}
}

// BlockRange is an inclusive range of tiles of one level.
type BlockRange struct {
	MinX  int64
	MinY  int64
	MaxX  int64
	MaxY  int64
	Level int
}

func (br BlockRange) Count() int64 {
	return (br.MaxX - br.MinX + 1) * (br.MaxY - br.MinY + 1)
}

func (br BlockRange) Contains(b Block) bool {
	return b.Level == br.Level && mathhelp.BetweenInc(b.X, br.MinX, br.MaxX) && mathhelp.BetweenInc(b.Y, br.MinY, br.MaxY)
}

// Each calls fn for every block row by row, until fn returns false.
func (br BlockRange) Each(fn func(Block) bool) {
	for y := br.MinY; y <= br.MaxY; y++ {
		for x := br.MinX; x <= br.MaxX; x++ {
			if !fn(Block{X: x, Y: y, Level: br.Level}) {
				return
			}
		}
	}
}
