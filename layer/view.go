package layer

import (
	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/mathhelp"
	"github.com/pdok/gridmap/tile"
)

const (
	MinLevel = 1
	MaxLevel = 20
)

// View is the part of the map a layer shows: a Width x Height pixel viewport
// centered on Center at zoom Level.
type View struct {
	Center geo.Coordinate
	Level  int
	Width  int
	Height int
}

func (v View) normalize() View {
	v.Level = mathhelp.Clamp(v.Level, MinLevel, MaxLevel)
	v.Width = max(v.Width, 0)
	v.Height = max(v.Height, 0)
	return v
}

// Screen is the pixel box of the viewport.
func (v View) Screen() tile.PixelRect {
	return tile.ScreenView(v.Center, v.Width, v.Height, v.Level)
}

// Blocks is the range of tiles the viewport touches.
func (v View) Blocks() tile.BlockRange {
	return v.Screen().Blocks()
}

func (v View) Bounds() geo.Rectangle {
	return v.Screen().ToGeographic()
}

// Tolerance is the distance in metres covered by px pixels east of the center.
func (v View) Tolerance(px float64) float64 {
	p := tile.ToPixel(v.Center, v.Level)
	p.X += px
	return geo.Distance(v.Center, p.ToGeographic())
}
