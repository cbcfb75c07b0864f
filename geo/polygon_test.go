package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() Polygon {
	return NewPolygon(NewCoordinate(0, 0), NewCoordinate(0, 4), NewCoordinate(4, 4), NewCoordinate(4, 0))
}

func TestPolygon_PointContains(t *testing.T) {
	tests := []struct {
		name string
		pt   Coordinate
		want Intersect
	}{
		{name: "center", pt: NewCoordinate(2, 2), want: Contains},
		{name: "on an edge", pt: NewCoordinate(0, 2), want: Contains},
		{name: "on a vertex", pt: NewCoordinate(4, 4), want: Contains},
		{name: "outside", pt: NewCoordinate(5, 2), want: None},
		{name: "outside in line with a vertex", pt: NewCoordinate(-1, 4), want: None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, square().PointContains(tt.pt))
		})
	}
}

func TestPolygon_Add(t *testing.T) {
	var p Polygon
	require.True(t, p.Add(NewCoordinate(0, 0)))
	require.True(t, p.Add(NewCoordinate(0, 4)))
	require.True(t, p.Add(NewCoordinate(4, 4)))
	require.True(t, p.Add(NewCoordinate(4, 0)))
	// would make a bow tie
	assert.False(t, p.Add(NewCoordinate(2, 6)))
	assert.Len(t, p.Points, 4)
	assert.True(t, p.Add(NewCoordinate(2, -2)))
	assert.Len(t, p.Points, 5)
}

func TestPolygon_Distance(t *testing.T) {
	p := square()
	assert.Equal(t, 0.0, p.Distance(NewCoordinate(1, 1)))
	assert.InDelta(t, Distance(NewCoordinate(4, 2), NewCoordinate(5, 2)), p.Distance(NewCoordinate(5, 2)), 50)
	assert.Equal(t, Distance(NewCoordinate(1, 1), NewCoordinate(2, 2)), NewPolygon(NewCoordinate(1, 1)).Distance(NewCoordinate(2, 2)))
}

func TestPolygon_Bounds(t *testing.T) {
	p := NewPolygon(NewCoordinate(1, 5), NewCoordinate(-2, 3), NewCoordinate(4, -1))
	assert.Equal(t, NewRectangle(-2, 5, 4, -1), p.Bounds())
	assert.Len(t, p.Edges(), 3)
	assert.Len(t, p.ToGeomPolygon()[0], 3)
}
