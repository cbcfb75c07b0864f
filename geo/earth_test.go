package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-spatial/geom/planar"
	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name   string
		c1, c2 Coordinate
		want   float64
		delta  float64
	}{
		{
			name:  "same point",
			c1:    NewCoordinate(37.6173, 55.7558),
			c2:    NewCoordinate(37.6173, 55.7558),
			want:  0,
			delta: 0,
		},
		{
			name:  "one degree along the meridian",
			c1:    NewCoordinate(0, 0),
			c2:    NewCoordinate(0, 1),
			want:  110569.34,
			delta: 0.5,
		},
		{
			name:  "one degree along the equator",
			c1:    NewCoordinate(0, 0),
			c2:    NewCoordinate(1, 0),
			want:  111319.49,
			delta: 0.5,
		},
		{
			name:  "moscow to saint petersburg",
			c1:    NewCoordinate(37.6173, 55.7558),
			c2:    NewCoordinate(30.3141, 59.9386),
			want:  635788.97,
			delta: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.c1, tt.c2), tt.delta)
			assert.InDelta(t, tt.want, Distance(tt.c2, tt.c1), tt.delta)
		})
	}
}

func TestDistance_symmetric(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pairs := [][2]Coordinate{
		{NewCoordinate(37.6173, 55.7558), NewCoordinate(30.3141, 59.9386)},
		{NewCoordinate(1, 1), NewCoordinate(2, 2)},
		{NewCoordinate(0, 60), NewCoordinate(10, 70)},
		{NewCoordinate(-120, -45), NewCoordinate(150, 30)},
	}
	for i := 0; i < 200; i++ {
		pairs = append(pairs, [2]Coordinate{
			NewCoordinate(r.Float64()*360-180, r.Float64()*170-85),
			NewCoordinate(r.Float64()*360-180, r.Float64()*170-85),
		})
	}
	for _, p := range pairs {
		d1, d2 := Distance(p[0], p[1]), Distance(p[1], p[0])
		assert.InDelta(t, d1, d2, 1e-6, "%v %v", p[0], p[1])
	}
}

func TestSegmentDistance(t *testing.T) {
	seg := Segment(NewCoordinate(0, 0), NewCoordinate(0, 2))
	tests := []struct {
		name  string
		seg   Rectangle
		pt    Coordinate
		want  float64
		delta float64
	}{
		{
			name:  "point beside the middle",
			seg:   seg,
			pt:    NewCoordinate(1, 1),
			want:  Distance(NewCoordinate(0, 1), NewCoordinate(1, 1)),
			delta: 200,
		},
		{
			name: "beyond the end",
			seg:  seg,
			pt:   NewCoordinate(0, 3),
			want: Distance(NewCoordinate(0, 2), NewCoordinate(0, 3)),
		},
		{
			name: "before the start",
			seg:  seg,
			pt:   NewCoordinate(0.5, -1),
			want: Distance(NewCoordinate(0, 0), NewCoordinate(0.5, -1)),
		},
		{
			name: "on an endpoint",
			seg:  seg,
			pt:   NewCoordinate(0, 2),
			want: 0,
		},
		{
			name: "degenerate segment",
			seg:  Segment(NewCoordinate(1, 1), NewCoordinate(1, 1)),
			pt:   NewCoordinate(1, 2),
			want: Distance(NewCoordinate(1, 1), NewCoordinate(1, 2)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentDistance(tt.seg, tt.pt)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.want, got, tt.delta+1e-6)
		})
	}
}

func TestNearestPoint(t *testing.T) {
	seg := Segment(NewCoordinate(0, 0), NewCoordinate(2, 0))
	tests := []struct {
		name string
		pt   Coordinate
		want Coordinate
	}{
		{name: "projects onto the middle", pt: NewCoordinate(1, 1), want: NewCoordinate(1, 0)},
		{name: "clamps to the end", pt: NewCoordinate(3, 1), want: NewCoordinate(2, 0)},
		{name: "clamps to the start", pt: NewCoordinate(-1, -1), want: NewCoordinate(0, 0)},
		{name: "on the segment", pt: NewCoordinate(0.5, 0), want: NewCoordinate(0.5, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NearestPoint(seg, tt.pt)
			assert.InDelta(t, tt.want.Lon, got.Lon, 1e-5)
			assert.InDelta(t, tt.want.Lat, got.Lat, 1e-5)
		})
	}
	assert.Equal(t, NewCoordinate(3, 3), NearestPoint(Segment(NewCoordinate(3, 3), NewCoordinate(3, 3)), NewCoordinate(0, 0)))
}

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name   string
		s1, s2 Rectangle
		want   bool
	}{
		{
			name: "crossing",
			s1:   NewRectangle(0, 0, 2, 2),
			s2:   NewRectangle(0, 2, 2, 0),
			want: true,
		},
		{
			name: "apart",
			s1:   NewRectangle(0, 0, 2, 2),
			s2:   NewRectangle(3, 5, 5, 3),
			want: false,
		},
		{
			name: "parallel",
			s1:   NewRectangle(0, 0, 2, 0),
			s2:   NewRectangle(0, 1, 2, 1),
			want: false,
		},
		{
			name: "collinear overlap counts as parallel",
			s1:   NewRectangle(0, 0, 2, 0),
			s2:   NewRectangle(1, 0, 3, 0),
			want: false,
		},
		{
			name: "touching at an endpoint",
			s1:   NewRectangle(0, 0, 1, 1),
			s2:   NewRectangle(1, 1, 2, 0),
			want: true,
		},
		{
			name: "t shape",
			s1:   NewRectangle(0, 0, 2, 0),
			s2:   NewRectangle(1, 1, 1, -1),
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SegmentsIntersect(tt.s1, tt.s2))
			assert.Equal(t, tt.want, SegmentsIntersect(tt.s2, tt.s1))
		})
	}
}

func TestSegmentsIntersect_matchesPlanar(t *testing.T) {
	// non degenerate cases must agree with go-spatial
	lines := []Rectangle{
		NewRectangle(0, 0, 4, 4),
		NewRectangle(0, 4, 4, 0),
		NewRectangle(1, 0, 1, 5),
		NewRectangle(-1, 2, 5, 2.5),
		NewRectangle(10, 10, 12, 11),
	}
	for i := range lines {
		for j := range lines {
			if i == j {
				continue
			}
			_, want := planar.SegmentIntersect(lines[i].ToGeomLine(), lines[j].ToGeomLine())
			assert.Equal(t, want, SegmentsIntersect(lines[i], lines[j]), "%v %v", lines[i], lines[j])
		}
	}
}
