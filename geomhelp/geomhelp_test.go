package geomhelp

import (
	"strings"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
)

func TestRayIntersect(t *testing.T) {
	tests := []struct {
		name           string
		pt, start, end [2]float64
		wantIntersects bool
		wantOn         bool
	}{
		{
			name:           "below the edge",
			pt:             [2]float64{1, 0},
			start:          [2]float64{0, 2},
			end:            [2]float64{2, 2},
			wantIntersects: true,
		},
		{
			name:  "above the edge",
			pt:    [2]float64{1, 3},
			start: [2]float64{0, 2},
			end:   [2]float64{2, 2},
		},
		{
			name:  "left of the edge",
			pt:    [2]float64{-1, 0},
			start: [2]float64{0, 2},
			end:   [2]float64{2, 2},
		},
		{
			name:   "on the edge",
			pt:     [2]float64{1, 2},
			start:  [2]float64{0, 2},
			end:    [2]float64{2, 2},
			wantOn: true,
		},
		{
			name:   "on a vertical edge",
			pt:     [2]float64{0, 1},
			start:  [2]float64{0, 0},
			end:    [2]float64{0, 2},
			wantOn: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intersects, on := RayIntersect(tt.pt, tt.start, tt.end)
			assert.Equal(t, tt.wantIntersects, intersects)
			assert.Equal(t, tt.wantOn, on)
		})
	}
}

func TestWktMustEncode(t *testing.T) {
	line := geom.LineString{{1, 2}, {3, 4}, {5, 6}}
	full := WktMustEncode(line, 0)
	assert.True(t, strings.HasPrefix(full, "LINESTRING"), full)
	assert.Contains(t, full, "5 6")
	assert.Equal(t, "LINESTRING...", WktMustEncode(line, 13))
}
