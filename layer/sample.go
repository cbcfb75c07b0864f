package layer

import (
	"errors"
	"math/rand"

	"github.com/pdok/gridmap/geo"
)

const (
	MinSampleCable = 200.0
	MaxSampleCable = 5000.0

	sampleScale    = 100000
	sampleAttempts = 100000
)

var ErrSampleBounds = errors.New("no sample cables fit the bounds")

// GenerateSample chains n cables through random points of bounds, each one
// starting where the previous one ended, longer than MinSampleCable and at most
// MaxSampleCable metres. Every cable comes with a vertex at its end. Points have
// five decimals.
func GenerateSample(n int, bounds geo.Rectangle, r *rand.Rand) ([]Vertex, []Cable, error) {
	b := bounds.Bounds()
	rangeX := int(b.Width() * sampleScale)
	rangeY := int(b.Height() * sampleScale)
	if rangeX <= 0 || rangeY <= 0 {
		return nil, nil, ErrSampleBounds
	}
	random := func() geo.Coordinate {
		return geo.NewCoordinate(
			b.Left+float64(r.Intn(rangeX))/sampleScale,
			b.Bottom+float64(r.Intn(rangeY))/sampleScale,
		).Round()
	}

	vertices := make([]Vertex, 0, n)
	cables := make([]Cable, 0, n)
	start := random()
	for attempts := 0; len(cables) < n; attempts++ {
		if attempts == sampleAttempts {
			return vertices, cables, ErrSampleBounds
		}
		end := random()
		segment := geo.Segment(start, end)
		length := segment.LineLength()
		if length <= MinSampleCable || length > MaxSampleCable {
			continue
		}
		id := len(cables) + 1
		cables = append(cables, Cable{ID: id, Segment: segment, Caption: segment.String(), Length: length})
		vertices = append(vertices, Vertex{ID: id, At: end, Caption: end.String()})
		start = end
		attempts = 0
	}
	return vertices, cables, nil
}
