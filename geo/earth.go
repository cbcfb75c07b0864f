package geo

import (
	"math"

	"github.com/pdok/gridmap/mathhelp"
)

const (
	// MaxLatitude bounds the Mercator band, beyond it the projection diverges.
	MaxLatitude = 85.05112878

	semiMajorAxis  = 6378137.0
	eccentricitySq = 0.006739496742337

	// parallel segments have a determinant below this
	parallelEpsilon = 1e-9
)

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance approximates the great circle distance in metres between c1 and c2
// on the ellipsoid, using the radius of curvature along the azimuth.
// Distance(c1, c2) equals Distance(c2, c1).
func Distance(c1, c2 Coordinate) float64 {
	dLon := radians(c2.Lon - c1.Lon)
	dLat := radians(c2.Lat - c1.Lat)
	lat1, lat2 := radians(c1.Lat), radians(c2.Lat)

	sinMean := math.Sin((lat1 + lat2) / 2)
	w := 1 - eccentricitySq*sinMean*sinMean
	rho := semiMajorAxis * (1 - eccentricitySq) / math.Pow(w, 1.5)
	nu := semiMajorAxis / math.Sqrt(w)

	sinHalfLat, sinHalfLon := math.Sin(dLat/2), math.Sin(dLon/2)
	h := sinHalfLat*sinHalfLat + math.Cos(lat2)*math.Cos(lat1)*sinHalfLon*sinHalfLon
	z := 2 * math.Asin(math.Sqrt(mathhelp.Clamp(h, 0, 1)))
	if z == 0 {
		return 0
	}

	// the azimuths at both ends are averaged so the distance is symmetric
	radius := func(cosLat float64) float64 {
		sinAlpha := mathhelp.Clamp(cosLat*math.Sin(dLon)/math.Sin(z), -1, 1)
		sinSq := sinAlpha * sinAlpha
		return rho * nu / (rho*sinSq + nu*(1-sinSq))
	}
	return z * (radius(math.Cos(lat1)) + radius(math.Cos(lat2))) / 2
}

// SegmentDistance is the distance in metres from pt to the segment seg.
func SegmentDistance(seg Rectangle, pt Coordinate) float64 {
	a := seg.LineLength()
	b := Distance(seg.LeftTop(), pt)
	c := Distance(seg.RightBottom(), pt)
	if a <= 0 {
		return (b + c) / 2
	}
	if b == 0 || c == 0 {
		return 0
	}
	// obtuse angle at an endpoint: that endpoint is the closest point
	if a*a+b*b-c*c <= 0 {
		return b
	}
	if a*a+c*c-b*b <= 0 {
		return c
	}
	s := (a + b + c) / 2
	area := math.Sqrt(math.Max(0, s*(s-a)*(s-b)*(s-c)))
	return 2 * area / a
}

// NearestPoint returns the point of seg closest to pt.
func NearestPoint(seg Rectangle, pt Coordinate) Coordinate {
	start, end := seg.LeftTop(), seg.RightBottom()
	a := seg.LineLength()
	if a <= 0 {
		return start
	}
	b := Distance(start, pt)
	c := Distance(end, pt)
	if a*a+b*b-c*c <= 0 {
		return start
	}
	if a*a+c*c-b*b <= 0 {
		return end
	}
	dx, dy := end.Lon-start.Lon, end.Lat-start.Lat
	t := ((pt.Lon-start.Lon)*dx + (pt.Lat-start.Lat)*dy) / (dx*dx + dy*dy)
	t = mathhelp.Clamp(t, 0, 1)
	return Coordinate{Lon: start.Lon + t*dx, Lat: start.Lat + t*dy}.Round()
}

// SegmentsIntersect reports whether s1 and s2 share a point. Parallel segments,
// including collinear overlapping ones, never do.
func SegmentsIntersect(s1, s2 Rectangle) bool {
	d := (s1.Left-s1.Right)*(s2.Bottom-s2.Top) - (s1.Top-s1.Bottom)*(s2.Right-s2.Left)
	if math.Abs(d) < parallelEpsilon {
		return false
	}
	da := (s1.Left-s2.Left)*(s2.Bottom-s2.Top) - (s1.Top-s2.Top)*(s2.Right-s2.Left)
	db := (s1.Left-s1.Right)*(s1.Top-s2.Top) - (s1.Top-s1.Bottom)*(s1.Left-s2.Left)
	ta, tb := da/d, db/d
	return ta >= 0 && ta <= 1 && tb >= 0 && tb <= 1
}
