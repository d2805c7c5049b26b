package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Point2D is a point in a 2D frame, usually a footprint vertex expressed
// in the robot's local frame.
type Point2D struct {
	X, Y float64
}

func (p Point2D) vec() r3.Vector { return r3.Vector{X: p.X, Y: p.Y} }

// TransformFootprint rotates and translates every point of spec by the
// pose (x, y, theta), per spec.md §4.4:
//
//	(px,py) -> (x + px*cosθ - py*sinθ, y + px*sinθ + py*cosθ)
func TransformFootprint(x, y, theta float64, spec []Point2D) []Point2D {
	sin, cos := math.Sincos(theta)
	out := make([]Point2D, len(spec))
	for i, pt := range spec {
		out[i] = Point2D{
			X: x + pt.X*cos - pt.Y*sin,
			Y: y + pt.X*sin + pt.Y*cos,
		}
	}
	return out
}

// Centroid returns the arithmetic mean of the given points. An empty
// slice returns the origin.
func Centroid(pts []Point2D) Point2D {
	if len(pts) == 0 {
		return Point2D{}
	}
	var sum r3.Vector
	for _, pt := range pts {
		sum = sum.Add(pt.vec())
	}
	sum = sum.Mul(1 / float64(len(pts)))
	return Point2D{X: sum.X, Y: sum.Y}
}

// sign returns -1 for negative values and 1 otherwise (zero included),
// matching TrajectoryLocalPlanner.h's `sign` helper in original_source.
func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// PadFootprint moves every point of pts outward by d meters, per
// spec.md §4.4: each coordinate is pushed out independently along its
// own axis by d, with the sign of the push matching the sign of that
// coordinate (sign(0) treated as positive), exactly as
// original_source's FootprintHelper padding and the well-known
// costmap_2d `padFootprint` it mirrors.
func PadFootprint(pts []Point2D, d float64) []Point2D {
	out := make([]Point2D, len(pts))
	for i, pt := range pts {
		out[i] = Point2D{
			X: pt.X + sign(pt.X)*d,
			Y: pt.Y + sign(pt.Y)*d,
		}
	}
	return out
}

// CalculateMinAndMaxDistances returns the inscribed radius (the minimum
// perpendicular distance from the origin to any edge of the polygon
// formed by pts) and the circumscribed radius (the maximum distance
// from the origin to any vertex), per spec.md §4.4.
func CalculateMinAndMaxDistances(pts []Point2D) (minDist, maxDist float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	minDist = math.Inf(1)
	maxDist = 0
	for i, pt := range pts {
		v := math.Hypot(pt.X, pt.Y)
		if v > maxDist {
			maxDist = v
		}
		next := pts[(i+1)%len(pts)]
		d := pointToSegmentDistance(Point2D{}, pt, next)
		if d < minDist {
			minDist = d
		}
	}
	return minDist, maxDist
}

// pointToSegmentDistance returns the perpendicular distance from p to
// the infinite line through a-b, matching the C++ original's edge
// distance computation (perpendicular distance to the edge's line, not
// clamped to the segment, since footprints are always convex and the
// origin is always inside).
func pointToSegmentDistance(p, a, b Point2D) float64 {
	ab := r3.Vector{X: b.X - a.X, Y: b.Y - a.Y}
	ap := r3.Vector{X: p.X - a.X, Y: p.Y - a.Y}
	abLen := ab.Norm()
	if abLen < 1e-9 {
		return ap.Norm()
	}
	// |ab x ap| / |ab| is the perpendicular distance from p to line ab.
	cross := ab.X*ap.Y - ab.Y*ap.X
	return math.Abs(cross) / abLen
}

// MakeFootprintFromRadius returns a regular 16-gon of radius r centered
// on the origin, per spec.md §4.4.
func MakeFootprintFromRadius(r float64) []Point2D {
	const sides = 16
	pts := make([]Point2D, sides)
	for i := 0; i < sides; i++ {
		theta := 2 * math.Pi * float64(i) / float64(sides)
		sin, cos := math.Sincos(theta)
		pts[i] = Point2D{X: r * cos, Y: r * sin}
	}
	return pts
}
