package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestPadFootprintRectangle(t *testing.T) {
	// scenario 5 from spec.md §8.
	spec := []Point2D{{X: 0.2, Y: 0.1}, {X: 0.2, Y: -0.1}, {X: -0.2, Y: -0.1}, {X: -0.2, Y: 0.1}}
	inscribed, circumscribed := CalculateMinAndMaxDistances(spec)
	test.That(t, inscribed, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, circumscribed, test.ShouldAlmostEqual, math.Hypot(0.2, 0.1), 1e-9)

	padded := PadFootprint(spec, 0.05)
	paddedInscribed, paddedCircumscribed := CalculateMinAndMaxDistances(padded)
	test.That(t, paddedInscribed, test.ShouldAlmostEqual, 0.15, 1e-9)
	test.That(t, paddedCircumscribed, test.ShouldAlmostEqual, math.Hypot(0.25, 0.15), 1e-9)
}

func TestMakeFootprintFromRadius(t *testing.T) {
	pts := MakeFootprintFromRadius(0.3)
	test.That(t, len(pts), test.ShouldEqual, 16)
	for _, p := range pts {
		test.That(t, math.Hypot(p.X, p.Y), test.ShouldAlmostEqual, 0.3, 1e-9)
	}
	inscribed, circumscribed := CalculateMinAndMaxDistances(pts)
	test.That(t, circumscribed, test.ShouldAlmostEqual, 0.3, 1e-9)
	// a regular 16-gon's inscribed radius is r*cos(pi/16)
	test.That(t, inscribed, test.ShouldAlmostEqual, 0.3*math.Cos(math.Pi/16), 1e-6)
}

func TestCentroidEmpty(t *testing.T) {
	c := Centroid(nil)
	test.That(t, c, test.ShouldResemble, Point2D{})
}
