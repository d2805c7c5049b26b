package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestTransformIdentity(t *testing.T) {
	// invariant 6 from spec.md §8: transformFootprint(0,0,0,s) == s pointwise.
	spec := []Point2D{{X: 1, Y: 2}, {X: -3, Y: 4}, {X: 0, Y: -5}}
	out := TransformFootprint(0, 0, 0, spec)
	test.That(t, out, test.ShouldResemble, spec)
}

func TestTransformRotation(t *testing.T) {
	spec := []Point2D{{X: 1, Y: 0}}
	out := TransformFootprint(0, 0, math.Pi/2, spec)
	test.That(t, out[0].X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, out[0].Y, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestTransformTranslation(t *testing.T) {
	spec := []Point2D{{X: 0, Y: 0}}
	out := TransformFootprint(3, 4, 0, spec)
	test.That(t, out[0].X, test.ShouldAlmostEqual, 3, 1e-9)
	test.That(t, out[0].Y, test.ShouldAlmostEqual, 4, 1e-9)
}

func TestPoseTransformComposition(t *testing.T) {
	// map<-odom<-base composition as used by bus.TransformGoal.
	odomInMap := Pose2D{X: 1, Y: 0, Theta: math.Pi / 2}
	baseInOdom := Pose2D{X: 2, Y: 0, Theta: 0}
	composed := odomInMap.Transform(baseInOdom)
	test.That(t, composed.X, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, composed.Y, test.ShouldAlmostEqual, 2, 1e-9)
	test.That(t, composed.Theta, test.ShouldAlmostEqual, math.Pi/2, 1e-9)
}

func TestPoseInverse(t *testing.T) {
	p := Pose2D{X: 3, Y: -2, Theta: 0.7}
	inv := p.Inverse()
	roundTrip := p.Transform(inv)
	test.That(t, roundTrip.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, roundTrip.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, roundTrip.Theta, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestNormalizeAngle(t *testing.T) {
	test.That(t, NormalizeAngle(3*math.Pi), test.ShouldAlmostEqual, math.Pi, 1e-9)
	test.That(t, NormalizeAngle(-3*math.Pi), test.ShouldAlmostEqual, math.Pi, 1e-9)
	test.That(t, NormalizeAngle(0.1), test.ShouldAlmostEqual, 0.1, 1e-9)
}

func TestDistance(t *testing.T) {
	d := Distance(Pose2D{X: 0, Y: 0}, Pose2D{X: 3, Y: 4})
	test.That(t, d, test.ShouldAlmostEqual, 5, 1e-9)
}
