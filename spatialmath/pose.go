// Package spatialmath provides the 2D pose, velocity, and vector
// primitives shared by the costmap, planner, and navigation packages.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Pose2D is a robot or goal pose in some fixed 2D frame (odom or map).
// Theta is in radians and is not normalized on construction; callers
// that need a canonical range should call NormalizedTheta().
type Pose2D struct {
	X, Y  float64
	Theta float64
}

// Velocity2D is a differential-drive velocity command: lateral velocity
// is always implicitly zero.
type Velocity2D struct {
	Linear  float64 // m/s
	Angular float64 // rad/s
}

// Point returns the pose's translation as a 3D vector with Z pinned to
// zero, so the r3 vector algebra (Add, Sub, Norm, ...) can be reused
// for 2D geometry instead of reimplementing it.
func (p Pose2D) Point() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: 0}
}

// NormalizedTheta returns Theta wrapped into (-pi, pi].
func (p Pose2D) NormalizedTheta() float64 {
	return NormalizeAngle(p.Theta)
}

// NormalizeAngle wraps an angle in radians into (-pi, pi].
func NormalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	switch {
	case theta <= -math.Pi:
		theta += 2 * math.Pi
	case theta > math.Pi:
		theta -= 2 * math.Pi
	}
	return theta
}

// AngleDiff returns the signed shortest angular distance from a to b,
// in (-pi, pi].
func AngleDiff(a, b float64) float64 {
	return NormalizeAngle(b - a)
}

// Distance returns the Euclidean distance between two poses' translations.
func Distance(a, b Pose2D) float64 {
	return a.Point().Sub(b.Point()).Norm()
}

// Transform composes a pose expressed in some local frame with the pose
// of that frame's origin expressed in a parent frame, returning the
// local pose expressed in the parent frame: parent_T_local * local.
//
// This is the 2D rigid-body composition used by bus.TransformGoal
// to chain map<-odom and odom<-base transforms (spec.md §4.8).
func (p Pose2D) Transform(local Pose2D) Pose2D {
	sin, cos := math.Sincos(p.Theta)
	return Pose2D{
		X:     p.X + local.X*cos - local.Y*sin,
		Y:     p.Y + local.X*sin + local.Y*cos,
		Theta: NormalizeAngle(p.Theta + local.Theta),
	}
}

// Inverse returns the pose whose Transform undoes p.
func (p Pose2D) Inverse() Pose2D {
	sin, cos := math.Sincos(p.Theta)
	x := -(p.X*cos + p.Y*sin)
	y := -(-p.X*sin + p.Y*cos)
	return Pose2D{X: x, Y: y, Theta: NormalizeAngle(-p.Theta)}
}
