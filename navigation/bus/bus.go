// Package bus declares the narrow external-collaborator interfaces
// spec.md §6 names: goal subscription, velocity publication, the two
// transform lookups, and the static-map service. navcore depends only
// on these, never on a concrete pub/sub or transform-tree
// implementation (Design Notes §9, "Global state").
package bus

import (
	"context"

	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/spatialmath"
)

// GoalSubscriber delivers goals to a callback on the bus's own
// delivery thread. The callback returns whether the goal was accepted;
// spec.md §5 requires this critical section stay brief.
type GoalSubscriber interface {
	Subscribe(ctx context.Context, callback func(goal spatialmath.Pose2D) bool) error
}

// VelocityPublisher publishes a velocity command, per spec.md §6's
// `Publish VEL -> Velocity2D`.
type VelocityPublisher interface {
	Publish(ctx context.Context, v spatialmath.Velocity2D) error
}

// BaseOdomTF reports the base's pose in the odom frame, per spec.md
// §6's `Call BASE_ODOM_TF -> Transform2D`.
type BaseOdomTF interface {
	BaseInOdom(ctx context.Context) (spatialmath.Pose2D, error)
}

// OdomMapTF reports the odom frame's pose in the map frame, per
// spec.md §6's `Call ODOM_MAP_TF -> Transform2D`.
type OdomMapTF interface {
	OdomInMap(ctx context.Context) (spatialmath.Pose2D, error)
}

// MapService fetches the initial static occupancy grid, per spec.md
// §6's `Call MAP -> OccupancyGrid (static map, retried up to 10 times)`.
type MapService interface {
	FetchMap(ctx context.Context) (*costmap.OccupancyGrid, error)
}

// GoalExecutor reports terminal goal outcomes, per
// original_source/Source/NavigationApplication.cpp's
// goalCallbackExecutor abort()/done() calls (SPEC_FULL.md's
// "supplemented features" §1).
type GoalExecutor interface {
	Abort(goalID string, err error)
	Done(goalID string)
}

// TransformGoal composes the odom<-base and map<-odom transforms to
// express goal (received in the base frame) in the map frame, per
// spec.md §4.8's "Goal arrival": goal_map = T_map_odom . T_odom_base . goal.
// baseInOdom is the base's pose in the odom frame (BaseOdomTF);
// odomInMap is the odom frame's pose in the map frame (OdomMapTF).
func TransformGoal(baseInOdom, odomInMap spatialmath.Pose2D, goal spatialmath.Pose2D) spatialmath.Pose2D {
	inOdom := baseInOdom.Transform(goal)
	return odomInMap.Transform(inOdom)
}
