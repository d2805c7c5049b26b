// Package local implements the local planner wrapper of spec.md §4.6:
// pruning the global plan to the robot's vicinity, handling
// goal-reached rotation and stop behaviour, and otherwise delegating
// to the trajectory-rollout planner.
package local

import (
	"math"

	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/planner/trajectory"
	"go.viam.com/navcore/spatialmath"
)

// Config bundles the goal-tolerance and stop/rotate thresholds spec.md
// §4.6 names, plus the trajectory planner configuration used once
// pruning and goal-reached handling don't apply.
type Config struct {
	XYGoalTolerance      float64
	YawGoalTolerance     float64
	LatchXYGoalTolerance bool
	RotStoppedVelocity   float64
	TransStoppedVelocity float64
	AccLimX              float64
	AccLimTheta          float64
	MinInPlaceVelTheta   float64
	SimPeriod            float64
	PruneLookaheadMargin float64
	Trajectory           trajectory.Config
	PathDistanceWallCost costmap.Cost
}

// Planner is the stateful local-planner wrapper: setPlan/
// computeVelocityCommands/isGoalReached, per spec.md §4.6.
type Planner struct {
	cfg Config

	plan        []spatialmath.Pose2D
	reachedGoal bool
	latched     bool
}

// NewPlanner constructs a Planner with the given configuration.
func NewPlanner(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// SetPlan stores a new global plan and clears reached/latch state, per
// spec.md §4.6's "setPlan(plan): store, mark not-reached."
func (p *Planner) SetPlan(plan []spatialmath.Pose2D) {
	p.plan = plan
	p.reachedGoal = false
	p.latched = false
}

// IsGoalReached returns the reached_goal flag, monotonic between
// SetPlan calls per spec.md §8 invariant 8.
func (p *Planner) IsGoalReached() bool { return p.reachedGoal }

// prune drops leading plan poses further than lookahead meters from
// pose, keeping the portion within sim_time*vx_max + margin
// meters ahead, per spec.md §4.6 step 2.
func prune(plan []spatialmath.Pose2D, pose spatialmath.Pose2D, lookahead float64) []spatialmath.Pose2D {
	if len(plan) == 0 {
		return plan
	}
	cut := 0
	for cut < len(plan)-1 {
		d := spatialmath.Distance(pose, plan[cut])
		if d <= lookahead {
			break
		}
		cut++
	}
	return plan[cut:]
}

// ComputeVelocityCommands implements spec.md §4.6's
// computeVelocityCommands: prune, check goal arrival, or delegate to
// the trajectory planner. grid is the live master grid; nothing in this
// call locks it, so the caller holds its lock for the whole call. The
// seeded path/goal distance maps are rebuilt
// each call from the pruned plan and the goal cell, per spec.md §4.5.
func (p *Planner) ComputeVelocityCommands(grid *costmap.Grid, pose spatialmath.Pose2D, currentVel spatialmath.Velocity2D) (spatialmath.Velocity2D, bool) {
	if len(p.plan) == 0 {
		return spatialmath.Velocity2D{}, false
	}

	lookahead := p.cfg.Trajectory.SimTime*p.cfg.Trajectory.Limits.MaxVx + p.cfg.PruneLookaheadMargin
	p.plan = prune(p.plan, pose, lookahead)

	goal := p.plan[len(p.plan)-1]
	distToGoal := spatialmath.Distance(pose, goal)

	withinXY := distToGoal <= p.cfg.XYGoalTolerance
	if p.cfg.LatchXYGoalTolerance && withinXY {
		p.latched = true
	}
	if p.latched || withinXY {
		yawErr := spatialmath.AngleDiff(pose.Theta, goal.Theta)
		if math.Abs(yawErr) > p.cfg.YawGoalTolerance {
			return p.rotateInPlace(yawErr), true
		}

		if math.Abs(currentVel.Angular) < p.cfg.RotStoppedVelocity && math.Abs(currentVel.Linear) < p.cfg.TransStoppedVelocity {
			p.reachedGoal = true
			return spatialmath.Velocity2D{}, true
		}
		return p.stopWithAccLimit(currentVel), true
	}

	return p.runTrajectoryPlanner(grid, pose, currentVel, goal)
}

// rotateInPlace returns an in-place rotation command toward yawErr,
// bounded by acc_lim_theta*sim_period and at least
// min_in_place_vel_theta in magnitude, per spec.md §4.6 step 3.
func (p *Planner) rotateInPlace(yawErr float64) spatialmath.Velocity2D {
	maxStep := p.cfg.AccLimTheta * p.cfg.SimPeriod
	mag := math.Min(math.Abs(yawErr), maxStep)
	if mag < p.cfg.MinInPlaceVelTheta {
		mag = p.cfg.MinInPlaceVelTheta
	}
	if yawErr < 0 {
		mag = -mag
	}
	return spatialmath.Velocity2D{Linear: 0, Angular: mag}
}

// stopWithAccLimit decelerates from currentVel toward zero bounded by
// acc_lim_x/acc_lim_theta*sim_period per step, rather than commanding
// an instantaneous stop, mirroring rotateInPlace's accel-bounded-step
// shape and TrajectoryLocalPlanner's separate stopWithAccLimits
// method (spec.md §4.6 step 3, case c).
func (p *Planner) stopWithAccLimit(currentVel spatialmath.Velocity2D) spatialmath.Velocity2D {
	return spatialmath.Velocity2D{
		Linear:  stepToward(currentVel.Linear, 0, p.cfg.AccLimX*p.cfg.SimPeriod),
		Angular: stepToward(currentVel.Angular, 0, p.cfg.AccLimTheta*p.cfg.SimPeriod),
	}
}

// stepToward moves v toward target by at most maxStep.
func stepToward(v, target, maxStep float64) float64 {
	maxStep = math.Abs(maxStep)
	diff := target - v
	if math.Abs(diff) <= maxStep {
		return target
	}
	if diff < 0 {
		return v - maxStep
	}
	return v + maxStep
}

func (p *Planner) runTrajectoryPlanner(grid *costmap.Grid, pose spatialmath.Pose2D, currentVel spatialmath.Velocity2D, goal spatialmath.Pose2D) (spatialmath.Velocity2D, bool) {
	planCells := make([]costmap.Cell, 0, len(p.plan))
	for _, ps := range p.plan {
		if mx, my, ok := grid.WorldToMap(ps.X, ps.Y); ok {
			planCells = append(planCells, costmap.Cell{X: mx, Y: my})
		}
	}
	goalCells := planCells
	if len(planCells) > 0 {
		goalCells = planCells[len(planCells)-1:]
	}

	sizeX, sizeY := grid.SizeX(), grid.SizeY()
	pdist := trajectory.BuildDistanceMap(grid, planCells, 0, 0, sizeX, sizeY, p.cfg.PathDistanceWallCost, true)
	gdist := trajectory.BuildDistanceMap(grid, goalCells, 0, 0, sizeX, sizeY, p.cfg.PathDistanceWallCost, false)

	result, ok := trajectory.Plan(p.cfg.Trajectory, grid, pose, currentVel, pdist, gdist)
	if !ok {
		return spatialmath.Velocity2D{}, false
	}
	return result.Velocity, true
}
