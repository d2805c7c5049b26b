// Package navigation implements the coordinator state machine of
// spec.md §4.8: a goal channel, a shared plan buffer, and the planner,
// controller, and layered-costmap-updater loops that rendezvous
// through it, per §5's concurrency model.
package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/navigation/bus"
	"go.viam.com/navcore/planner/global"
	"go.viam.com/navcore/planner/local"
	"go.viam.com/navcore/spatialmath"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// CoordinatorConfig bundles the timing and tolerance parameters
// spec.md §4.8/§5/§6 name for the coordinator itself (planner/local
// planner internals are configured separately, see local.Config and
// trajectory.Config).
type CoordinatorConfig struct {
	// PlannerFrequency is Hz; 0 means the planner loop runs exactly once
	// per trigger with no throttle, per spec.md §4.8.
	PlannerFrequency float64
	// ControllerFrequency is Hz for the control loop.
	ControllerFrequency float64
	// MapUpdateFrequency is Hz for the layered-costmap updater loop.
	MapUpdateFrequency float64
	// ControllerPatience bounds how long the controller tolerates
	// invalid-velocity returns before escalating to CLEARING.
	ControllerPatience time.Duration
	// PlannerPatience, if positive, bounds consecutive planning
	// failures against the same goal before it is aborted; 0 means
	// abort on the first failure.
	PlannerPatience int
	// OscillationDistance is the recovery hook's trigger distance,
	// spec-visible but inert in this core.
	OscillationDistance float64
	// GlobalPlannerCostScale is the k term in the global planner's step
	// cost formula.
	GlobalPlannerCostScale float64
	// LethalThreshold is the cost at or above which a cell blocks the
	// global planner and the local planner's footprint legality check.
	LethalThreshold costmap.Cost
}

// Coordinator is the navigation core's top-level state machine, owning
// the goal channel, the latest-plan buffer, and the three long-lived
// loops of spec.md §5.
type Coordinator struct {
	logger *zap.SugaredLogger
	clock  clock.Clock
	cfg    CoordinatorConfig

	goalSub      bus.GoalSubscriber
	velPub       bus.VelocityPublisher
	baseOdomTF   bus.BaseOdomTF
	odomMapTF    bus.OdomMapTF
	goalExecutor bus.GoalExecutor

	layered       *costmap.LayeredCostmap
	globalPlanner *global.Planner
	localPlanner  *local.Planner

	// recoveryHook is invoked on entering CLEARING; spec-visible but
	// inert by default (Design Notes: recovery is an external hook).
	recoveryHook func()

	// mu + cond guard everything the planner loop's wait condition and
	// the plan hand-off depend on, mirroring spec.md §5's plan_mutex.
	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	goal    spatialmath.Pose2D
	goalID  string
	newGoal bool
	plan    []spatialmath.Pose2D

	// runPlanner and newGlobalPlan are read outside mu (by the
	// controller loop signalling the planner loop, and vice versa), so
	// they use go.uber.org/atomic per Design Notes' preference for
	// typed atomics over sync/atomic's untyped operations.
	runPlanner    atomic.Bool
	newGlobalPlan atomic.Bool
	running       atomic.Bool

	consecutiveFailures int
	lastValidControl    time.Time
	oscillationAnchor    spatialmath.Pose2D
	currentVel           spatialmath.Velocity2D

	eg     *errgroup.Group
	cancel context.CancelFunc
}

// New constructs a Coordinator. clk is injectable so the
// controller_patience timer is deterministically testable (pass
// clock.New() in production).
func New(
	logger *zap.SugaredLogger,
	clk clock.Clock,
	layered *costmap.LayeredCostmap,
	globalPlanner *global.Planner,
	localPlanner *local.Planner,
	goalSub bus.GoalSubscriber,
	velPub bus.VelocityPublisher,
	baseOdomTF bus.BaseOdomTF,
	odomMapTF bus.OdomMapTF,
	goalExecutor bus.GoalExecutor,
	cfg CoordinatorConfig,
) *Coordinator {
	c := &Coordinator{
		logger:        logger,
		clock:         clk,
		cfg:           cfg,
		goalSub:       goalSub,
		velPub:        velPub,
		baseOdomTF:    baseOdomTF,
		odomMapTF:     odomMapTF,
		goalExecutor:  goalExecutor,
		layered:       layered,
		globalPlanner: globalPlanner,
		localPlanner:  localPlanner,
		state:         StatePlanning,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// SetRecoveryHook installs the CLEARING-state recovery callback; nil
// (the default) means CLEARING is a one-tick inert no-op back to
// PLANNING.
func (c *Coordinator) SetRecoveryHook(hook func()) { c.recoveryHook = hook }

// Start subscribes to goals and launches the three long-lived loops
// (planner, controller, layered-costmap updater) under an
// errgroup.Group bound to ctx, per spec.md §5.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.goalSub.Subscribe(ctx, c.onGoal); err != nil {
		return errors.Wrap(ErrFatal, err.Error())
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running.Store(true)
	c.lastValidControl = c.clock.Now()
	c.oscillationAnchor = spatialmath.Pose2D{}

	eg, egCtx := errgroup.WithContext(runCtx)
	c.eg = eg
	eg.Go(func() error { return c.plannerLoop(egCtx) })
	eg.Go(func() error { return c.controllerLoop(egCtx) })
	eg.Go(func() error { return c.costmapUpdaterLoop(egCtx) })
	return nil
}

// Stop signals shutdown, per spec.md §4.8: running := false, signal
// both condition variables (the controller/costmap loops observe
// ctx.Done instead of a second cond), join all three loops, and return
// the first error any of them returned (context cancellation excepted).
func (c *Coordinator) Stop() error {
	c.running.Store(false)
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()

	if c.eg == nil {
		return nil
	}
	if err := c.eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return multierr.Append(nil, err)
	}
	return nil
}

// onGoal is the bus.GoalSubscriber callback, per spec.md §4.8's "Goal
// arrival": compose the odom<-base and map<-odom transforms, stamp a
// fresh goal ID, set new_goal, transition to PLANNING, and signal the
// planner loop.
func (c *Coordinator) onGoal(goal spatialmath.Pose2D) bool {
	ctx := context.Background()
	baseInOdom, err := c.baseOdomTF.BaseInOdom(ctx)
	if err != nil {
		c.logger.Warnw("goal rejected: transform unavailable", "error", err)
		return false
	}
	odomInMap, err := c.odomMapTF.OdomInMap(ctx)
	if err != nil {
		c.logger.Warnw("goal rejected: transform unavailable", "error", err)
		return false
	}
	goalMap := bus.TransformGoal(baseInOdom, odomInMap, goal)

	c.mu.Lock()
	c.goal = goalMap
	c.goalID = uuid.New().String()
	c.newGoal = true
	c.consecutiveFailures = 0
	c.state = StatePlanning
	c.cond.Signal()
	c.mu.Unlock()
	return true
}

func (c *Coordinator) currentPose(ctx context.Context) (spatialmath.Pose2D, error) {
	baseInOdom, err := c.baseOdomTF.BaseInOdom(ctx)
	if err != nil {
		return spatialmath.Pose2D{}, errors.Wrap(ErrTransformUnavailable, err.Error())
	}
	odomInMap, err := c.odomMapTF.OdomInMap(ctx)
	if err != nil {
		return spatialmath.Pose2D{}, errors.Wrap(ErrTransformUnavailable, err.Error())
	}
	return odomInMap.Transform(baseInOdom), nil
}

// plannerLoop waits on (new_goal || run_planner), per spec.md §4.8.
func (c *Coordinator) plannerLoop(ctx context.Context) error {
	var limiter *rate.Limiter
	if c.cfg.PlannerFrequency > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.PlannerFrequency), 1)
	}

	for {
		c.mu.Lock()
		for c.running.Load() && !(c.newGoal || c.runPlanner.Load()) {
			c.cond.Wait()
		}
		if !c.running.Load() {
			c.mu.Unlock()
			return nil
		}
		c.newGoal = false
		c.runPlanner.Store(false)
		goal := c.goal
		goalID := c.goalID
		c.mu.Unlock()

		pose, err := c.currentPose(ctx)
		if err != nil {
			c.logger.Warnw("planner cycle skipped", "error", err)
		} else if plan, err := c.makePlan(pose, goal); err == nil {
			c.mu.Lock()
			c.plan = plan
			c.state = StateControlling
			c.consecutiveFailures = 0
			c.mu.Unlock()
			c.newGlobalPlan.Store(true)
		} else {
			c.mu.Lock()
			c.consecutiveFailures++
			failures := c.consecutiveFailures
			c.mu.Unlock()
			c.logger.Warnw("plan failure", "goal_id", goalID, "error", err, "consecutive_failures", failures)
			if failures > c.cfg.PlannerPatience {
				c.goalExecutor.Abort(goalID, errors.Wrap(ErrPlanFailure, err.Error()))
			} else {
				c.runPlanner.Store(true)
			}
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// makePlan runs the global planner over a borrowed snapshot of the
// master grid, per spec.md §4.7's "Operates on a snapshot of the
// master costmap under its mutex: copy or borrow-with-lock".
func (c *Coordinator) makePlan(pose, goal spatialmath.Pose2D) ([]spatialmath.Pose2D, error) {
	grid := c.layered.Costmap()
	grid.RLock()
	defer grid.RUnlock()
	return c.globalPlanner.MakePlan(grid, pose.X, pose.Y, goal.X, goal.Y)
}

// controllerLoop ticks at controller_frequency, per spec.md §4.8.
func (c *Coordinator) controllerLoop(ctx context.Context) error {
	var limiter *rate.Limiter
	if c.cfg.ControllerFrequency > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.ControllerFrequency), 1)
	}

	for c.running.Load() {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if c.newGlobalPlan.CompareAndSwap(true, false) {
			c.mu.Lock()
			plan := c.plan
			c.mu.Unlock()
			c.localPlanner.SetPlan(plan)
		}

		pose, err := c.currentPose(ctx)
		if err != nil {
			c.logger.Warnw("controller cycle skipped", "error", err)
			if c.clock.Now().Sub(c.lastValidControl) > c.cfg.ControllerPatience {
				c.mu.Lock()
				if c.state == StateControlling {
					c.state = StateClearing
				}
				c.mu.Unlock()
			}
			continue
		}

		if spatialmath.Distance(pose, c.oscillationAnchor) >= c.cfg.OscillationDistance {
			c.oscillationAnchor = pose
		}

		c.mu.Lock()
		state := c.state
		goalID := c.goalID
		c.mu.Unlock()

		switch state {
		case StatePlanning:
			c.runPlanner.Store(true)
			c.mu.Lock()
			c.cond.Signal()
			c.mu.Unlock()
		case StateControlling:
			c.tickControlling(ctx, pose, goalID)
		case StateClearing:
			if c.recoveryHook != nil {
				c.recoveryHook()
			}
			c.mu.Lock()
			c.state = StatePlanning
			c.mu.Unlock()
		}
	}
	return nil
}

func (c *Coordinator) tickControlling(ctx context.Context, pose spatialmath.Pose2D, goalID string) {
	if c.localPlanner.IsGoalReached() {
		c.goalExecutor.Done(goalID)
		c.mu.Lock()
		c.state = StatePlanning
		c.mu.Unlock()
		c.runPlanner.Store(false)
		_ = c.velPub.Publish(ctx, spatialmath.Velocity2D{})
		return
	}

	grid := c.layered.Costmap()
	grid.Lock()
	cmd, ok := c.localPlanner.ComputeVelocityCommands(grid, pose, c.currentVel)
	grid.Unlock()

	if ok {
		c.currentVel = cmd
		c.lastValidControl = c.clock.Now()
		_ = c.velPub.Publish(ctx, cmd)
		return
	}

	c.currentVel = spatialmath.Velocity2D{}
	_ = c.velPub.Publish(ctx, spatialmath.Velocity2D{})
	if c.clock.Now().Sub(c.lastValidControl) > c.cfg.ControllerPatience {
		c.mu.Lock()
		c.state = StateClearing
		c.mu.Unlock()
	} else {
		c.runPlanner.Store(true)
		c.mu.Lock()
		c.state = StatePlanning
		c.mu.Unlock()
	}
}

// costmapUpdaterLoop ticks at map_update_frequency, running one
// LayeredCostmap.UpdateMap cycle per tick, per spec.md §5.
func (c *Coordinator) costmapUpdaterLoop(ctx context.Context) error {
	var limiter *rate.Limiter
	if c.cfg.MapUpdateFrequency > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.MapUpdateFrequency), 1)
	}

	for c.running.Load() {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pose, err := c.currentPose(ctx)
		if err != nil {
			c.logger.Debugw("costmap update cycle skipped", "error", err)
			continue
		}
		c.layered.UpdateMap(pose.X, pose.Y, pose.Theta)
	}
	return nil
}
