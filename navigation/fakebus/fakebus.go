// Package fakebus provides in-memory bus.* doubles for tests, per
// Design Notes §9's "avoid process-wide singletons in tests by using
// in-memory fakes."
package fakebus

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/spatialmath"
)

// GoalSubscriber is a fake bus.GoalSubscriber: tests call Deliver to
// simulate a goal arriving on the bus's delivery thread.
type GoalSubscriber struct {
	mu       sync.Mutex
	callback func(spatialmath.Pose2D) bool
}

func (g *GoalSubscriber) Subscribe(_ context.Context, callback func(spatialmath.Pose2D) bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callback = callback
	return nil
}

// Deliver invokes the subscribed callback with goal, as the bus's
// delivery thread would, and returns whether it was accepted.
func (g *GoalSubscriber) Deliver(goal spatialmath.Pose2D) bool {
	g.mu.Lock()
	cb := g.callback
	g.mu.Unlock()
	if cb == nil {
		return false
	}
	return cb(goal)
}

// VelocityPublisher is a fake bus.VelocityPublisher recording every
// published velocity for test assertions.
type VelocityPublisher struct {
	mu        sync.Mutex
	published []spatialmath.Velocity2D
}

func (v *VelocityPublisher) Publish(_ context.Context, vel spatialmath.Velocity2D) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.published = append(v.published, vel)
	return nil
}

// Last returns the most recently published velocity and whether any
// velocity has been published yet.
func (v *VelocityPublisher) Last() (spatialmath.Velocity2D, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.published) == 0 {
		return spatialmath.Velocity2D{}, false
	}
	return v.published[len(v.published)-1], true
}

// All returns every velocity published so far, oldest first.
func (v *VelocityPublisher) All() []spatialmath.Velocity2D {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]spatialmath.Velocity2D, len(v.published))
	copy(out, v.published)
	return out
}

// StaticTF is a fake bus.BaseOdomTF / bus.OdomMapTF returning a fixed
// pose, settable by tests to simulate robot motion between cycles.
type StaticTF struct {
	mu   sync.Mutex
	pose spatialmath.Pose2D
	err  error
}

// NewStaticTF constructs a StaticTF reporting the identity transform.
func NewStaticTF() *StaticTF { return &StaticTF{} }

func (s *StaticTF) Set(pose spatialmath.Pose2D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = pose
}

// SetErr makes every lookup fail with err, simulating
// TransformUnavailable, until it is called again with nil.
func (s *StaticTF) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticTF) BaseInOdom(context.Context) (spatialmath.Pose2D, error) { return s.get() }
func (s *StaticTF) OdomInMap(context.Context) (spatialmath.Pose2D, error)  { return s.get() }

func (s *StaticTF) get() (spatialmath.Pose2D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return spatialmath.Pose2D{}, s.err
	}
	return s.pose, nil
}

// MapService is a fake bus.MapService. NewMapService's
// failuresBeforeSuccess argument lets tests exercise the "retried up
// to 10 times" behaviour (SPEC_FULL.md's supplemented feature #4).
type MapService struct {
	mu                    sync.Mutex
	grid                  *costmap.OccupancyGrid
	failuresBeforeSuccess int
	calls                 int
}

func NewMapService(grid *costmap.OccupancyGrid, failuresBeforeSuccess int) *MapService {
	return &MapService{grid: grid, failuresBeforeSuccess: failuresBeforeSuccess}
}

func (m *MapService) FetchMap(context.Context) (*costmap.OccupancyGrid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failuresBeforeSuccess {
		return nil, errors.New("map service unavailable")
	}
	return m.grid, nil
}

// Calls returns how many times FetchMap has been invoked.
func (m *MapService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GoalExecutor is a fake bus.GoalExecutor recording abort/done calls.
type GoalExecutor struct {
	mu      sync.Mutex
	aborted map[string]error
	done    map[string]bool
}

func NewGoalExecutor() *GoalExecutor {
	return &GoalExecutor{aborted: map[string]error{}, done: map[string]bool{}}
}

func (g *GoalExecutor) Abort(goalID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aborted[goalID] = err
}

func (g *GoalExecutor) Done(goalID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.done[goalID] = true
}

func (g *GoalExecutor) WasAborted(goalID string) (error, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	err, ok := g.aborted[goalID]
	return err, ok
}

func (g *GoalExecutor) WasDone(goalID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done[goalID]
}
