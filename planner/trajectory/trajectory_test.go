package trajectory

import (
	"testing"

	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/spatialmath"
	"go.viam.com/test"
)

func testConfig() Config {
	return Config{
		Limits: Limits{
			MinVx: -0.2, MaxVx: 0.5,
			MinVTheta: -1.0, MaxVTheta: 1.0,
			AccLimX: 2.0, AccLimTheta: 3.0,
		},
		Weights: Weights{
			PathDistanceBias: 1.0,
			GoalDistanceBias: 1.0,
			OccdistScale:     0.1,
		},
		SimTime:         1.0,
		SimGranularity:  0.1,
		SimPeriod:       0.1,
		VxSamples:       5,
		VThetaSamples:   5,
		Footprint:       []spatialmath.Point2D{{X: 0.1, Y: 0.05}, {X: 0.1, Y: -0.05}, {X: -0.1, Y: -0.05}, {X: -0.1, Y: 0.05}},
		LethalThreshold: costmap.InscribedInflated,
	}
}

func TestPlanPrefersPathTowardGoal(t *testing.T) {
	grid, err := costmap.NewGrid(40, 40, 0.1, 0, 0, costmap.Free)
	test.That(t, err, test.ShouldBeNil)

	pose := spatialmath.Pose2D{X: 1.0, Y: 1.0, Theta: 0}
	goalCell := costmap.Cell{X: 30, Y: 10}
	gdist := BuildDistanceMap(grid, []costmap.Cell{goalCell}, 0, 0, 40, 40, costmap.InscribedInflated, false)
	pdist := BuildDistanceMap(grid, []costmap.Cell{{X: 10, Y: 10}}, 0, 0, 40, 40, costmap.InscribedInflated, true)

	cfg := testConfig()
	result, ok := Plan(cfg, grid, pose, spatialmath.Velocity2D{}, pdist, gdist)
	test.That(t, ok, test.ShouldBeTrue)
	// moving toward the goal (positive x) should win over staying still.
	test.That(t, result.Velocity.Linear > 0, test.ShouldBeTrue)
}

func TestPlanIllegalWhenSurrounded(t *testing.T) {
	grid, err := costmap.NewGrid(20, 20, 0.1, 0, 0, costmap.Free)
	test.That(t, err, test.ShouldBeNil)

	grid.Lock()
	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			grid.SetCost(x, y, costmap.LethalObstacle)
		}
	}
	grid.Unlock()

	pose := spatialmath.Pose2D{X: 1.0, Y: 1.0, Theta: 0}
	pdist := BuildDistanceMap(grid, nil, 0, 0, 20, 20, costmap.InscribedInflated, true)
	gdist := BuildDistanceMap(grid, nil, 0, 0, 20, 20, costmap.InscribedInflated, false)

	cfg := testConfig()
	_, ok := Plan(cfg, grid, pose, spatialmath.Velocity2D{}, pdist, gdist)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestBuildDistanceMapWallsVsPenalty(t *testing.T) {
	grid, err := costmap.NewGrid(10, 10, 0.1, 0, 0, costmap.Free)
	test.That(t, err, test.ShouldBeNil)
	grid.Lock()
	grid.SetCost(5, 5, costmap.LethalObstacle)
	grid.Unlock()

	walls := BuildDistanceMap(grid, []costmap.Cell{{X: 0, Y: 0}}, 0, 0, 10, 10, costmap.InscribedInflated, true)
	_, blocked := walls[costmap.Cell{X: 5, Y: 5}]
	test.That(t, blocked, test.ShouldBeFalse)

	penalized := BuildDistanceMap(grid, []costmap.Cell{{X: 0, Y: 0}}, 0, 0, 10, 10, costmap.InscribedInflated, false)
	_, reached := penalized[costmap.Cell{X: 5, Y: 5}]
	test.That(t, reached, test.ShouldBeTrue)
}
