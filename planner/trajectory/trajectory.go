// Package trajectory implements the trajectory-rollout local planner
// core, per spec.md §4.5: sample the reachable (vx, vtheta) window,
// forward-simulate each sample against the costmap, and score legal
// trajectories against the pruned global plan and the goal.
package trajectory

import (
	"container/heap"
	"math"

	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/spatialmath"
	"gonum.org/v1/gonum/floats"
)

// Limits bounds the velocity and acceleration space a Config samples.
type Limits struct {
	MinVx, MaxVx         float64
	MinVTheta, MaxVTheta float64
	AccLimX, AccLimTheta float64
}

// Weights are the scoring coefficients from spec.md §4.5's
// score(T) formula.
type Weights struct {
	PathDistanceBias float64
	GoalDistanceBias float64
	OccdistScale     float64
}

// Config bundles a cycle's sampling, simulation, and scoring
// parameters.
type Config struct {
	Limits          Limits
	Weights         Weights
	SimTime         float64
	SimGranularity  float64
	SimPeriod       float64
	VxSamples       int
	VThetaSamples   int
	Footprint       []spatialmath.Point2D
	LethalThreshold costmap.Cost
}

// Result is a scored, legal trajectory's first-step command, per
// spec.md §4.5 step 5.
type Result struct {
	Velocity spatialmath.Velocity2D
	Score    float64
}

const illegalScore = math.MaxFloat64

// window returns the reachable (vx, vtheta) interval for one sim
// period given the current velocity and the configured acceleration
// limits, per spec.md §4.5 step 1.
func window(current spatialmath.Velocity2D, limits Limits, period float64) (vxLo, vxHi, vthLo, vthHi float64) {
	vxLo = math.Max(limits.MinVx, current.Linear-limits.AccLimX*period)
	vxHi = math.Min(limits.MaxVx, current.Linear+limits.AccLimX*period)
	vthLo = math.Max(limits.MinVTheta, current.Angular-limits.AccLimTheta*period)
	vthHi = math.Min(limits.MaxVTheta, current.Angular+limits.AccLimTheta*period)
	return
}

// sampleVelocities builds the regular vxSamples x vThetaSamples grid
// over the reachable window plus the explicit (0,0) and in-place
// rotation samples spec.md §4.5 step 2 calls for.
func sampleVelocities(cfg Config, current spatialmath.Velocity2D) []spatialmath.Velocity2D {
	vxLo, vxHi, vthLo, vthHi := window(current, cfg.Limits, cfg.SimPeriod)

	var samples []spatialmath.Velocity2D
	nvx := cfg.VxSamples
	nvth := cfg.VThetaSamples
	if nvx < 1 {
		nvx = 1
	}
	if nvth < 1 {
		nvth = 1
	}
	for i := 0; i < nvx; i++ {
		vx := vxLo
		if nvx > 1 {
			vx = vxLo + (vxHi-vxLo)*float64(i)/float64(nvx-1)
		}
		for j := 0; j < nvth; j++ {
			vth := vthLo
			if nvth > 1 {
				vth = vthLo + (vthHi-vthLo)*float64(j)/float64(nvth-1)
			}
			samples = append(samples, spatialmath.Velocity2D{Linear: vx, Angular: vth})
		}
	}
	samples = append(samples, spatialmath.Velocity2D{Linear: 0, Angular: 0})
	// in-place rotation: zero linear velocity, extremal angular velocity
	// toward whichever bound is farther from zero.
	rotTheta := vthHi
	if math.Abs(vthLo) > math.Abs(vthHi) {
		rotTheta = vthLo
	}
	samples = append(samples, spatialmath.Velocity2D{Linear: 0, Angular: rotTheta})
	return samples
}

// simulate forward-integrates pose under constant velocity v for
// sim_time at sim_granularity steps, per spec.md §4.5 step 3, and
// returns each intermediate pose including the final one.
func simulate(start spatialmath.Pose2D, v spatialmath.Velocity2D, simTime, granularity float64) []spatialmath.Pose2D {
	if granularity <= 0 {
		granularity = simTime
	}
	steps := int(math.Ceil(simTime / granularity))
	if steps < 1 {
		steps = 1
	}
	dt := simTime / float64(steps)

	poses := make([]spatialmath.Pose2D, 0, steps+1)
	pose := start
	poses = append(poses, pose)
	for i := 0; i < steps; i++ {
		pose = spatialmath.Pose2D{
			X:     pose.X + v.Linear*math.Cos(pose.Theta)*dt,
			Y:     pose.Y + v.Linear*math.Sin(pose.Theta)*dt,
			Theta: spatialmath.NormalizeAngle(pose.Theta + v.Angular*dt),
		}
		poses = append(poses, pose)
	}
	return poses
}

// footprintLegalAndCost walks grid's cells under the footprint at
// pose and returns (legal, maxCost): illegal if any covered cell is at
// or above lethalThreshold or is NO_INFORMATION.
func footprintLegalAndCost(grid *costmap.Grid, pose spatialmath.Pose2D, footprint []spatialmath.Point2D, lethalThreshold costmap.Cost) (bool, costmap.Cost) {
	cells := costmap.FootprintCells(grid, pose.X, pose.Y, pose.Theta, footprint, true)
	var maxCost costmap.Cost
	for _, c := range cells {
		if !grid.InBounds(c.X, c.Y) {
			return false, maxCost
		}
		cost := grid.GetCost(c.X, c.Y)
		if cost == costmap.NoInformation || cost >= lethalThreshold {
			return false, maxCost
		}
		if cost > maxCost {
			maxCost = cost
		}
	}
	return true, maxCost
}

// DistanceMap is a cell->distance-in-cells map built by a multi-source
// BFS/Dijkstra, used for both the path-distance and goal-distance maps
// spec.md §4.5 step 4 scores trajectories against.
type DistanceMap map[costmap.Cell]float64

// cellDist is the container/heap priority-queue entry for the
// distance-map search below, the same min-heap idiom
// costmap/inflation_layer.go uses for its obstacle distance transform.
type cellDist struct {
	cell costmap.Cell
	dist float64
}

type distHeap []cellDist

func (h distHeap) Len() int            { return len(h) }
func (h distHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h distHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *distHeap) Push(x interface{}) { *h = append(*h, x.(cellDist)) }
func (h *distHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var neighbourOffsets = []costmap.Cell{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

func stepCost(off costmap.Cell) float64 {
	if off.X != 0 && off.Y != 0 {
		return math.Sqrt2
	}
	return 1
}

// BuildDistanceMap runs a multi-source Dijkstra from seeds over
// [x0,xn)x[y0,yn), treating cells at or above wallThreshold as
// impassable (blockAsWalls=true, used for the path-distance map) or as
// merely penalised, traversable cells (blockAsWalls=false, used for
// the goal-distance map), per spec.md §4.5's "obstacles ... are
// treated as walls for path-distance ... but are penalised (not
// blocked) for goal-distance".
func BuildDistanceMap(grid *costmap.Grid, seeds []costmap.Cell, x0, y0, xn, yn int, wallThreshold costmap.Cost, blockAsWalls bool) DistanceMap {
	dist := make(DistanceMap)
	pq := &distHeap{}
	heap.Init(pq)
	for _, s := range seeds {
		if !grid.InBounds(s.X, s.Y) {
			continue
		}
		if _, ok := dist[s]; !ok {
			dist[s] = 0
			heap.Push(pq, cellDist{cell: s, dist: 0})
		}
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(cellDist)
		if d, ok := dist[cur.cell]; ok && cur.dist > d {
			continue
		}
		for _, off := range neighbourOffsets {
			n := costmap.Cell{X: cur.cell.X + off.X, Y: cur.cell.Y + off.Y}
			if n.X < x0 || n.X >= xn || n.Y < y0 || n.Y >= yn || !grid.InBounds(n.X, n.Y) {
				continue
			}
			cost := grid.GetCost(n.X, n.Y)
			if blockAsWalls && cost >= wallThreshold {
				continue
			}
			penalty := 0.0
			if !blockAsWalls && cost >= wallThreshold {
				penalty = float64(cost)
			}
			nd := cur.dist + stepCost(off) + penalty
			if existing, ok := dist[n]; !ok || nd < existing {
				dist[n] = nd
				heap.Push(pq, cellDist{cell: n, dist: nd})
			}
		}
	}
	return dist
}

// Get returns the distance at cell, or a large penalty if the cell was
// never reached by the search.
func (m DistanceMap) Get(c costmap.Cell) float64 {
	if d, ok := m[c]; ok {
		return d
	}
	return 1e6
}

// score implements spec.md §4.5 step 4's scoring formula for a
// trajectory's final pose and accumulated obstacle cost.
func score(cfg Config, grid *costmap.Grid, end spatialmath.Pose2D, pdist, gdist DistanceMap, occCost costmap.Cost) float64 {
	mx, my, ok := grid.WorldToMap(end.X, end.Y)
	if !ok {
		return illegalScore
	}
	c := costmap.Cell{X: mx, Y: my}
	return cfg.Weights.PathDistanceBias*pdist.Get(c) +
		cfg.Weights.GoalDistanceBias*gdist.Get(c) +
		cfg.Weights.OccdistScale*float64(occCost)
}

// Plan runs one trajectory-rollout cycle, per spec.md §4.5: sample,
// simulate, score, and return the minimum-score legal trajectory's
// first-step velocity. ok is false if no sampled trajectory is legal.
func Plan(cfg Config, grid *costmap.Grid, pose spatialmath.Pose2D, currentVel spatialmath.Velocity2D, pdist, gdist DistanceMap) (Result, bool) {
	samples := sampleVelocities(cfg, currentVel)

	scores := make([]float64, len(samples))
	for i, v := range samples {
		poses := simulate(pose, v, cfg.SimTime, cfg.SimGranularity)
		var maxCost costmap.Cost
		legal := true
		for _, p := range poses {
			ok, c := footprintLegalAndCost(grid, p, cfg.Footprint, cfg.LethalThreshold)
			if !ok {
				legal = false
				break
			}
			if c > maxCost {
				maxCost = c
			}
		}
		if !legal {
			scores[i] = illegalScore
			continue
		}
		end := poses[len(poses)-1]
		scores[i] = score(cfg, grid, end, pdist, gdist, maxCost)
	}

	best := floats.MinIdx(scores)
	if scores[best] >= illegalScore {
		return Result{}, false
	}

	// tie-break per spec.md §4.5: prefer lower |v_theta|, then larger vx,
	// among every sample whose score exactly equals the best score.
	for i, s := range scores {
		if i == best || s > scores[best] {
			continue
		}
		if s < scores[best] {
			continue
		}
		if betterTieBreak(samples[i], samples[best]) {
			best = i
		}
	}

	return Result{Velocity: samples[best], Score: scores[best]}, true
}

func betterTieBreak(candidate, current spatialmath.Velocity2D) bool {
	ca, cu := math.Abs(candidate.Angular), math.Abs(current.Angular)
	if ca != cu {
		return ca < cu
	}
	return candidate.Linear > current.Linear
}
