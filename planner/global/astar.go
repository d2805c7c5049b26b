// Package global implements the grid-search global planner: an
// 8-connected A* over a snapshot of the master costmap, per spec.md
// §4.7. The priority queue is a container/heap min-heap, the same
// idiom costmap's inflation-layer distance transform uses, grounded on
// pthm-soup/systems/astar.go's nodeHeap/gScore/cameFrom shape.
package global

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"
	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/spatialmath"
	"gonum.org/v1/gonum/floats"
)

// Planner runs grid-search global plans over a LayeredCostmap's master
// grid. CostScale (k in the spec's step-cost formula) and
// LethalThreshold (the cost at or above which a cell is blocked) are
// configured once and reused across MakePlan calls.
type Planner struct {
	costScale       float64
	lethalThreshold costmap.Cost
}

// NewPlanner constructs a Planner. costScale is the k term in
// step_distance * (1 + k*cost[cell]); lethalThreshold is the cost at
// or above which a cell blocks the search (spec.md §4.7 uses
// INSCRIBED_INFLATED).
func NewPlanner(costScale float64, lethalThreshold costmap.Cost) *Planner {
	return &Planner{costScale: costScale, lethalThreshold: lethalThreshold}
}

// cellIndex linearizes a cell for use as a map key and as the
// lower-index tie-break term.
func cellIndex(c costmap.Cell, sizeX int) int { return c.Y*sizeX + c.X }

// searchNode is a priority-queue entry: the cell, its fScore (gScore +
// heuristic) and its linear index, used only to order the heap.
type searchNode struct {
	cell   costmap.Cell
	fScore float64
	index  int // cellIndex, used as the tie-break key
}

type nodeHeap []searchNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].fScore != h[j].fScore {
		return h[i].fScore < h[j].fScore
	}
	// tie-break: equal fScores go to the lower linear index; the
	// heuristic is not compared as a separate tie-break term.
	return h[i].index < h[j].index
}
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(searchNode)) }
func (h *nodeHeap) Pop() interface{} {
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

func stepDistance(off costmap.Cell, resolution float64) float64 {
	if off.X != 0 && off.Y != 0 {
		return resolution * math.Sqrt2
	}
	return resolution
}

func heuristic(a, b costmap.Cell, resolution float64) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Hypot(dx, dy) * resolution
}

// MakePlan runs an A* grid search from start to goal (world
// coordinates) over grid, a caller-held snapshot of the master
// costmap. It returns a non-empty sequence of world poses at cell
// centres from start to goal, or an error if no plan exists.
func (p *Planner) MakePlan(grid *costmap.Grid, startX, startY, goalX, goalY float64) ([]spatialmath.Pose2D, error) {
	startCellX, startCellY, ok := grid.WorldToMap(startX, startY)
	if !ok {
		return nil, errors.Errorf("start (%f,%f) is outside the costmap", startX, startY)
	}
	goalCellX, goalCellY, ok := grid.WorldToMap(goalX, goalY)
	if !ok {
		return nil, errors.Errorf("goal (%f,%f) is outside the costmap", goalX, goalY)
	}
	start := costmap.Cell{X: startCellX, Y: startCellY}
	goal := costmap.Cell{X: goalCellX, Y: goalCellY}
	sizeX := grid.SizeX()
	resolution := grid.Resolution()

	if grid.GetCost(goal.X, goal.Y) >= p.lethalThreshold {
		return nil, errors.New("goal cell is blocked")
	}

	gScore := map[int]float64{cellIndex(start, sizeX): 0}
	cameFrom := map[int]costmap.Cell{}
	closed := map[int]bool{}

	pq := &nodeHeap{}
	heap.Init(pq)
	heap.Push(pq, searchNode{cell: start, fScore: heuristic(start, goal, resolution), index: cellIndex(start, sizeX)})

	found := false
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(searchNode)
		curIdx := cellIndex(cur.cell, sizeX)
		if closed[curIdx] {
			continue
		}
		closed[curIdx] = true

		if cur.cell == goal {
			found = true
			break
		}

		curG := gScore[curIdx]
		candidateIdx := make([]int, 0, len(neighbourOffsets))
		candidateG := make([]float64, 0, len(neighbourOffsets))
		candidateCell := make([]costmap.Cell, 0, len(neighbourOffsets))
		for _, off := range neighbourOffsets {
			n := costmap.Cell{X: cur.cell.X + off.X, Y: cur.cell.Y + off.Y}
			if !grid.InBounds(n.X, n.Y) {
				continue
			}
			nIdx := cellIndex(n, sizeX)
			if closed[nIdx] {
				continue
			}
			cellCost := grid.GetCost(n.X, n.Y)
			if cellCost >= p.lethalThreshold {
				continue
			}
			tentativeG := curG + stepDistance(off, resolution)*(1+p.costScale*float64(cellCost))
			candidateIdx = append(candidateIdx, nIdx)
			candidateG = append(candidateG, tentativeG)
			candidateCell = append(candidateCell, n)
		}
		// floats.MinIdx picks the locally-cheapest neighbour first so
		// ties among this cell's own candidates resolve deterministically
		// before they ever reach the heap; the heap itself still governs
		// global ordering across cells already expanded.
		for len(candidateIdx) > 0 {
			i := floats.MinIdx(candidateG)
			nIdx := candidateIdx[i]
			tentativeG := candidateG[i]
			n := candidateCell[i]
			if existing, ok := gScore[nIdx]; !ok || tentativeG < existing {
				gScore[nIdx] = tentativeG
				cameFrom[nIdx] = cur.cell
				f := tentativeG + heuristic(n, goal, resolution)
				heap.Push(pq, searchNode{cell: n, fScore: f, index: nIdx})
			}
			candidateIdx = append(candidateIdx[:i], candidateIdx[i+1:]...)
			candidateG = append(candidateG[:i], candidateG[i+1:]...)
			candidateCell = append(candidateCell[:i], candidateCell[i+1:]...)
		}
	}

	if !found {
		return nil, errors.New("no path to goal")
	}

	cells := []costmap.Cell{goal}
	cur := goal
	for cur != start {
		parent, ok := cameFrom[cellIndex(cur, sizeX)]
		if !ok {
			return nil, errors.New("no path to goal")
		}
		cells = append(cells, parent)
		cur = parent
	}
	// reverse into start->goal order.
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}

	plan := make([]spatialmath.Pose2D, 0, len(cells))
	for idx, c := range cells {
		wx, wy := grid.MapToWorld(c.X, c.Y)
		theta := 0.0
		if idx+1 < len(cells) {
			nx, ny := grid.MapToWorld(cells[idx+1].X, cells[idx+1].Y)
			theta = math.Atan2(ny-wy, nx-wx)
		} else if idx > 0 {
			theta = plan[idx-1].Theta
		}
		plan = append(plan, spatialmath.Pose2D{X: wx, Y: wy, Theta: theta})
	}
	if len(plan) == 0 {
		return nil, errors.New("empty plan")
	}
	return plan, nil
}
