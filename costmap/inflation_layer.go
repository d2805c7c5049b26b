package costmap

import (
	"container/heap"
	"math"

	"go.viam.com/navcore/spatialmath"
)

// InflationLayer writes a monotonically decreasing cost halo around
// every LETHAL cell out to inflationRadius, per spec.md §4.2:
//
//	cost = weight * exp(-decay * (d - inscribedRadius))
//
// clamped to [0, InscribedInflated-1], with cost = InscribedInflated
// where the cell's distance to the nearest obstacle is at most
// inscribedRadius (the robot's footprint is guaranteed to collide
// there). Inflation must be the last layer in the stack, since it
// reads the LETHAL cells every earlier layer wrote.
type InflationLayer struct {
	name         string
	weight       float64
	decay        float64
	// inscribedRadius comes from OnFootprintChanged; inflationRadius is
	// configured directly.
	inscribedRadius, inflationRadius float64
}

// NewInflationLayer constructs an InflationLayer. weight scales the
// exponential falloff; decay controls how quickly cost drops off with
// distance; inflationRadius bounds how far the halo extends, in meters.
func NewInflationLayer(name string, inflationRadius, weight, decay float64) *InflationLayer {
	return &InflationLayer{name: name, inflationRadius: inflationRadius, weight: weight, decay: decay}
}

func (i *InflationLayer) Name() string { return i.name }

// UpdateBounds expands the accumulated window by inflationRadius in
// every direction: inflation can write outside where obstacles were
// declared, since the halo spills beyond the obstacle cell itself.
func (i *InflationLayer) UpdateBounds(robotX, robotY, robotYaw float64, accumulated Bounds) Bounds {
	if accumulated.Empty() {
		return accumulated
	}
	return Bounds{
		MinX: accumulated.MinX - i.inflationRadius,
		MinY: accumulated.MinY - i.inflationRadius,
		MaxX: accumulated.MaxX + i.inflationRadius,
		MaxY: accumulated.MaxY + i.inflationRadius,
	}
}

func (i *InflationLayer) OnFootprintChanged(footprint []spatialmath.Point2D, inscribedRadius, circumscribedRadius float64) {
	i.inscribedRadius = inscribedRadius
}

// cellDist is a (cell, distance-in-cells) pair used as a priority-queue
// item for the multi-source Dijkstra distance transform below.
type cellDist struct {
	cell Cell
	dist float64
}

// distHeap is a min-heap of cellDist ordered by dist, used to compute
// the multi-source distance-to-nearest-obstacle transform that
// inflation's cost falloff is a function of.
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

var neighbourOffsets = []Cell{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

func neighbourStepCost(offset Cell) float64 {
	if offset.X != 0 && offset.Y != 0 {
		return math.Sqrt2
	}
	return 1
}

func (i *InflationLayer) UpdateCosts(master *Grid, x0, y0, xn, yn int) {
	if xn <= x0 || yn <= y0 {
		return
	}
	cellInflationRadius := master.CellDistance(i.inflationRadius)

	// seed the frontier with every LETHAL cell in a window padded by
	// the inflation radius, so the halo of an obstacle just outside the
	// declared window still reaches into it.
	sx0 := clampInt(x0-cellInflationRadius, 0, master.SizeX())
	sy0 := clampInt(y0-cellInflationRadius, 0, master.SizeY())
	sxn := clampInt(xn+cellInflationRadius, 0, master.SizeX())
	syn := clampInt(yn+cellInflationRadius, 0, master.SizeY())

	dist := make(map[Cell]float64)
	pq := &distHeap{}
	heap.Init(pq)
	for my := sy0; my < syn; my++ {
		for mx := sx0; mx < sxn; mx++ {
			if master.GetCost(mx, my) == LethalObstacle {
				c := Cell{X: mx, Y: my}
				dist[c] = 0
				heap.Push(pq, cellDist{cell: c, dist: 0})
			}
		}
	}

	inflationRadiusCells := float64(cellInflationRadius)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(cellDist)
		if d, ok := dist[cur.cell]; ok && cur.dist > d {
			continue // stale entry
		}
		if cur.dist > inflationRadiusCells {
			continue
		}
		for _, off := range neighbourOffsets {
			n := Cell{X: cur.cell.X + off.X, Y: cur.cell.Y + off.Y}
			if n.X < sx0 || n.X >= sxn || n.Y < sy0 || n.Y >= syn {
				continue
			}
			nd := cur.dist + neighbourStepCost(off)
			if nd > inflationRadiusCells {
				continue
			}
			if existing, ok := dist[n]; !ok || nd < existing {
				dist[n] = nd
				heap.Push(pq, cellDist{cell: n, dist: nd})
			}
		}
	}

	inscribedCells := i.inscribedRadius / master.Resolution()
	for my := y0; my < yn; my++ {
		for mx := x0; mx < xn; mx++ {
			c := Cell{X: mx, Y: my}
			d, ok := dist[c]
			if !ok {
				continue // no obstacle within range: leave existing cost (free/unknown)
			}
			if master.GetCost(mx, my) == LethalObstacle {
				continue // never overwrite a lethal cell with an inflated cost
			}
			worldDist := d * master.Resolution()
			master.SetCost(mx, my, i.costAtDistance(d, inscribedCells, worldDist))
		}
	}
}

func (i *InflationLayer) costAtDistance(distCells, inscribedCells, worldDist float64) Cost {
	if distCells <= inscribedCells {
		return InscribedInflated
	}
	cost := i.weight * math.Exp(-i.decay*(worldDist-i.inscribedRadius))
	return clampCost(cost, 0, float64(InscribedInflated-1))
}

func clampCost(v, lo, hi float64) Cost {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return Cost(v)
}
