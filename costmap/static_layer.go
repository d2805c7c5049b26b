package costmap

import "go.viam.com/navcore/spatialmath"

// OccupancyGrid is the externally supplied static map, per spec.md §1's
// "map service that provides the initial static grid" collaborator.
// Cell values follow the common occupancy convention: -1 unknown, 0
// free, 100 fully occupied, linearly graded in between.
type OccupancyGrid struct {
	SizeX, SizeY     int
	Resolution       float64
	OriginX, OriginY float64
	Data             []int8 // row-major, -1..100
}

// StaticLayer copies an externally supplied occupancy grid into the
// master costmap once, per spec.md §4.2. It declares its bounds exactly
// once (the full extent of the supplied map) and is inert afterward,
// unless ReceiveMap is called again with a new map.
type StaticLayer struct {
	name string
	grid *OccupancyGrid
	// dirty is set by each ReceiveMap call and stays true until the
	// next UpdateCosts consumes the map.
	dirty bool
}

// NewStaticLayer constructs a StaticLayer with no map loaded yet.
func NewStaticLayer(name string) *StaticLayer {
	return &StaticLayer{name: name}
}

// ReceiveMap installs a new static map to be copied in on the next cycle.
func (s *StaticLayer) ReceiveMap(grid *OccupancyGrid) {
	s.grid = grid
	s.dirty = true
}

func (s *StaticLayer) Name() string { return s.name }

func (s *StaticLayer) UpdateBounds(robotX, robotY, robotYaw float64, accumulated Bounds) Bounds {
	if s.grid == nil || !s.dirty {
		return accumulated
	}
	return accumulated.Union(Bounds{
		MinX: s.grid.OriginX,
		MinY: s.grid.OriginY,
		MaxX: s.grid.OriginX + float64(s.grid.SizeX)*s.grid.Resolution,
		MaxY: s.grid.OriginY + float64(s.grid.SizeY)*s.grid.Resolution,
	})
}

func (s *StaticLayer) UpdateCosts(master *Grid, x0, y0, xn, yn int) {
	if s.grid == nil || !s.dirty {
		return
	}
	for my := y0; my < yn; my++ {
		for mx := x0; mx < xn; mx++ {
			wx, wy := master.MapToWorld(mx, my)
			sx, sy, ok := worldToStatic(s.grid, wx, wy)
			if !ok {
				continue
			}
			occ := s.grid.Data[sy*s.grid.SizeX+sx]
			master.SetCost(mx, my, occupancyToCost(occ))
		}
	}
	s.dirty = false
}

func worldToStatic(grid *OccupancyGrid, wx, wy float64) (mx, my int, ok bool) {
	if wx < grid.OriginX || wy < grid.OriginY {
		return 0, 0, false
	}
	mx = int((wx - grid.OriginX) / grid.Resolution)
	my = int((wy - grid.OriginY) / grid.Resolution)
	if mx < 0 || mx >= grid.SizeX || my < 0 || my >= grid.SizeY {
		return 0, 0, false
	}
	return mx, my, true
}

// occupancyToCost maps an occupancy-grid value (-1..100) onto the
// costmap's cost lattice (spec.md §3): unknown stays unknown, fully
// occupied becomes LethalObstacle, and everything else is linearly
// scaled into the graded-cost range.
func occupancyToCost(occ int8) Cost {
	switch {
	case occ < 0:
		return NoInformation
	case occ >= 100:
		return LethalObstacle
	case occ == 0:
		return Free
	default:
		scaled := int(occ) * int(LethalObstacle-1) / 100
		return Cost(scaled)
	}
}

func (s *StaticLayer) OnFootprintChanged([]spatialmath.Point2D, float64, float64) {}
