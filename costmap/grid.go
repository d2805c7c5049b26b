package costmap

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

// Grid is the fixed-resolution 2D cost array described in spec.md §3.
// Cell storage is (re)allocated only by initMaps/ResizeMap/CopyWindow;
// all other mutation is in-place under Lock.
//
// Per-cell GetCost/SetCost intentionally do not lock (spec.md §4.1):
// callers that need a consistent view across several cells (a layer's
// updateCosts, a trajectory rollout's footprint check, a global plan's
// cost lookups) take the lock once around the whole batch instead of
// paying a lock/unlock pair per cell.
type Grid struct {
	mu sync.RWMutex

	sizeX, sizeY int
	resolution   float64
	originX      float64
	originY      float64
	defaultValue Cost
	cells        []Cost
}

// NewGrid constructs a grid of sizeX*sizeY cells at the given
// resolution and origin, with every cell initialized to defaultValue.
func NewGrid(sizeX, sizeY int, resolution, originX, originY float64, defaultValue Cost) (*Grid, error) {
	if sizeX <= 0 || sizeY <= 0 {
		return nil, errors.Errorf("grid size must be positive, got %dx%d", sizeX, sizeY)
	}
	if resolution <= 0 {
		return nil, errors.Errorf("resolution must be positive, got %f", resolution)
	}
	g := &Grid{
		sizeX:        sizeX,
		sizeY:        sizeY,
		resolution:   resolution,
		originX:      originX,
		originY:      originY,
		defaultValue: defaultValue,
	}
	g.initMaps(sizeX, sizeY)
	return g, nil
}

// initMaps (re)allocates cell storage. Callers must hold mu.
func (g *Grid) initMaps(sizeX, sizeY int) {
	g.cells = make([]Cost, sizeX*sizeY)
	for i := range g.cells {
		g.cells[i] = g.defaultValue
	}
}

// Lock/Unlock/RLock/RUnlock expose the grid's access lock directly so
// that layers and planners can hold it across a batch of cell reads or
// writes, per spec.md §4.1's "all cell writes happen under access_lock"
// invariant. This mirrors the C++ original's boost::unique_lock taken
// around LayeredCostmap::updateMap and TrajectoryLocalPlanner's
// footprint checks.
func (g *Grid) Lock()    { g.mu.Lock() }
func (g *Grid) Unlock()  { g.mu.Unlock() }
func (g *Grid) RLock()   { g.mu.RLock() }
func (g *Grid) RUnlock() { g.mu.RUnlock() }

// SizeX returns the grid width in cells.
func (g *Grid) SizeX() int { return g.sizeX }

// SizeY returns the grid height in cells.
func (g *Grid) SizeY() int { return g.sizeY }

// Resolution returns the grid's meters-per-cell resolution.
func (g *Grid) Resolution() float64 { return g.resolution }

// Origin returns the world coordinates of the lower-left corner of cell (0,0).
func (g *Grid) Origin() (x, y float64) { return g.originX, g.originY }

// DefaultValue returns the cost used to fill newly exposed cells.
func (g *Grid) DefaultValue() Cost { return g.defaultValue }

func (g *Grid) index(mx, my int) int { return my*g.sizeX + mx }

// InBounds reports whether (mx, my) addresses a cell of this grid.
func (g *Grid) InBounds(mx, my int) bool {
	return mx >= 0 && mx < g.sizeX && my >= 0 && my < g.sizeY
}

// GetCost returns the cost at (mx, my). It does not lock; see the Grid
// doc comment.
func (g *Grid) GetCost(mx, my int) Cost {
	return g.cells[g.index(mx, my)]
}

// SetCost writes the cost at (mx, my). It does not lock; see the Grid
// doc comment.
func (g *Grid) SetCost(mx, my int, v Cost) {
	g.cells[g.index(mx, my)] = v
}

// WorldToMap converts a world coordinate to a cell index, per spec.md
// §3: mx = floor((wx - origin_x) / resolution). ok is false if the
// resulting cell falls outside the grid.
func (g *Grid) WorldToMap(wx, wy float64) (mx, my int, ok bool) {
	if wx < g.originX || wy < g.originY {
		return 0, 0, false
	}
	mx = int(math.Floor((wx - g.originX) / g.resolution))
	my = int(math.Floor((wy - g.originY) / g.resolution))
	if !g.InBounds(mx, my) {
		return 0, 0, false
	}
	return mx, my, true
}

// MapToWorld converts a cell index to the world coordinate of its
// center, per spec.md §3: wx = origin_x + (mx + 0.5) * resolution.
func (g *Grid) MapToWorld(mx, my int) (wx, wy float64) {
	wx = g.originX + (float64(mx)+0.5)*g.resolution
	wy = g.originY + (float64(my)+0.5)*g.resolution
	return wx, wy
}

// CellDistance converts a world distance into a cell count, rounding up.
func (g *Grid) CellDistance(worldDist float64) int {
	d := math.Ceil(worldDist / g.resolution)
	if d < 0 {
		d = 0
	}
	return int(d)
}

// ResetMaps sets every cell to defaultValue. Acquires the lock.
func (g *Grid) ResetMaps() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetMapsLocked()
}

func (g *Grid) resetMapsLocked() {
	for i := range g.cells {
		g.cells[i] = g.defaultValue
	}
}

// ResetRegion sets exactly the cells in [x0,xn) x [y0,yn) to
// defaultValue and no others (spec.md §8 invariant 4). The window is
// clipped to the grid bounds. Acquires the lock.
func (g *Grid) ResetRegion(x0, y0, xn, yn int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetRegionLocked(x0, y0, xn, yn)
}

func (g *Grid) resetRegionLocked(x0, y0, xn, yn int) {
	x0, y0, xn, yn = clipWindow(x0, y0, xn, yn, g.sizeX, g.sizeY)
	for y := y0; y < yn; y++ {
		row := g.index(x0, y)
		for x := 0; x < xn-x0; x++ {
			g.cells[row+x] = g.defaultValue
		}
	}
}

func clipWindow(x0, y0, xn, yn, sizeX, sizeY int) (int, int, int, int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if xn > sizeX {
		xn = sizeX
	}
	if yn > sizeY {
		yn = sizeY
	}
	if xn < x0 {
		xn = x0
	}
	if yn < y0 {
		yn = y0
	}
	return x0, y0, xn, yn
}

// ResizeMap reallocates the grid to a new size/resolution/origin and
// resets all cells to defaultValue, per spec.md §4.1. Acquires the lock.
func (g *Grid) ResizeMap(sizeX, sizeY int, resolution, originX, originY float64) error {
	if sizeX <= 0 || sizeY <= 0 {
		return errors.Errorf("grid size must be positive, got %dx%d", sizeX, sizeY)
	}
	if resolution <= 0 {
		return errors.Errorf("resolution must be positive, got %f", resolution)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sizeX = sizeX
	g.sizeY = sizeY
	g.resolution = resolution
	g.originX = originX
	g.originY = originY
	g.initMaps(sizeX, sizeY)
	return nil
}

// UpdateOrigin shifts the grid so that (newOriginX, newOriginY) becomes
// the new lower-left corner, preserving the overlap between the old and
// new extents (spec.md §4.1, invariant 5). The new origin is snapped to
// the grid so cell boundaries stay aligned.
func (g *Grid) UpdateOrigin(newOriginX, newOriginY float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cellOX := int(math.Floor((newOriginX - g.originX) / g.resolution))
	cellOY := int(math.Floor((newOriginY - g.originY) / g.resolution))

	newGridOX := g.originX + float64(cellOX)*g.resolution
	newGridOY := g.originY + float64(cellOY)*g.resolution

	sizeX, sizeY := g.sizeX, g.sizeY

	lowerLeftX := clampInt(cellOX, 0, sizeX)
	lowerLeftY := clampInt(cellOY, 0, sizeY)
	upperRightX := clampInt(cellOX+sizeX, 0, sizeX)
	upperRightY := clampInt(cellOY+sizeY, 0, sizeY)

	overlapW := upperRightX - lowerLeftX
	overlapH := upperRightY - lowerLeftY

	var scratch []Cost
	if overlapW > 0 && overlapH > 0 {
		scratch = make([]Cost, overlapW*overlapH)
		copyRegion(g.cells, sizeX, lowerLeftX, lowerLeftY, overlapW, overlapH, scratch, overlapW, 0, 0)
	}

	g.resetMapsLocked()
	g.originX = newGridOX
	g.originY = newGridOY

	if scratch != nil {
		startX := lowerLeftX - cellOX
		startY := lowerLeftY - cellOY
		copyRegion(scratch, overlapW, 0, 0, overlapW, overlapH, g.cells, sizeX, startX, startY)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// copyRegion copies a w x h block starting at (srcX,srcY) in src (whose
// row stride is srcStride) into dst at (dstX,dstY) (row stride
// dstStride), clipping to dst's bounds implied by dstStride and the
// caller-provided size. Both src and dst are row-major.
func copyRegion(src []Cost, srcStride, srcX, srcY, w, h int, dst []Cost, dstStride, dstX, dstY int) {
	for row := 0; row < h; row++ {
		sy := srcY + row
		dy := dstY + row
		if dy < 0 {
			continue
		}
		srcRowStart := sy*srcStride + srcX
		dstRowStart := dy*dstStride + dstX
		for col := 0; col < w; col++ {
			dxCol := dstX + col
			if dxCol < 0 || dxCol >= dstStride {
				continue
			}
			dst[dstRowStart+col] = src[srcRowStart+col]
		}
	}
}

// CopyWindow replaces this grid's contents with a sub-window of src,
// addressed in world coordinates, per spec.md §4.1. It reports false if
// the requested window does not fit inside src.
func (g *Grid) CopyWindow(src *Grid, winOriginX, winOriginY, winSizeX, winSizeY float64) bool {
	if g == src {
		return false
	}
	src.mu.RLock()
	llx, lly, ok1 := src.WorldToMap(winOriginX, winOriginY)
	urx, ury, ok2 := src.WorldToMap(winOriginX+winSizeX, winOriginY+winSizeY)
	if !ok1 || !ok2 {
		src.mu.RUnlock()
		return false
	}

	newSizeX := urx - llx
	newSizeY := ury - lly
	if newSizeX <= 0 || newSizeY <= 0 {
		src.mu.RUnlock()
		return false
	}

	resolution := src.resolution
	srcCells := make([]Cost, newSizeX*newSizeY)
	copyRegion(src.cells, src.sizeX, llx, lly, newSizeX, newSizeY, srcCells, newSizeX, 0, 0)
	src.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sizeX = newSizeX
	g.sizeY = newSizeY
	g.resolution = resolution
	g.originX = winOriginX
	g.originY = winOriginY
	g.cells = srcCells
	return true
}

// Snapshot returns a copy of the grid's cells and geometry for use
// outside the lock (e.g. feeding a global-planner graph search).
func (g *Grid) Snapshot() (cells []Cost, sizeX, sizeY int, resolution, originX, originY float64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cells = make([]Cost, len(g.cells))
	copy(cells, g.cells)
	return cells, g.sizeX, g.sizeY, g.resolution, g.originX, g.originY
}
