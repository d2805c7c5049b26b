package costmap

import (
	"go.uber.org/zap"

	"go.viam.com/navcore/spatialmath"
)

// LayeredCostmap composes an ordered stack of Layers over a master
// Grid, per spec.md §3/§4.3. It owns its layers; layers never hold a
// pointer back to the LayeredCostmap or the master grid (Design Notes
// §9), receiving a borrowed *Grid on every UpdateCosts call instead.
type LayeredCostmap struct {
	master *Grid
	layers []Layer
	logger *zap.SugaredLogger

	initialized bool
	sizeLocked  bool

	// lastResize records the geometry the master grid was last sized
	// to, so a resize with unchanged parameters is a no-op even when
	// sizeLocked is false (original_source's saved_origin_x/_y
	// bookkeeping; see SPEC_FULL.md).
	lastResize struct {
		sizeX, sizeY     int
		resolution       float64
		originX, originY float64
		valid            bool
	}

	minX, minY, maxX, maxY float64 // last updated bounds, world frame
	bx0, by0, bxn, byn     int     // last updated bounds, cell frame

	footprint                             []spatialmath.Point2D
	inscribedRadius, circumscribedRadius  float64
}

// NewLayeredCostmap constructs a LayeredCostmap over a freshly
// allocated master grid of the given geometry.
func NewLayeredCostmap(sizeX, sizeY int, resolution, originX, originY float64, trackUnknownSpace bool, logger *zap.SugaredLogger) (*LayeredCostmap, error) {
	defaultValue := Free
	if trackUnknownSpace {
		defaultValue = NoInformation
	}
	master, err := NewGrid(sizeX, sizeY, resolution, originX, originY, defaultValue)
	if err != nil {
		return nil, err
	}
	return &LayeredCostmap{master: master, logger: logger}, nil
}

// Costmap returns the master grid.
func (lc *LayeredCostmap) Costmap() *Grid { return lc.master }

// AddLayer appends a layer to the stack. Inflation layers must be
// added last, per spec.md §4.2.
func (lc *LayeredCostmap) AddLayer(l Layer) {
	lc.layers = append(lc.layers, l)
}

// Layers returns the ordered layer stack.
func (lc *LayeredCostmap) Layers() []Layer { return lc.layers }

// IsSizeLocked reports whether Resize is a no-op.
func (lc *LayeredCostmap) IsSizeLocked() bool { return lc.sizeLocked }

// SetSizeLocked controls whether Resize is a no-op.
func (lc *LayeredCostmap) SetSizeLocked(locked bool) { lc.sizeLocked = locked }

// IsInitialized reports whether UpdateMap has run at least once.
func (lc *LayeredCostmap) IsInitialized() bool { return lc.initialized }

// GetUpdatedBounds returns the world-space bounds of the last UpdateMap
// cycle.
func (lc *LayeredCostmap) GetUpdatedBounds() (minX, minY, maxX, maxY float64) {
	return lc.minX, lc.minY, lc.maxX, lc.maxY
}

// GetBounds returns the cell-space bounds of the last UpdateMap cycle.
func (lc *LayeredCostmap) GetBounds() (x0, xn, y0, yn int) {
	return lc.bx0, lc.bxn, lc.by0, lc.byn
}

// Resize propagates a new size/resolution/origin to the master grid.
// It is a no-op if the costmap's size is locked, or if the requested
// geometry matches the last resize (SPEC_FULL.md's "Supplemented
// features" #2).
func (lc *LayeredCostmap) Resize(sizeX, sizeY int, resolution, originX, originY float64) error {
	if lc.sizeLocked {
		return nil
	}
	if lc.lastResize.valid &&
		lc.lastResize.sizeX == sizeX && lc.lastResize.sizeY == sizeY &&
		lc.lastResize.resolution == resolution &&
		lc.lastResize.originX == originX && lc.lastResize.originY == originY {
		return nil
	}
	if err := lc.master.ResizeMap(sizeX, sizeY, resolution, originX, originY); err != nil {
		return err
	}
	lc.lastResize.sizeX = sizeX
	lc.lastResize.sizeY = sizeY
	lc.lastResize.resolution = resolution
	lc.lastResize.originX = originX
	lc.lastResize.originY = originY
	lc.lastResize.valid = true
	return nil
}

// SetFootprint recomputes the inscribed/circumscribed radii from spec
// and notifies every layer, per spec.md §4.3.
func (lc *LayeredCostmap) SetFootprint(spec []spatialmath.Point2D) {
	lc.footprint = spec
	lc.inscribedRadius, lc.circumscribedRadius = spatialmath.CalculateMinAndMaxDistances(spec)
	for _, l := range lc.layers {
		l.OnFootprintChanged(spec, lc.inscribedRadius, lc.circumscribedRadius)
	}
}

// Footprint returns the last footprint passed to SetFootprint.
func (lc *LayeredCostmap) Footprint() []spatialmath.Point2D { return lc.footprint }

// InscribedRadius returns the radius of the largest circle contained in
// the footprint, centred at the robot origin.
func (lc *LayeredCostmap) InscribedRadius() float64 { return lc.inscribedRadius }

// CircumscribedRadius returns the radius of the smallest circle
// containing the footprint.
func (lc *LayeredCostmap) CircumscribedRadius() float64 { return lc.circumscribedRadius }

// UpdateMap performs one composite cycle, per spec.md §4.3:
//  1. union every layer's declared bounds, clipped to the grid;
//  2. reset that window in the master grid;
//  3. invoke each layer's UpdateCosts in order within that window;
//  4. cache the updated bounds.
//
// Steps 2-4 run under the master grid's lock so a reader never
// observes a partially updated window (spec.md §5, ordering guarantee b);
// step 1 only consults the layers and runs before the lock is taken.
func (lc *LayeredCostmap) UpdateMap(robotX, robotY, robotYaw float64) {
	var union Bounds
	union.MinX, union.MinY, union.MaxX, union.MaxY = 0, 0, -1, -1 // empty sentinel
	for _, l := range lc.layers {
		union = l.UpdateBounds(robotX, robotY, robotYaw, union)
	}
	if union.Empty() {
		lc.initialized = true
		return
	}

	lc.master.Lock()
	defer lc.master.Unlock()

	x0, y0, okLL := lc.master.WorldToMap(union.MinX, union.MinY)
	if !okLL {
		x0, y0 = clampCell(lc.master, union.MinX, union.MinY)
	}
	xn, yn, okUR := lc.master.WorldToMap(union.MaxX, union.MaxY)
	if !okUR {
		xn, yn = clampCell(lc.master, union.MaxX, union.MaxY)
	}
	xn++
	yn++
	x0c, y0c, xnc, ync := clipWindow(x0, y0, xn, yn, lc.master.SizeX(), lc.master.SizeY())

	lc.master.resetRegionLocked(x0c, y0c, xnc, ync)
	for _, l := range lc.layers {
		l.UpdateCosts(lc.master, x0c, y0c, xnc, ync)
	}

	lc.minX, lc.minY, lc.maxX, lc.maxY = union.MinX, union.MinY, union.MaxX, union.MaxY
	lc.bx0, lc.by0, lc.bxn, lc.byn = x0c, y0c, xnc, ync
	lc.initialized = true

	if lc.logger != nil {
		lc.logger.Debugw("layered costmap updated", "x0", x0c, "y0", y0c, "xn", xnc, "yn", ync)
	}
}

// clampCell converts a world point to the nearest in-bounds cell
// coordinate, for window bounds that fall outside the grid.
func clampCell(g *Grid, wx, wy float64) (mx, my int) {
	ox, oy := g.Origin()
	mx = int((wx - ox) / g.Resolution())
	my = int((wy - oy) / g.Resolution())
	return clampInt(mx, 0, g.SizeX()-1), clampInt(my, 0, g.SizeY()-1)
}
