package costmap

import "go.viam.com/navcore/spatialmath"

// Bounds is a world-space axis-aligned window a layer intends to
// modify, per spec.md §3 (Layer.updateBounds).
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Union returns the smallest Bounds containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return Bounds{
		MinX: min(b.MinX, o.MinX),
		MinY: min(b.MinY, o.MinY),
		MaxX: max(b.MaxX, o.MaxX),
		MaxY: max(b.MaxY, o.MaxY),
	}
}

// Empty reports whether b declares no extent (MinX > MaxX or MinY > MaxY).
func (b Bounds) Empty() bool { return b.MinX > b.MaxX || b.MinY > b.MaxY }

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Layer is the closed set of behaviours a costmap plugin supplies, per
// spec.md §3/§4.2 and Design Notes §9 ("model as a ... small capability
// set"). The layered costmap owns each Layer and passes it a borrowed
// *Grid on every call rather than the layer holding a back-pointer, so
// there are no ownership cycles (Design Notes §9, "Cyclic references").
type Layer interface {
	// Name identifies the layer for logging.
	Name() string

	// UpdateBounds folds this layer's intended write window for this
	// cycle into accumulated, the union of every earlier layer's
	// window. Layers run in stack order, so a later layer (inflation,
	// in particular) can see and expand on what earlier layers already
	// declared instead of only knowing its own window, mirroring the
	// accumulator-pointer pattern original_source's CostmapWrapper uses.
	UpdateBounds(robotX, robotY, robotYaw float64, accumulated Bounds) Bounds

	// UpdateCosts writes into master's cells within [x0,xn) x [y0,yn),
	// which the caller has already reset to the default value (for the
	// first layer in the stack) or left as the previous layer's output
	// (for subsequent layers). The caller holds master's lock for the
	// duration of the call.
	UpdateCosts(master *Grid, x0, y0, xn, yn int)

	// OnFootprintChanged is invoked whenever the layered costmap's
	// footprint, inscribed radius, or circumscribed radius changes.
	OnFootprintChanged(footprint []spatialmath.Point2D, inscribedRadius, circumscribedRadius float64)
}
