package costmap

import "go.viam.com/navcore/spatialmath"

// Observation is one sensor reading: a set of obstacle points in the
// master grid's world frame, seen from (OriginX, OriginY), per spec.md §1's
// "sensor drivers that feed obstacle observations" collaborator.
type Observation struct {
	OriginX, OriginY float64
	Points           []spatialmath.Point2D
}

// ObstacleLayer marks LETHAL cells at observed obstacle points and
// clears cells along the raytrace from the sensor origin to each point,
// per spec.md §4.2. Observations queued since the last cycle are
// consumed by UpdateCosts and then discarded.
type ObstacleLayer struct {
	name     string
	maxRange float64

	pending []Observation
}

// NewObstacleLayer constructs an ObstacleLayer that ignores
// observation points farther than maxRange from their sensor origin.
func NewObstacleLayer(name string, maxRange float64) *ObstacleLayer {
	return &ObstacleLayer{name: name, maxRange: maxRange}
}

// AddObservation queues a sensor reading to be applied on the next
// UpdateBounds/UpdateCosts cycle.
func (o *ObstacleLayer) AddObservation(obs Observation) {
	o.pending = append(o.pending, obs)
}

func (o *ObstacleLayer) Name() string { return o.name }

func (o *ObstacleLayer) UpdateBounds(robotX, robotY, robotYaw float64, accumulated Bounds) Bounds {
	for _, obs := range o.pending {
		accumulated = accumulated.Union(Bounds{MinX: obs.OriginX, MinY: obs.OriginY, MaxX: obs.OriginX, MaxY: obs.OriginY})
		for _, p := range obs.Points {
			accumulated = accumulated.Union(Bounds{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y})
		}
	}
	return accumulated
}

func (o *ObstacleLayer) UpdateCosts(master *Grid, x0, y0, xn, yn int) {
	for _, obs := range o.pending {
		ox, oy, originOK := master.WorldToMap(obs.OriginX, obs.OriginY)
		for _, p := range obs.Points {
			if o.maxRange > 0 {
				dx, dy := p.X-obs.OriginX, p.Y-obs.OriginY
				if dx*dx+dy*dy > o.maxRange*o.maxRange {
					continue
				}
			}
			px, py, pointOK := master.WorldToMap(p.X, p.Y)
			if originOK {
				for _, c := range bresenhamLine(ox, oy, px, py) {
					if c.X == px && c.Y == py {
						continue // destination cell is the obstacle itself, set below
					}
					if withinWindow(c, x0, y0, xn, yn) {
						master.SetCost(c.X, c.Y, Free)
					}
				}
			}
			if pointOK && withinWindow(Cell{X: px, Y: py}, x0, y0, xn, yn) {
				master.SetCost(px, py, LethalObstacle)
			}
		}
	}
	o.pending = nil
}

func withinWindow(c Cell, x0, y0, xn, yn int) bool {
	return c.X >= x0 && c.X < xn && c.Y >= y0 && c.Y < yn
}

func (o *ObstacleLayer) OnFootprintChanged([]spatialmath.Point2D, float64, float64) {}
