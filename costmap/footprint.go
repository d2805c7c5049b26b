package costmap

import (
	"sort"

	"go.viam.com/navcore/spatialmath"
)

// Cell is a map-frame cell coordinate, as opposed to spatialmath.Point2D
// which is a world-frame point.
type Cell struct {
	X, Y int
}

// RasteriseOutline converts a closed polygon's world-frame vertices
// into the grid cells that lie on its Bresenham-rasterised outline,
// closing the loop from the last vertex back to the first, per
// spec.md §4.4.
func RasteriseOutline(grid *Grid, polygon []spatialmath.Point2D) []Cell {
	if len(polygon) == 0 {
		return nil
	}
	cells := make([]Cell, len(polygon))
	ok := true
	for i, p := range polygon {
		mx, my, inBounds := grid.WorldToMap(p.X, p.Y)
		cells[i] = Cell{X: mx, Y: my}
		ok = ok && inBounds
	}

	var out []Cell
	n := len(cells)
	for i := 0; i < n; i++ {
		a := cells[i]
		b := cells[(i+1)%n]
		out = append(out, bresenhamLine(a.X, a.Y, b.X, b.Y)...)
	}
	return out
}

// bresenhamLine returns the integer grid cells on the line from
// (x0,y0) to (x1,y1) inclusive, via Bresenham's algorithm.
func bresenhamLine(x0, y0, x1, y1 int) []Cell {
	var cells []Cell
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	x, y := x0, y0
	for {
		cells = append(cells, Cell{X: x, Y: y})
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FillPolygon returns the interior cells of a rasterised polygon
// outline, per spec.md §4.4: bubble-sort cells by x, then for each
// x-column walk in y between the min and max y cells at that column.
func FillPolygon(outline []Cell) []Cell {
	if len(outline) < 3 {
		return nil
	}
	cells := make([]Cell, len(outline))
	copy(cells, outline)
	bubbleSortByX(cells)

	minX, maxX := cells[0].X, cells[len(cells)-1].X

	var filled []Cell
	i := 0
	for x := minX; x <= maxX; x++ {
		if i >= len(cells)-1 {
			break
		}
		var minPt, maxPt Cell
		if cells[i].Y < cells[i+1].Y {
			minPt, maxPt = cells[i], cells[i+1]
		} else {
			minPt, maxPt = cells[i+1], cells[i]
		}
		i += 2
		for i < len(cells) && cells[i].X == x {
			if cells[i].Y < minPt.Y {
				minPt = cells[i]
			} else if cells[i].Y > maxPt.Y {
				maxPt = cells[i]
			}
			i++
		}
		for y := minPt.Y; y < maxPt.Y; y++ {
			filled = append(filled, Cell{X: x, Y: y})
		}
	}
	return filled
}

// bubbleSortByX is the quick bubble sort spec.md §4.4 calls for
// (mirroring original_source's convexFillCells): simple and adequate
// for footprint-sized cell lists (tens of cells per trajectory step).
func bubbleSortByX(cells []Cell) {
	i := 0
	for i < len(cells)-1 {
		if cells[i].X > cells[i+1].X {
			cells[i], cells[i+1] = cells[i+1], cells[i]
			if i > 0 {
				i--
			}
		} else {
			i++
		}
	}
}

// FootprintCells returns the cells making up the robot's footprint at
// world pose (x,y,theta): either just the rasterised outline, or the
// outline plus its filled interior if fill is true.
func FootprintCells(grid *Grid, x, y, theta float64, footprintSpec []spatialmath.Point2D, fill bool) []Cell {
	transformed := spatialmath.TransformFootprint(x, y, theta, footprintSpec)
	outline := RasteriseOutline(grid, transformed)
	if !fill {
		return outline
	}
	return append(outline, FillPolygon(outline)...)
}

// sortCellsByXThenY is a helper for deterministic test comparisons.
func sortCellsByXThenY(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Y < cells[j].Y
	})
}
