package costmap

import (
	"testing"

	"go.viam.com/navcore/spatialmath"
	"go.viam.com/test"
)

func TestBresenhamLineHorizontal(t *testing.T) {
	cells := bresenhamLine(0, 0, 4, 0)
	test.That(t, len(cells), test.ShouldEqual, 5)
	for i, c := range cells {
		test.That(t, c, test.ShouldResemble, Cell{X: i, Y: 0})
	}
}

func TestBresenhamLineDiagonal(t *testing.T) {
	cells := bresenhamLine(0, 0, 3, 3)
	test.That(t, cells[0], test.ShouldResemble, Cell{X: 0, Y: 0})
	test.That(t, cells[len(cells)-1], test.ShouldResemble, Cell{X: 3, Y: 3})
}

func TestRasteriseOutlineClosesLoop(t *testing.T) {
	g, err := NewGrid(20, 20, 0.1, -1, -1, Free)
	test.That(t, err, test.ShouldBeNil)

	square := []spatialmath.Point2D{
		{X: -0.2, Y: -0.2}, {X: 0.2, Y: -0.2}, {X: 0.2, Y: 0.2}, {X: -0.2, Y: 0.2},
	}
	outline := RasteriseOutline(g, square)
	test.That(t, len(outline) > 0, test.ShouldBeTrue)

	// every vertex should appear in the outline.
	for _, v := range square {
		mx, my, ok := g.WorldToMap(v.X, v.Y)
		test.That(t, ok, test.ShouldBeTrue)
		found := false
		for _, c := range outline {
			if c == (Cell{X: mx, Y: my}) {
				found = true
				break
			}
		}
		test.That(t, found, test.ShouldBeTrue)
	}
}

func TestFillPolygonSquare(t *testing.T) {
	g, err := NewGrid(20, 20, 0.1, -1, -1, Free)
	test.That(t, err, test.ShouldBeNil)

	square := []spatialmath.Point2D{
		{X: -0.3, Y: -0.3}, {X: 0.3, Y: -0.3}, {X: 0.3, Y: 0.3}, {X: -0.3, Y: 0.3},
	}
	outline := RasteriseOutline(g, square)
	filled := FillPolygon(outline)
	test.That(t, len(filled) > 0, test.ShouldBeTrue)

	all := append(append([]Cell{}, outline...), filled...)
	sortCellsByXThenY(all)

	// the centre of the footprint must be among the filled cells.
	cx, cy, ok := g.WorldToMap(0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	found := false
	for _, c := range all {
		if c.X == cx && c.Y == cy {
			found = true
			break
		}
	}
	test.That(t, found, test.ShouldBeTrue)
}

func TestFootprintCellsOutlineOnly(t *testing.T) {
	g, err := NewGrid(20, 20, 0.1, -1, -1, Free)
	test.That(t, err, test.ShouldBeNil)
	spec := spatialmath.MakeFootprintFromRadius(0.3)
	outline := FootprintCells(g, 0, 0, 0, spec, false)
	filled := FootprintCells(g, 0, 0, 0, spec, true)
	test.That(t, len(filled) >= len(outline), test.ShouldBeTrue)
}
