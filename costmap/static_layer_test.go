package costmap

import (
	"testing"

	"go.viam.com/test"
)

func TestStaticLayerCopiesOnce(t *testing.T) {
	master, err := NewGrid(10, 10, 0.1, 0, 0, Free)
	test.That(t, err, test.ShouldBeNil)

	data := make([]int8, 100)
	data[5*10+5] = 100 // fully occupied at cell (5,5)
	layer := NewStaticLayer("static")
	layer.ReceiveMap(&OccupancyGrid{SizeX: 10, SizeY: 10, Resolution: 0.1, Data: data})

	b := layer.UpdateBounds(0, 0, 0, Bounds{MinX: 0, MinY: 0, MaxX: -1, MaxY: -1})
	test.That(t, b.Empty(), test.ShouldBeFalse)

	master.Lock()
	layer.UpdateCosts(master, 0, 0, 10, 10)
	got := master.GetCost(5, 5)
	master.Unlock()
	test.That(t, got, test.ShouldEqual, LethalObstacle)

	// second cycle: map already consumed, bounds now empty.
	b2 := layer.UpdateBounds(0, 0, 0, Bounds{MinX: 0, MinY: 0, MaxX: -1, MaxY: -1})
	test.That(t, b2.Empty(), test.ShouldBeTrue)
}

func TestOccupancyToCost(t *testing.T) {
	test.That(t, occupancyToCost(-1), test.ShouldEqual, NoInformation)
	test.That(t, occupancyToCost(0), test.ShouldEqual, Free)
	test.That(t, occupancyToCost(100), test.ShouldEqual, LethalObstacle)
	test.That(t, occupancyToCost(50) > Free, test.ShouldBeTrue)
	test.That(t, occupancyToCost(50) < LethalObstacle, test.ShouldBeTrue)
}
