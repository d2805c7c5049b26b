package costmap

import (
	"testing"

	"go.viam.com/test"
)

func TestInflationLayerHalo(t *testing.T) {
	master, err := NewGrid(40, 40, 0.1, 0, 0, Free)
	test.That(t, err, test.ShouldBeNil)

	master.Lock()
	master.SetCost(20, 20, LethalObstacle)
	master.Unlock()

	layer := NewInflationLayer("inflation", 0.5, 200, 3.0)
	layer.OnFootprintChanged(nil, 0.1, 0.2)

	master.Lock()
	layer.UpdateCosts(master, 0, 0, 40, 40)

	lethal := master.GetCost(20, 20)
	nearInscribed := master.GetCost(21, 20) // 1 cell = 0.1m away, <= inscribed radius
	mid := master.GetCost(23, 20)           // 0.3m away, within inflation radius
	far := master.GetCost(39, 39)           // far outside inflation radius
	master.Unlock()

	test.That(t, lethal, test.ShouldEqual, LethalObstacle)
	test.That(t, nearInscribed, test.ShouldEqual, InscribedInflated)
	test.That(t, mid > Free, test.ShouldBeTrue)
	test.That(t, mid < InscribedInflated, test.ShouldBeTrue)
	test.That(t, far, test.ShouldEqual, Free)
}

func TestInflationMonotonicallyDecreasing(t *testing.T) {
	master, err := NewGrid(40, 40, 0.1, 0, 0, Free)
	test.That(t, err, test.ShouldBeNil)
	master.Lock()
	master.SetCost(20, 20, LethalObstacle)
	master.Unlock()

	layer := NewInflationLayer("inflation", 1.0, 200, 3.0)
	layer.OnFootprintChanged(nil, 0.05, 0.1)

	master.Lock()
	defer master.Unlock()
	layer.UpdateCosts(master, 0, 0, 40, 40)

	var prev Cost = InscribedInflated
	for x := 21; x < 30; x++ {
		c := master.GetCost(x, 20)
		test.That(t, c <= prev, test.ShouldBeTrue)
		prev = c
	}
}
