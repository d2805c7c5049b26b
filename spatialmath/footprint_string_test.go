package spatialmath

import (
	"testing"

	"go.viam.com/test"
)

func TestMakeFootprintFromString(t *testing.T) {
	pts, err := MakeFootprintFromString("[[0.2,0.1],[0.2,-0.1],[-0.2,-0.1],[-0.2,0.1]]")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pts, test.ShouldResemble, []Point2D{
		{X: 0.2, Y: 0.1}, {X: 0.2, Y: -0.1}, {X: -0.2, Y: -0.1}, {X: -0.2, Y: 0.1},
	})
}

func TestMakeFootprintFromStringWhitespace(t *testing.T) {
	pts, err := MakeFootprintFromString(" [ [0.2, 0.1] , [0.2,-0.1],\n[-0.2,-0.1] ] ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pts), test.ShouldEqual, 3)
}

func TestMakeFootprintFromStringTooFewPoints(t *testing.T) {
	_, err := MakeFootprintFromString("[[0,0],[1,1]]")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMakeFootprintFromStringInvalid(t *testing.T) {
	_, err := MakeFootprintFromString("not json")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMakeFootprintFromStringEmpty(t *testing.T) {
	_, err := MakeFootprintFromString("   ")
	test.That(t, err, test.ShouldNotBeNil)
}
