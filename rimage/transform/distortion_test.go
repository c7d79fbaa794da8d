package transform

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNewBrownConrady(t *testing.T) {
	bc, err := NewBrownConrady([]float64{0.1, 0.2, 0.3, 0.4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bc.RadialK1, test.ShouldEqual, 0.1)
	test.That(t, bc.RadialK2, test.ShouldEqual, 0.2)
	test.That(t, bc.TangentialP1, test.ShouldEqual, 0.3)
	test.That(t, bc.TangentialP2, test.ShouldEqual, 0.4)
	test.That(t, bc.RadialK3, test.ShouldEqual, 0.0)
	test.That(t, bc.Parameters(), test.ShouldResemble, []float64{0.1, 0.2, 0.3, 0.4})
	test.That(t, bc.ModelType(), test.ShouldEqual, BrownConradyDistortionType)

	// Trailing zero terms of the rational model are kept verbatim.
	bc, err = NewBrownConrady([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bc.RadialK3, test.ShouldEqual, 0.5)
	test.That(t, bc.Parameters(), test.ShouldHaveLength, 8)

	bc, err = NewBrownConrady([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bc.RadialK4, test.ShouldEqual, 0.6)
	test.That(t, bc.Parameters(), test.ShouldResemble, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	_, err = NewBrownConrady(make([]float64, 15))
	test.That(t, err, test.ShouldNotBeNil)

	empty, err := NewBrownConrady(nil)
	test.That(t, err, test.ShouldBeNil)
	x, y := empty.Transform(0.3, -0.2)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, -0.2)

	bc.RadialK1 = math.NaN()
	test.That(t, bc.CheckValid(), test.ShouldNotBeNil)
	var nilBC *BrownConrady
	test.That(t, nilBC.CheckValid(), test.ShouldNotBeNil)
}

func TestInverseBrownConrady(t *testing.T) {
	bc, err := NewBrownConrady([]float64{-0.28, 0.09, 0.0012, -0.0004, -0.01})
	test.That(t, err, test.ShouldBeNil)
	inv := bc.Inverse()
	test.That(t, inv.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)
	test.That(t, inv.Parameters(), test.ShouldResemble, bc.Parameters())
	test.That(t, inv.CheckValid(), test.ShouldBeNil)

	for _, pt := range [][2]float64{{0, 0}, {0.1, 0.2}, {-0.3, 0.25}, {0.4, -0.35}} {
		xd, yd := bc.Transform(pt[0], pt[1])
		xu, yu := inv.Transform(xd, yd)
		test.That(t, xu, test.ShouldAlmostEqual, pt[0], 1e-9)
		test.That(t, yu, test.ShouldAlmostEqual, pt[1], 1e-9)
	}

	fwd, ok := inv.(invertibleDistorter)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fwd.Inverse().Parameters(), test.ShouldResemble, bc.Parameters())
}

func TestBrownConradyParametersLength(t *testing.T) {
	test.That(t, (&BrownConrady{RadialK1: 0.1}).Parameters(), test.ShouldHaveLength, 5)
	test.That(t, (&BrownConrady{RadialK5: 0.1}).Parameters(), test.ShouldHaveLength, 8)
	test.That(t, (&BrownConrady{PrismS2: 0.1}).Parameters(), test.ShouldHaveLength, 12)
	test.That(t, (&BrownConrady{TiltY: 0.1}).Parameters(), test.ShouldHaveLength, 14)
}

func TestBrownConradyRationalModel(t *testing.T) {
	// With k4 = k1 the rational denominator cancels the first radial term.
	bc, err := NewBrownConrady([]float64{0.2, 0, 0, 0, 0, 0.2})
	test.That(t, err, test.ShouldBeNil)
	x, y := bc.Transform(0.3, -0.4)
	test.That(t, x, test.ShouldAlmostEqual, 0.3, 1e-15)
	test.That(t, y, test.ShouldAlmostEqual, -0.4, 1e-15)

	bc, err = NewBrownConrady([]float64{0.1, -0.2, 0.001, 0.002, 0.05, 0.01, -0.02, 0.003})
	test.That(t, err, test.ShouldBeNil)
	r2 := 0.2*0.2 + 0.1*0.1
	radial := (1 + 0.1*r2 - 0.2*r2*r2 + 0.05*r2*r2*r2) / (1 + 0.01*r2 - 0.02*r2*r2 + 0.003*r2*r2*r2)
	x, _ = bc.Transform(0.2, 0.1)
	test.That(t, x, test.ShouldAlmostEqual, 0.2*radial+2*0.001*0.2*0.1+0.002*(r2+2*0.2*0.2), 1e-15)
}

func TestInverseBrownConradyFullModel(t *testing.T) {
	for name, coeffs := range map[string][]float64{
		"rational": {0.1, -0.2, 0.001, 0.002, 0.05, 0.01, -0.02, 0.003},
		"prism":    {-0.1, 0.02, 0.001, -0.001, 0, 0, 0, 0, 0.002, -0.001, 0.003, 0.0005},
		"tilted":   {-0.1, 0.02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0.02, -0.03},
	} {
		t.Run(name, func(t *testing.T) {
			bc, err := NewBrownConrady(coeffs)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, bc.CheckValid(), test.ShouldBeNil)
			inv := bc.Inverse()
			test.That(t, inv.Parameters(), test.ShouldResemble, coeffs)
			for _, pt := range [][2]float64{{0, 0}, {0.1, 0.2}, {-0.3, 0.25}, {0.35, -0.3}} {
				xd, yd := bc.Transform(pt[0], pt[1])
				xu, yu := inv.Transform(xd, yd)
				test.That(t, xu, test.ShouldAlmostEqual, pt[0], 1e-9)
				test.That(t, yu, test.ShouldAlmostEqual, pt[1], 1e-9)
			}
		})
	}

	tilted, err := NewBrownConrady([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0.03})
	test.That(t, err, test.ShouldBeNil)
	x, _ := tilted.Transform(0.2, 0)
	test.That(t, x, test.ShouldNotAlmostEqual, 0.2, 1e-6)

	tilted.TiltX = math.Pi / 2
	test.That(t, tilted.CheckValid(), test.ShouldNotBeNil)
}

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(BrownConradyDistortionType, []float64{0.1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, BrownConradyDistortionType)

	d, err = NewDistorter(InverseBrownConradyDistortionType, []float64{0.1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)

	_, err = NewDistorter(DistortionType("fisheye"), nil)
	test.That(t, err, test.ShouldNotBeNil)
}
