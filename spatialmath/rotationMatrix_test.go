package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func TestNewRotationMatrix(t *testing.T) {
	_, err := NewRotationMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)

	rm, err := NewRotationMatrix([]float64{1, 0, 0, 0, 0, -1, 0, 1, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rm.At(1, 2), test.ShouldEqual, -1.0)
	test.That(t, rm.Row(2), test.ShouldResemble, r3.Vector{X: 0, Y: 1, Z: 0})
	test.That(t, rm.Col(2), test.ShouldResemble, r3.Vector{X: 0, Y: -1, Z: 0})

	_, err = NewRotationMatrixFromDense(mat.NewDense(2, 2, nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRodriguesKnownRotations(t *testing.T) {
	rm := RotationMatrixFromAxisAngle(r3.Vector{})
	test.That(t, rm.AlmostEqual(IdentityRotationMatrix(), 0), test.ShouldBeTrue)

	// +90 degrees about Z takes X to Y.
	rm = RotationMatrixFromAxisAngle(r3.Vector{X: 0, Y: 0, Z: math.Pi / 2})
	out := rm.MulVec(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, out.X, test.ShouldAlmostEqual, 0)
	test.That(t, out.Y, test.ShouldAlmostEqual, 1)
	test.That(t, out.Z, test.ShouldAlmostEqual, 0)

	// +90 degrees about X takes Y to Z.
	rm = RotationMatrixFromAxisAngle(r3.Vector{X: math.Pi / 2, Y: 0, Z: 0})
	out = rm.MulVec(r3.Vector{X: 0, Y: 1, Z: 0})
	test.That(t, out.Y, test.ShouldAlmostEqual, 0)
	test.That(t, out.Z, test.ShouldAlmostEqual, 1)
}

func TestRodriguesRoundTrip(t *testing.T) {
	for _, aa := range []r3.Vector{
		{X: 0.1, Y: 0.2, Z: 0.3},
		{X: -1.2, Y: 0.4, Z: 2.0},
		{X: 0, Y: 0, Z: 3.0},
		{X: 2.5, Y: -0.3, Z: 0.1},
		{X: 1e-4, Y: 0, Z: 0},
	} {
		rm := RotationMatrixFromAxisAngle(aa)
		test.That(t, rm.IsOrthonormal(1e-9), test.ShouldBeTrue)
		back := rm.AxisAngle()
		test.That(t, back.X, test.ShouldAlmostEqual, aa.X, 1e-9)
		test.That(t, back.Y, test.ShouldAlmostEqual, aa.Y, 1e-9)
		test.That(t, back.Z, test.ShouldAlmostEqual, aa.Z, 1e-9)
	}
}

func TestAxisAngleAtPi(t *testing.T) {
	for _, axis := range []r3.Vector{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 1, Y: -1, Z: 0}, {X: 0.2, Y: 0.3, Z: -0.9}} {
		aa := axis.Normalize().Mul(math.Pi)
		rm := RotationMatrixFromAxisAngle(aa)
		back := rm.AxisAngle()
		test.That(t, back.Norm(), test.ShouldAlmostEqual, math.Pi, 1e-12)
		// Both k*pi and -k*pi are the same rotation.
		test.That(t, RotationMatrixFromAxisAngle(back).AlmostEqual(rm, 1e-12), test.ShouldBeTrue)
	}
}

func TestAxisAngleNearPi(t *testing.T) {
	for _, axis := range []r3.Vector{{X: 1, Y: 0, Z: 0}, {X: 0, Y: -1, Z: 0}, {X: 1, Y: -1, Z: 0.5}, {X: 0.2, Y: 0.3, Z: -0.9}, {X: -0.6, Y: 0.1, Z: 0.3}} {
		for _, eps := range []float64{1e-2, 1e-4, 1e-5, 1e-6, 1e-8, 1e-10} {
			aa := axis.Normalize().Mul(math.Pi - eps)
			back := RotationMatrixFromAxisAngle(aa).AxisAngle()
			test.That(t, back.X, test.ShouldAlmostEqual, aa.X, 1e-12)
			test.That(t, back.Y, test.ShouldAlmostEqual, aa.Y, 1e-12)
			test.That(t, back.Z, test.ShouldAlmostEqual, aa.Z, 1e-12)
		}
	}
}

func TestTransposeIsInverse(t *testing.T) {
	rm := RotationMatrixFromAxisAngle(r3.Vector{X: 0.3, Y: -0.7, Z: 1.1})
	test.That(t, rm.Transpose().Transpose().AlmostEqual(rm, 0), test.ShouldBeTrue)
	test.That(t, rm.Mul(rm.Transpose()).AlmostEqual(IdentityRotationMatrix(), 1e-12), test.ShouldBeTrue)
	test.That(t, rm.Det(), test.ShouldAlmostEqual, 1)
}

func TestQuaternionAgreement(t *testing.T) {
	aa := r3.Vector{X: 0.4, Y: 0.1, Z: -0.6}
	rm := RotationMatrixFromAxisAngle(aa)
	q := R3ToR4(aa).ToQuat()
	test.That(t, QuatToRotationMatrix(q).AlmostEqual(rm, 1e-12), test.ShouldBeTrue)

	q2 := rm.Quaternion()
	test.That(t, quat.Abs(q2), test.ShouldAlmostEqual, 1)
	test.That(t, QuatToRotationMatrix(q2).AlmostEqual(rm, 1e-12), test.ShouldBeTrue)
}

func TestNearestRotation(t *testing.T) {
	rm := RotationMatrixFromAxisAngle(r3.Vector{X: 0.2, Y: 0.5, Z: -0.1})
	noisy := rm.Dense()
	noisy.Set(0, 0, noisy.At(0, 0)+0.01)
	noisy.Set(1, 2, noisy.At(1, 2)-0.02)
	noisy.Scale(3, noisy)

	fixed, err := NearestRotation(noisy)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fixed.IsOrthonormal(1e-9), test.ShouldBeTrue)
	test.That(t, fixed.AlmostEqual(rm, 0.02), test.ShouldBeTrue)

	// A reflection is mapped to a proper rotation.
	reflect := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, -1})
	fixed, err = NearestRotation(reflect)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fixed.Det(), test.ShouldAlmostEqual, 1)
}

func TestR4AA(t *testing.T) {
	r4 := R3ToR4(r3.Vector{})
	test.That(t, *r4, test.ShouldResemble, R4AA{0, 0, 0, 1})

	r4 = R3ToR4(r3.Vector{X: 0, Y: 2, Z: 0})
	test.That(t, r4.Theta, test.ShouldAlmostEqual, 2)
	test.That(t, r4.RY, test.ShouldAlmostEqual, 1)
	test.That(t, r4.ToR3(), test.ShouldResemble, r3.Vector{X: 0, Y: 2, Z: 0})
	test.That(t, r4.RotationMatrix().AlmostEqual(RotationMatrixFromAxisAngle(r3.Vector{X: 0, Y: 2, Z: 0}), 1e-12), test.ShouldBeTrue)

	unnormalized := &R4AA{Theta: 1, RX: 0, RY: 0, RZ: 0}
	unnormalized.Normalize()
	test.That(t, unnormalized.RZ, test.ShouldEqual, 1.0)
}
