package transform

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func testModel(t *testing.T) *PinholeCameraModel {
	t.Helper()
	intrinsics, err := NewPinholeCameraIntrinsicsFromMatrix([]float64{
		600, 0, 320,
		0, 610, 240,
		0, 0, 1,
	})
	test.That(t, err, test.ShouldBeNil)
	distortion, err := NewBrownConrady([]float64{0.1, -0.05, 0.001, -0.002, 0.01})
	test.That(t, err, test.ShouldBeNil)
	return &PinholeCameraModel{PinholeCameraIntrinsics: intrinsics, Distortion: distortion}
}

func TestIntrinsicsFromMatrix(t *testing.T) {
	intrinsics, err := NewPinholeCameraIntrinsicsFromMatrix([]float64{500, 1.5, 300, 0, 510, 200, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intrinsics.Fx, test.ShouldEqual, 500.0)
	test.That(t, intrinsics.Skew, test.ShouldEqual, 1.5)
	test.That(t, intrinsics.Fy, test.ShouldEqual, 510.0)
	test.That(t, intrinsics.Ppx, test.ShouldEqual, 300.0)
	test.That(t, intrinsics.Ppy, test.ShouldEqual, 200.0)
	test.That(t, intrinsics.CameraMatrixData(), test.ShouldResemble, []float64{500, 1.5, 300, 0, 510, 200, 0, 0, 1})
	test.That(t, intrinsics.GetCameraMatrix().At(1, 2), test.ShouldEqual, 200.0)

	_, err = NewPinholeCameraIntrinsicsFromMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPinholeCameraIntrinsicsFromMatrix([]float64{500, 0, 300, 0, 510, 200, 0, 0, 2})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIntrinsicsCheckValid(t *testing.T) {
	var nilIntrinsics *PinholeCameraIntrinsics
	err := nilIntrinsics.CheckValid()
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)

	intrinsics := &PinholeCameraIntrinsics{Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}
	test.That(t, intrinsics.CheckValid(), test.ShouldBeNil)

	intrinsics.Width = 640
	err = intrinsics.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Invalid size")
	intrinsics.Height = 480
	test.That(t, intrinsics.CheckValid(), test.ShouldBeNil)

	intrinsics.Fx = 0
	test.That(t, errors.Is(intrinsics.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)

	var nilModel *PinholeCameraModel
	test.That(t, errors.Is(nilModel.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)
	test.That(t, testModel(t).CheckValid(), test.ShouldBeNil)
}

func TestPixelNormalizedRoundTrip(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Fx: 500, Fy: 480, Ppx: 320, Ppy: 240, Skew: 2}
	x, y := intrinsics.PixelToNormalized(400, 100)
	u, v := intrinsics.NormalizedToPixel(x, y)
	test.That(t, u, test.ShouldAlmostEqual, 400)
	test.That(t, v, test.ShouldAlmostEqual, 100)
}

func TestProjectAndUndistort(t *testing.T) {
	model := testModel(t)
	pt := r3.Vector{X: 12, Y: -7, Z: 90}
	px, ok := model.ProjectPoint(pt)
	test.That(t, ok, test.ShouldBeTrue)

	ray := model.UndistortPixel(px)
	test.That(t, ray.X, test.ShouldAlmostEqual, pt.X/pt.Z, 1e-9)
	test.That(t, ray.Y, test.ShouldAlmostEqual, pt.Y/pt.Z, 1e-9)

	_, ok = model.ProjectPoint(r3.Vector{X: 1, Y: 1, Z: -1})
	test.That(t, ok, test.ShouldBeFalse)

	noDistortion := &PinholeCameraModel{PinholeCameraIntrinsics: model.PinholeCameraIntrinsics}
	px, ok = noDistortion.ProjectPoint(r3.Vector{Z: 10})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, px, test.ShouldResemble, r2.Point{X: 320, Y: 240})
	test.That(t, math.IsNaN(noDistortion.UndistortPixel(px).X), test.ShouldBeFalse)
}
