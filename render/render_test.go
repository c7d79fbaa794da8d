package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/markerar/overlay"
	"go.viam.com/markerar/vision/fiducial"
)

func facingPoseView(depth float64) mgl64.Mat4 {
	pose := fiducial.MarkerPose{
		Rotation:    r3.Vector{X: math.Pi},
		Translation: r3.Vector{Z: depth},
	}
	return overlay.PoseToView(pose, overlay.DefaultUnitScale)
}

func TestPerspectiveFovLH(t *testing.T) {
	proj := PerspectiveFovLH(math.Pi/2, 2, 1, 101)
	test.That(t, proj.At(0, 0), test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, proj.At(1, 1), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, proj.At(2, 3), test.ShouldEqual, 1.0)

	// Near and far planes map to depth 0 and 1.
	near := mulRow(mgl64.Vec4{0, 0, 1, 1}, proj)
	far := mulRow(mgl64.Vec4{0, 0, 101, 1}, proj)
	test.That(t, near.Z()/near.W(), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, far.Z()/far.W(), test.ShouldAlmostEqual, 1, 1e-12)
}

func TestSceneProject(t *testing.T) {
	scene := NewScene(640, 480, 0, 0.75)
	test.That(t, scene.Camera.View, test.ShouldEqual, mgl64.Ident4())

	p, ok := scene.Project(mgl64.Vec3{0, 0, 5})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 320, 1e-9)
	test.That(t, p.Y, test.ShouldAlmostEqual, 240, 1e-9)

	// +Y is up on screen, +X is right.
	p, ok = scene.Project(mgl64.Vec3{1, 1, 5})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldBeGreaterThan, 320)
	test.That(t, p.Y, test.ShouldBeLessThan, 240)

	_, ok = scene.Project(mgl64.Vec3{0, 0, -5})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSceneFollowsMarkerView(t *testing.T) {
	scene := NewScene(640, 480, DefaultFieldOfViewY, 0.75)
	scene.Camera.View = facingPoseView(500)

	origin := scene.ToView(mgl64.Vec3{})
	test.That(t, origin.Z(), test.ShouldAlmostEqual, 5, 1e-9)
	p, ok := scene.Project(mgl64.Vec3{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 320, 1e-6)
	test.That(t, p.Y, test.ShouldAlmostEqual, 240, 1e-6)

	// The model's up axis points back at the camera for a marker facing it.
	up := scene.ToView(mgl64.Vec3{0, 1, 0})
	test.That(t, up.Z(), test.ShouldBeLessThan, origin.Z())
	test.That(t, scene.FaceShade(mgl64.Vec3{0, 1, 0}), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, scene.FaceShade(mgl64.Vec3{0, -1, 0}), test.ShouldAlmostEqual, scene.Light.Ambient, 1e-9)

	top := scene.Model.Faces[0]
	normal := faceNormal(&scene.Model, top).Normalize()
	test.That(t, normal.X(), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, normal.Y(), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, normal.Z(), test.ShouldAlmostEqual, 0, 1e-12)
}

func TestRecorder(t *testing.T) {
	scene := NewScene(0, 0, DefaultFieldOfViewY, 0.75)
	rec := NewRecorder(scene)
	test.That(t, rec.UploadBackground(nil), test.ShouldNotBeNil)

	bg := image.NewRGBA(image.Rect(0, 0, 64, 48))
	gray := color.RGBA{R: 90, G: 90, B: 90, A: 255}
	for i := 0; i < len(bg.Pix); i += 4 {
		bg.Pix[i], bg.Pix[i+1], bg.Pix[i+2], bg.Pix[i+3] = gray.R, gray.G, gray.B, gray.A
	}
	test.That(t, rec.UploadBackground(bg), test.ShouldBeNil)
	test.That(t, scene.Width, test.ShouldEqual, 64)
	test.That(t, scene.Height, test.ShouldEqual, 48)

	// The background is a copy.
	bg.Pix[0] = 0
	test.That(t, scene.Background.Pix[0], test.ShouldEqual, gray.R)

	// Behind the camera nothing is drawn.
	snap := rec.Snapshot()
	test.That(t, snap.Bounds(), test.ShouldResemble, image.Rect(0, 0, 64, 48))
	test.That(t, snap.RGBAAt(32, 24), test.ShouldResemble, gray)

	view := facingPoseView(500)
	rec.SetViewMatrix(view)
	test.That(t, rec.View(), test.ShouldEqual, view)
	snap = rec.Snapshot()
	test.That(t, snap.RGBAAt(32, 24), test.ShouldNotResemble, gray)
	test.That(t, snap.RGBAAt(0, 0), test.ShouldResemble, gray)

	views, uploads := rec.Counts()
	test.That(t, views, test.ShouldEqual, 1)
	test.That(t, uploads, test.ShouldEqual, 1)
	test.That(t, rec.Scene(), test.ShouldEqual, scene)
}

func TestDrawWithoutBackground(t *testing.T) {
	scene := NewScene(16, 16, DefaultFieldOfViewY, 0.75)
	img := Draw(scene)
	test.That(t, img.RGBAAt(8, 8), test.ShouldResemble, color.RGBA{A: 255})
}
