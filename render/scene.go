// Package render draws the overlay: the latest camera frame as a background with a stand-in model
// placed by the view matrix on top of it.
//
// Matrices use the row vector convention of the overlay package. A world point p maps to clip
// space as [p 1] * View * Projection.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"

	"go.viam.com/markerar/utils"
)

// Projection defaults.
const (
	DefaultFieldOfViewY = math.Pi / 4
	DefaultNearPlane    = 1.0
	DefaultFarPlane     = 10000.0
)

// A Renderer consumes one view matrix and one background frame per tick.
type Renderer interface {
	SetViewMatrix(view mgl64.Mat4)
	UploadBackground(img image.Image) error
}

// Camera is the virtual camera.
type Camera struct {
	View       mgl64.Mat4
	Projection mgl64.Mat4
}

// Light is a directional light, given in view space.
type Light struct {
	Direction mgl64.Vec3
	Ambient   float64
}

// Model is a wireframe. Faces are optional and are filled and lit. EdgeColors, when set, has one
// entry per edge; nil entries use the default color.
type Model struct {
	Name       string
	Vertices   []mgl64.Vec3
	Edges      [][2]int
	EdgeColors []color.Color
	Faces      [][]int
}

// Scene holds everything a frame is drawn from. It is owned by whoever renders it and is not safe
// for concurrent use.
type Scene struct {
	Width, Height int
	Camera        Camera
	Light         Light
	Model         Model
	Background    *image.RGBA
}

// NewScene returns a scene of the given size with an identity view, the default projection for
// the given vertical field of view and the stand-in model of the given size.
func NewScene(width, height int, fovY, modelSize float64) *Scene {
	if fovY <= 0 {
		fovY = DefaultFieldOfViewY
	}
	aspect := 1.0
	if height > 0 {
		aspect = float64(width) / float64(height)
	}
	return &Scene{
		Width:  width,
		Height: height,
		Camera: Camera{
			View:       mgl64.Ident4(),
			Projection: PerspectiveFovLH(fovY, aspect, DefaultNearPlane, DefaultFarPlane),
		},
		Light: Light{Direction: mgl64.Vec3{0, 0, 1}, Ambient: 0.25},
		Model: StandInModel(modelSize),
	}
}

// PerspectiveFovLH is a left handed perspective projection for row vectors. Depth maps to [0, 1].
func PerspectiveFovLH(fovY, aspect, near, far float64) mgl64.Mat4 {
	yScale := 1 / math.Tan(fovY/2)
	xScale := yScale / aspect
	var m mgl64.Mat4
	m.Set(0, 0, xScale)
	m.Set(1, 1, yScale)
	m.Set(2, 2, far/(far-near))
	m.Set(2, 3, 1)
	m.Set(3, 2, -near*far/(far-near))
	return m
}

// mulRow returns the row vector v times m.
func mulRow(v mgl64.Vec4, m mgl64.Mat4) mgl64.Vec4 {
	return m.Transpose().Mul4x1(v)
}

// ToView maps a world point into view space.
func (s *Scene) ToView(p mgl64.Vec3) mgl64.Vec3 {
	return mulRow(p.Vec4(1), s.Camera.View).Vec3()
}

// Project maps a world point to pixel coordinates. The second return is false for points behind
// the camera or in front of the near plane.
func (s *Scene) Project(p mgl64.Vec3) (r2.Point, bool) {
	view := mulRow(p.Vec4(1), s.Camera.View)
	clip := mulRow(view, s.Camera.Projection)
	if clip.W() <= 1e-9 || clip.Z() < 0 {
		return r2.Point{}, false
	}
	ndcX, ndcY := clip.X()/clip.W(), clip.Y()/clip.W()
	return r2.Point{
		X: (ndcX + 1) / 2 * float64(s.Width),
		Y: (1 - ndcY) / 2 * float64(s.Height),
	}, true
}

// FaceShade is the Lambert brightness of a face with the given world normal, in [Ambient, 1].
func (s *Scene) FaceShade(normal mgl64.Vec3) float64 {
	rot := s.Camera.View.Mat3()
	n := rot.Transpose().Mul3x1(normal)
	if n.Len() == 0 || s.Light.Direction.Len() == 0 {
		return 1
	}
	// Faces turned toward the camera receive light travelling along -Direction.
	lambert := -n.Normalize().Dot(s.Light.Direction.Normalize())
	return utils.Clamp(s.Light.Ambient+(1-s.Light.Ambient)*lambert, s.Light.Ambient, 1)
}

// StandInModel is a box standing on the marker plane with size as its edge length, plus the three
// axes. Y is up.
func StandInModel(size float64) Model {
	h := size / 2
	return Model{
		Name: "box",
		Vertices: []mgl64.Vec3{
			{-h, 0, -h}, {h, 0, -h}, {h, 0, h}, {-h, 0, h},
			{-h, size, -h}, {h, size, -h}, {h, size, h}, {-h, size, h},
			{0, 0, 0}, {size, 0, 0}, {0, size * 1.5, 0}, {0, 0, size},
		},
		Edges: [][2]int{
			{0, 1}, {1, 2}, {2, 3}, {3, 0},
			{4, 5}, {5, 6}, {6, 7}, {7, 4},
			{0, 4}, {1, 5}, {2, 6}, {3, 7},
			{8, 9}, {8, 10}, {8, 11},
		},
		EdgeColors: []color.Color{
			nil, nil, nil, nil,
			nil, nil, nil, nil,
			nil, nil, nil, nil,
			axisX, axisY, axisZ,
		},
		Faces: [][]int{{7, 6, 5, 4}},
	}
}

// faceNormal returns the normal of a planar face from its first three vertices.
func faceNormal(m *Model, face []int) mgl64.Vec3 {
	if len(face) < 3 {
		return mgl64.Vec3{}
	}
	a, b, c := m.Vertices[face[0]], m.Vertices[face[1]], m.Vertices[face[2]]
	return b.Sub(a).Cross(c.Sub(a))
}
