package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/markerar/rimage"
)

var (
	edgeColor = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	axisX     = color.RGBA{R: 255, A: 255}
	axisY     = color.RGBA{G: 255, A: 255}
	axisZ     = color.RGBA{B: 255, A: 255}
)

// Recorder is a Renderer that keeps the scene in memory and draws it on demand.
type Recorder struct {
	scene   *Scene
	views   int
	uploads int
}

// NewRecorder returns a renderer for scene.
func NewRecorder(scene *Scene) *Recorder {
	return &Recorder{scene: scene}
}

// SetViewMatrix sets the camera's view matrix.
func (r *Recorder) SetViewMatrix(view mgl64.Mat4) {
	r.scene.Camera.View = view
	r.views++
}

// UploadBackground copies img into the scene, scaled to the scene size.
func (r *Recorder) UploadBackground(img image.Image) error {
	if img == nil {
		return errors.New("no background image")
	}
	if r.scene.Width <= 0 || r.scene.Height <= 0 {
		b := img.Bounds()
		r.scene.Width, r.scene.Height = b.Dx(), b.Dy()
	}
	r.scene.Background = rimage.Resize(img, r.scene.Width, r.scene.Height)
	r.uploads++
	return nil
}

// Scene returns the scene being drawn.
func (r *Recorder) Scene() *Scene {
	return r.scene
}

// View returns the last view matrix set.
func (r *Recorder) View() mgl64.Mat4 {
	return r.scene.Camera.View
}

// Counts returns how many view matrices and backgrounds were received.
func (r *Recorder) Counts() (views, uploads int) {
	return r.views, r.uploads
}

// Snapshot draws the current scene.
func (r *Recorder) Snapshot() *image.RGBA {
	return Draw(r.scene)
}

// Draw composites the model over the background. Edges with an end behind the camera are skipped.
func Draw(s *Scene) *image.RGBA {
	dc := gg.NewContext(s.Width, s.Height)
	if s.Background != nil {
		dc.DrawImage(s.Background, 0, 0)
	} else {
		dc.SetColor(color.Black)
		dc.Clear()
	}

	projected := make([]r2.Point, len(s.Model.Vertices))
	visible := make([]bool, len(s.Model.Vertices))
	for i, v := range s.Model.Vertices {
		projected[i], visible[i] = s.Project(v)
	}

	for _, face := range s.Model.Faces {
		pts := make([]r2.Point, 0, len(face))
		for _, idx := range face {
			if !visible[idx] {
				pts = nil
				break
			}
			pts = append(pts, projected[idx])
		}
		if len(pts) < 3 {
			continue
		}
		shade := s.FaceShade(faceNormal(&s.Model, face))
		dc.SetColor(color.RGBA{
			R: uint8(float64(edgeColor.R) * shade),
			G: uint8(float64(edgeColor.G) * shade),
			B: uint8(float64(edgeColor.B) * shade),
			A: 160,
		})
		dc.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		dc.Fill()
	}

	for i, e := range s.Model.Edges {
		if !visible[e[0]] || !visible[e[1]] {
			continue
		}
		c := color.Color(edgeColor)
		if i < len(s.Model.EdgeColors) && s.Model.EdgeColors[i] != nil {
			c = s.Model.EdgeColors[i]
		}
		rimage.DrawSegment(dc, projected[e[0]], projected[e[1]], c, 2)
	}

	out, ok := dc.Image().(*image.RGBA)
	if !ok {
		return rimage.ToRGBA(dc.Image())
	}
	return out
}
