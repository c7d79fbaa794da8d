package inject

import (
	"image"

	"github.com/go-gl/mathgl/mgl64"

	"go.viam.com/markerar/render"
)

// Renderer is an injected renderer.
type Renderer struct {
	render.Renderer
	SetViewMatrixFunc    func(view mgl64.Mat4)
	UploadBackgroundFunc func(img image.Image) error
}

// SetViewMatrix calls the injected SetViewMatrix or the real version.
func (r *Renderer) SetViewMatrix(view mgl64.Mat4) {
	if r.SetViewMatrixFunc == nil {
		r.Renderer.SetViewMatrix(view)
		return
	}
	r.SetViewMatrixFunc(view)
}

// UploadBackground calls the injected UploadBackground or the real version.
func (r *Renderer) UploadBackground(img image.Image) error {
	if r.UploadBackgroundFunc == nil {
		return r.Renderer.UploadBackground(img)
	}
	return r.UploadBackgroundFunc(img)
}
