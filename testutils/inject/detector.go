package inject

import (
	"context"
	"image"

	"go.viam.com/markerar/vision/fiducial"
)

// Detector is an injected marker detector.
type Detector struct {
	fiducial.Detector
	DetectFunc func(ctx context.Context, img image.Image) ([]fiducial.Marker, error)
	CloseFunc  func() error
}

// Detect calls the injected Detect or the real version.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]fiducial.Marker, error) {
	if d.DetectFunc == nil {
		return d.Detector.Detect(ctx, img)
	}
	return d.DetectFunc(ctx, img)
}

// Close calls the injected Close or the real version.
func (d *Detector) Close() error {
	if d.CloseFunc == nil {
		if d.Detector == nil {
			return nil
		}
		return d.Detector.Close()
	}
	return d.CloseFunc()
}
