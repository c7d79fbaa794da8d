//go:build !withcv

package videosource

import (
	"context"

	"go.viam.com/markerar/logging"
	"go.viam.com/markerar/vision/fiducial"
)

// OpenCVConfig selects an OpenCV capture device.
type OpenCVConfig struct {
	Device    string
	Width     int
	Height    int
	FrameRate float64
}

// NewOpenCVCapture needs OpenCV, which this build does not include.
func NewOpenCVCapture(ctx context.Context, conf OpenCVConfig, logger logging.Logger) (Source, error) {
	return nil, fiducial.ErrOpenCVUnavailable
}
