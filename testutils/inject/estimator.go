package inject

import (
	"go.viam.com/markerar/rimage/transform"
	"go.viam.com/markerar/vision/fiducial"
)

// Estimator is an injected pose estimator.
type Estimator struct {
	fiducial.PoseEstimator
	EstimatePosesFunc func(
		markers []fiducial.Marker,
		markerLength float64,
		model *transform.PinholeCameraModel,
	) ([]fiducial.MarkerPose, error)
}

// EstimatePoses calls the injected EstimatePoses or the real version.
func (e *Estimator) EstimatePoses(
	markers []fiducial.Marker,
	markerLength float64,
	model *transform.PinholeCameraModel,
) ([]fiducial.MarkerPose, error) {
	if e.EstimatePosesFunc == nil {
		return e.PoseEstimator.EstimatePoses(markers, markerLength, model)
	}
	return e.EstimatePosesFunc(markers, markerLength, model)
}
