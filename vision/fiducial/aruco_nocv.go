//go:build !withcv

package fiducial

// NewArucoDetector needs OpenCV; this build does not have it.
func NewArucoDetector(dictionary Dictionary, cfg DetectorConfig) (Detector, error) {
	return nil, ErrOpenCVUnavailable
}
