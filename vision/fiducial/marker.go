// Package fiducial finds square fiducial markers in camera frames and estimates where they are
// relative to the camera.
package fiducial

import (
	"context"
	"image"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrOpenCVUnavailable is returned by detectors that need OpenCV in binaries built without the
// withcv tag.
var ErrOpenCVUnavailable = errors.New("OpenCV support was not compiled in (build with -tags withcv)")

// Marker is one marker found in a frame. Corners are in pixels, ordered top left, top right,
// bottom right, bottom left in the marker's own frame.
type Marker struct {
	ID      int         `json:"id"`
	Corners [4]r2.Point `json:"corners"`
}

// MarkerPose is a marker's position in the camera frame. Rotation is an axis-angle vector in
// radians. Translation is in the same unit as the marker length.
type MarkerPose struct {
	ID          int       `json:"id"`
	Rotation    r3.Vector `json:"rotation"`
	Translation r3.Vector `json:"translation"`
}

// A Detector finds markers in images.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Marker, error)
	Close() error
}

// ObjectPoints returns the marker's corners in its own frame, centered on the marker with Z
// pointing out of the printed face, in the same order as Marker.Corners.
func ObjectPoints(markerLength float64) [4]r3.Vector {
	half := markerLength / 2
	return [4]r3.Vector{
		{X: -half, Y: half, Z: 0},
		{X: half, Y: half, Z: 0},
		{X: half, Y: -half, Z: 0},
		{X: -half, Y: -half, Z: 0},
	}
}

// Dictionary names a predefined marker dictionary.
type Dictionary string

// The predefined dictionaries.
const (
	DictArucoOriginal Dictionary = "ARUCO_ORIGINAL"
	Dict4x4_50        Dictionary = "4X4_50"
	Dict4x4_100       Dictionary = "4X4_100"
	Dict4x4_250       Dictionary = "4X4_250"
	Dict4x4_1000      Dictionary = "4X4_1000"
	Dict5x5_50        Dictionary = "5X5_50"
	Dict5x5_100       Dictionary = "5X5_100"
	Dict5x5_250       Dictionary = "5X5_250"
	Dict5x5_1000      Dictionary = "5X5_1000"
	Dict6x6_50        Dictionary = "6X6_50"
	Dict6x6_100       Dictionary = "6X6_100"
	Dict6x6_250       Dictionary = "6X6_250"
	Dict6x6_1000      Dictionary = "6X6_1000"
	Dict7x7_50        Dictionary = "7X7_50"
	Dict7x7_100       Dictionary = "7X7_100"
	Dict7x7_250       Dictionary = "7X7_250"
	Dict7x7_1000      Dictionary = "7X7_1000"
)

// DefaultDictionary is used when none is configured.
const DefaultDictionary = DictArucoOriginal

var knownDictionaries = []Dictionary{
	DictArucoOriginal,
	Dict4x4_50, Dict4x4_100, Dict4x4_250, Dict4x4_1000,
	Dict5x5_50, Dict5x5_100, Dict5x5_250, Dict5x5_1000,
	Dict6x6_50, Dict6x6_100, Dict6x6_250, Dict6x6_1000,
	Dict7x7_50, Dict7x7_100, Dict7x7_250, Dict7x7_1000,
}

// ParseDictionary accepts a dictionary name in any case, with or without a DICT_ prefix.
// An empty name is the default dictionary.
func ParseDictionary(name string) (Dictionary, error) {
	if name == "" {
		return DefaultDictionary, nil
	}
	norm := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "DICT_")
	for _, d := range knownDictionaries {
		if string(d) == norm {
			return d, nil
		}
	}
	return "", errors.Errorf("unknown marker dictionary %q", name)
}
