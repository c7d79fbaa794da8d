//go:build withcv

package fiducial

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// cornerRefineSubpix selects sub-pixel corner refinement in the detector parameters.
const cornerRefineSubpix = 1

var dictionaryCodes = map[Dictionary]gocv.ArucoDictionaryCode{
	DictArucoOriginal: gocv.ArucoDictArucoOriginal,
	Dict4x4_50:        gocv.ArucoDict4x4_50,
	Dict4x4_100:       gocv.ArucoDict4x4_100,
	Dict4x4_250:       gocv.ArucoDict4x4_250,
	Dict4x4_1000:      gocv.ArucoDict4x4_1000,
	Dict5x5_50:        gocv.ArucoDict5x5_50,
	Dict5x5_100:       gocv.ArucoDict5x5_100,
	Dict5x5_250:       gocv.ArucoDict5x5_250,
	Dict5x5_1000:      gocv.ArucoDict5x5_1000,
	Dict6x6_50:        gocv.ArucoDict6x6_50,
	Dict6x6_100:       gocv.ArucoDict6x6_100,
	Dict6x6_250:       gocv.ArucoDict6x6_250,
	Dict6x6_1000:      gocv.ArucoDict6x6_1000,
	Dict7x7_50:        gocv.ArucoDict7x7_50,
	Dict7x7_100:       gocv.ArucoDict7x7_100,
	Dict7x7_250:       gocv.ArucoDict7x7_250,
	Dict7x7_1000:      gocv.ArucoDict7x7_1000,
}

type arucoDetector struct {
	detector gocv.ArucoDetector
}

// NewArucoDetector returns a Detector backed by OpenCV's ArUco module.
func NewArucoDetector(dictionary Dictionary, cfg DetectorConfig) (Detector, error) {
	code, ok := dictionaryCodes[dictionary]
	if !ok {
		return nil, errors.Errorf("unknown marker dictionary %q", dictionary)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid detector config")
	}
	return &arucoDetector{
		detector: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(code), toArucoParameters(cfg)),
	}, nil
}

func toArucoParameters(cfg DetectorConfig) gocv.ArucoDetectorParameters {
	params := gocv.NewArucoDetectorParameters()
	params.SetAdaptiveThreshWinSizeMin(cfg.AdaptiveThreshWinSizeMin)
	params.SetAdaptiveThreshWinSizeMax(cfg.AdaptiveThreshWinSizeMax)
	params.SetAdaptiveThreshWinSizeStep(cfg.AdaptiveThreshWinSizeStep)
	params.SetAdaptiveThreshConstant(cfg.AdaptiveThreshConstant)
	params.SetMinMarkerPerimeterRate(cfg.MinMarkerPerimeterRate)
	params.SetMaxMarkerPerimeterRate(cfg.MaxMarkerPerimeterRate)
	params.SetPolygonalApproxAccuracyRate(cfg.PolygonalApproxAccuracyRate)
	params.SetMinCornerDistanceRate(cfg.MinCornerDistanceRate)
	params.SetMinDistanceToBorder(cfg.MinDistanceToBorder)
	params.SetMinMarkerDistanceRate(cfg.MinMarkerDistanceRate)
	if cfg.DoCornerRefinement {
		params.SetCornerRefinementMethod(cornerRefineSubpix)
	}
	params.SetCornerRefinementWinSize(cfg.CornerRefinementWinSize)
	params.SetCornerRefinementMaxIterations(cfg.CornerRefinementMaxIterations)
	params.SetCornerRefinementMinAccuracy(cfg.CornerRefinementMinAccuracy)
	params.SetMarkerBorderBits(cfg.MarkerBorderBits)
	params.SetPerspectiveRemovePixelPerCell(cfg.PerspectiveRemovePixelPerCell)
	params.SetPerspectiveRemoveIgnoredMarginPerCell(cfg.PerspectiveRemoveIgnoredMarginPerCell)
	params.SetMaxErroneousBitsInBorderRate(cfg.MaxErroneousBitsInBorderRate)
	params.SetMinOtsuStdDev(cfg.MinOtsuStdDev)
	params.SetErrorCorrectionRate(cfg.ErrorCorrectionRate)
	return params
}

func (d *arucoDetector) Detect(ctx context.Context, img image.Image) ([]Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert frame for detection")
	}
	defer mat.Close()

	corners, ids, _ := d.detector.DetectMarkers(mat)
	markers := make([]Marker, 0, len(ids))
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		m := Marker{ID: id}
		for j, c := range corners[i] {
			m.Corners[j] = r2.Point{X: float64(c.X), Y: float64(c.Y)}
		}
		markers = append(markers, m)
	}
	return markers, nil
}

func (d *arucoDetector) Close() error {
	return d.detector.Close()
}
