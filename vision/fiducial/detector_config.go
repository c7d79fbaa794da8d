package fiducial

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DetectorConfig holds the thresholds that control marker detection. Field names follow the keys
// of a detector parameter file.
type DetectorConfig struct {
	AdaptiveThreshWinSizeMin              int     `json:"adaptiveThreshWinSizeMin" yaml:"adaptiveThreshWinSizeMin"`
	AdaptiveThreshWinSizeMax              int     `json:"adaptiveThreshWinSizeMax" yaml:"adaptiveThreshWinSizeMax"`
	AdaptiveThreshWinSizeStep             int     `json:"adaptiveThreshWinSizeStep" yaml:"adaptiveThreshWinSizeStep"`
	AdaptiveThreshConstant                float64 `json:"adaptiveThreshConstant" yaml:"adaptiveThreshConstant"`
	MinMarkerPerimeterRate                float64 `json:"minMarkerPerimeterRate" yaml:"minMarkerPerimeterRate"`
	MaxMarkerPerimeterRate                float64 `json:"maxMarkerPerimeterRate" yaml:"maxMarkerPerimeterRate"`
	PolygonalApproxAccuracyRate           float64 `json:"polygonalApproxAccuracyRate" yaml:"polygonalApproxAccuracyRate"`
	MinCornerDistanceRate                 float64 `json:"minCornerDistanceRate" yaml:"minCornerDistanceRate"`
	MinDistanceToBorder                   int     `json:"minDistanceToBorder" yaml:"minDistanceToBorder"`
	MinMarkerDistanceRate                 float64 `json:"minMarkerDistanceRate" yaml:"minMarkerDistanceRate"`
	DoCornerRefinement                    Flag    `json:"doCornerRefinement" yaml:"doCornerRefinement"`
	CornerRefinementWinSize               int     `json:"cornerRefinementWinSize" yaml:"cornerRefinementWinSize"`
	CornerRefinementMaxIterations         int     `json:"cornerRefinementMaxIterations" yaml:"cornerRefinementMaxIterations"`
	CornerRefinementMinAccuracy           float64 `json:"cornerRefinementMinAccuracy" yaml:"cornerRefinementMinAccuracy"`
	MarkerBorderBits                      int     `json:"markerBorderBits" yaml:"markerBorderBits"`
	PerspectiveRemovePixelPerCell         int     `json:"perspectiveRemovePixelPerCell" yaml:"perspectiveRemovePixelPerCell"`
	PerspectiveRemoveIgnoredMarginPerCell float64 `json:"perspectiveRemoveIgnoredMarginPerCell" yaml:"perspectiveRemoveIgnoredMarginPerCell"`
	MaxErroneousBitsInBorderRate          float64 `json:"maxErroneousBitsInBorderRate" yaml:"maxErroneousBitsInBorderRate"`
	MinOtsuStdDev                         float64 `json:"minOtsuStdDev" yaml:"minOtsuStdDev"`
	ErrorCorrectionRate                   float64 `json:"errorCorrectionRate" yaml:"errorCorrectionRate"`
}

// DefaultDetectorConfig returns the detection library's own defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		AdaptiveThreshWinSizeMin:              3,
		AdaptiveThreshWinSizeMax:              23,
		AdaptiveThreshWinSizeStep:             10,
		AdaptiveThreshConstant:                7,
		MinMarkerPerimeterRate:                0.03,
		MaxMarkerPerimeterRate:                4,
		PolygonalApproxAccuracyRate:           0.03,
		MinCornerDistanceRate:                 0.05,
		MinDistanceToBorder:                   3,
		MinMarkerDistanceRate:                 0.05,
		DoCornerRefinement:                    false,
		CornerRefinementWinSize:               5,
		CornerRefinementMaxIterations:         30,
		CornerRefinementMinAccuracy:           0.1,
		MarkerBorderBits:                      1,
		PerspectiveRemovePixelPerCell:         4,
		PerspectiveRemoveIgnoredMarginPerCell: 0.13,
		MaxErroneousBitsInBorderRate:          0.35,
		MinOtsuStdDev:                         5,
		ErrorCorrectionRate:                   0.6,
	}
}

// WithCornerRefinement returns a copy with the corner refinement toggle set to enabled.
func (cfg DetectorConfig) WithCornerRefinement(enabled bool) DetectorConfig {
	cfg.DoCornerRefinement = Flag(enabled)
	return cfg
}

// Validate reports every field that the detector would reject.
func (cfg *DetectorConfig) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = multierr.Append(errs, errors.Errorf(format, args...))
		}
	}
	check(cfg.AdaptiveThreshWinSizeMin >= 3, "adaptiveThreshWinSizeMin must be at least 3, got %d", cfg.AdaptiveThreshWinSizeMin)
	check(cfg.AdaptiveThreshWinSizeMax >= cfg.AdaptiveThreshWinSizeMin,
		"adaptiveThreshWinSizeMax (%d) must not be below adaptiveThreshWinSizeMin (%d)",
		cfg.AdaptiveThreshWinSizeMax, cfg.AdaptiveThreshWinSizeMin)
	check(cfg.AdaptiveThreshWinSizeStep > 0, "adaptiveThreshWinSizeStep must be positive, got %d", cfg.AdaptiveThreshWinSizeStep)
	check(cfg.MinMarkerPerimeterRate > 0 && cfg.MaxMarkerPerimeterRate > 0,
		"marker perimeter rates must be positive, got min %v max %v", cfg.MinMarkerPerimeterRate, cfg.MaxMarkerPerimeterRate)
	check(cfg.MinMarkerPerimeterRate <= cfg.MaxMarkerPerimeterRate,
		"minMarkerPerimeterRate (%v) must not exceed maxMarkerPerimeterRate (%v)",
		cfg.MinMarkerPerimeterRate, cfg.MaxMarkerPerimeterRate)
	check(cfg.PolygonalApproxAccuracyRate > 0, "polygonalApproxAccuracyRate must be positive, got %v", cfg.PolygonalApproxAccuracyRate)
	check(cfg.MinCornerDistanceRate >= 0, "minCornerDistanceRate must not be negative, got %v", cfg.MinCornerDistanceRate)
	check(cfg.MinDistanceToBorder >= 0, "minDistanceToBorder must not be negative, got %d", cfg.MinDistanceToBorder)
	check(cfg.MinMarkerDistanceRate >= 0, "minMarkerDistanceRate must not be negative, got %v", cfg.MinMarkerDistanceRate)
	check(cfg.CornerRefinementWinSize > 0, "cornerRefinementWinSize must be positive, got %d", cfg.CornerRefinementWinSize)
	check(cfg.CornerRefinementMaxIterations > 0,
		"cornerRefinementMaxIterations must be positive, got %d", cfg.CornerRefinementMaxIterations)
	check(cfg.CornerRefinementMinAccuracy > 0, "cornerRefinementMinAccuracy must be positive, got %v", cfg.CornerRefinementMinAccuracy)
	check(cfg.MarkerBorderBits > 0, "markerBorderBits must be positive, got %d", cfg.MarkerBorderBits)
	check(cfg.PerspectiveRemovePixelPerCell > 0,
		"perspectiveRemovePixelPerCell must be positive, got %d", cfg.PerspectiveRemovePixelPerCell)
	check(cfg.PerspectiveRemoveIgnoredMarginPerCell >= 0 && cfg.PerspectiveRemoveIgnoredMarginPerCell < 0.5,
		"perspectiveRemoveIgnoredMarginPerCell must be in [0, 0.5), got %v", cfg.PerspectiveRemoveIgnoredMarginPerCell)
	check(cfg.MaxErroneousBitsInBorderRate >= 0 && cfg.MaxErroneousBitsInBorderRate <= 1,
		"maxErroneousBitsInBorderRate must be in [0, 1], got %v", cfg.MaxErroneousBitsInBorderRate)
	check(cfg.MinOtsuStdDev >= 0, "minOtsuStdDev must not be negative, got %v", cfg.MinOtsuStdDev)
	check(cfg.ErrorCorrectionRate >= 0 && cfg.ErrorCorrectionRate <= 1,
		"errorCorrectionRate must be in [0, 1], got %v", cfg.ErrorCorrectionRate)
	return errs
}

// Flag is a boolean that also accepts the 0 and 1 integers that parameter files often store
// booleans as.
type Flag bool

// UnmarshalYAML accepts true/false or an integer.
func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	return f.parse(value.Value)
}

// UnmarshalJSON accepts true/false or an integer.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
		return nil
	case float64:
		*f = v != 0
		return nil
	case string:
		return f.parse(v)
	default:
		return errors.Errorf("cannot use %s as a flag", string(data))
	}
}

func (f *Flag) parse(s string) error {
	if b, err := strconv.ParseBool(s); err == nil {
		*f = Flag(b)
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Errorf("cannot use %q as a flag", s)
	}
	*f = n != 0
	return nil
}
