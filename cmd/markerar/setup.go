package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/markerar/components/camera/videosource"
	"go.viam.com/markerar/config"
	"go.viam.com/markerar/frameloop"
	"go.viam.com/markerar/logging"
	"go.viam.com/markerar/overlay"
	"go.viam.com/markerar/render"
	"go.viam.com/markerar/rimage/transform"
	"go.viam.com/markerar/vision/fiducial"
)

// newLoop acquires the camera and the detector and wires them to renderer. Failing to open the
// camera is fatal.
func newLoop(ctx context.Context, cfg *config.Config, renderer render.Renderer, logger logging.Logger) (*frameloop.Loop, error) {
	model, err := loadCameraModel(cfg.Calibration, logger)
	if err != nil {
		return nil, err
	}
	policy, err := overlay.ParseSelectionPolicy(cfg.Marker.Selection)
	if err != nil {
		return nil, err
	}

	source, err := newSource(ctx, cfg.Camera, logger.Sublogger("camera"))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s camera", cfg.Camera.Backend)
	}
	detector, err := newDetector(cfg, logger)
	if err != nil {
		return nil, multierr.Combine(err, source.Close(ctx))
	}

	return &frameloop.Loop{
		Source:    source,
		Detector:  detector,
		Estimator: &fiducial.PlanarPoseEstimator{Refine: cfg.Marker.RefinePose},
		Model:     model,
		Tracker: overlay.NewTracker(logger.Sublogger("tracker"),
			overlay.WithSelectionPolicy(policy),
			overlay.WithRejectDegenerate(cfg.View.RejectDegenerate()),
		),
		Renderer:       renderer,
		MarkerLength:   cfg.Marker.Length,
		UnitScale:      cfg.View.UnitScale,
		DrawDetections: cfg.View.DrawDetections,
		Logger:         logger,
	}, nil
}

func newSource(ctx context.Context, conf config.CameraConfig, logger logging.Logger) (videosource.Source, error) {
	switch conf.Backend {
	case config.BackendWebcam:
		return videosource.NewWebcam(ctx, videosource.WebcamConfig{
			Path:      conf.Device,
			Width:     conf.Width,
			Height:    conf.Height,
			FrameRate: float32(conf.FrameRate),
		}, logger)
	case config.BackendOpenCV:
		device := conf.Device
		if device == "" {
			device = conf.Path
		}
		if device == "" {
			device = "0"
		}
		return videosource.NewOpenCVCapture(ctx, videosource.OpenCVConfig{
			Device:    device,
			Width:     conf.Width,
			Height:    conf.Height,
			FrameRate: conf.FrameRate,
		}, logger)
	case config.BackendReplay:
		return videosource.NewReplaySource(videosource.ReplayConfig{
			Dir:    conf.Path,
			Loop:   conf.Loop,
			Width:  conf.Width,
			Height: conf.Height,
		})
	default:
		return nil, errors.Errorf("unknown camera backend %q", conf.Backend)
	}
}

// newDetector replays recorded detections when a file is configured and otherwise builds an ArUco
// detector. Missing detector parameters fall back to the defaults.
func newDetector(cfg *config.Config, logger logging.Logger) (fiducial.Detector, error) {
	if cfg.Marker.DetectionsFile != "" {
		logger.Infow("replaying recorded detections", "file", cfg.Marker.DetectionsFile)
		recorded, err := fiducial.NewRecordedDetectorFromFile(cfg.Marker.DetectionsFile, cfg.Camera.Loop)
		if err != nil {
			return nil, err
		}
		return recorded, nil
	}

	params, err := detectorParams(cfg, logger)
	if err != nil {
		return nil, err
	}
	dict, err := fiducial.ParseDictionary(cfg.Marker.Dictionary)
	if err != nil {
		return nil, err
	}
	return fiducial.NewArucoDetector(dict, params)
}

// detectorParams loads the detector parameter file, falling back to defaults when it is missing.
// Forced corner refinement only ever turns refinement on; otherwise the file's setting stands.
func detectorParams(cfg *config.Config, logger logging.Logger) (fiducial.DetectorConfig, error) {
	params := fiducial.DefaultDetectorConfig()
	if path := cfg.Calibration.DetectorParameters; path != "" {
		loaded, err := config.LoadDetectorConfig(path)
		switch {
		case err == nil:
			params = *loaded
		case errors.Is(err, config.ErrConfigUnavailable):
			logger.Warnw("detector parameters unavailable, using defaults", "error", err)
		default:
			return fiducial.DetectorConfig{}, err
		}
	}
	if cfg.Marker.CornerRefinement() {
		params = params.WithCornerRefinement(true)
	}
	return params, nil
}

// loadCameraModel returns nil without error when no calibration is usable, which disables pose
// estimation.
func loadCameraModel(conf config.CalibrationConfig, logger logging.Logger) (*transform.PinholeCameraModel, error) {
	if conf.CameraParameters == "" {
		return nil, nil
	}
	model, err := config.LoadCameraParameters(conf.CameraParameters)
	if err != nil {
		if errors.Is(err, config.ErrConfigUnavailable) {
			logger.Warnw("camera parameters unavailable, poses will not be estimated", "error", err)
			return nil, nil
		}
		return nil, err
	}
	logger.Infow("loaded camera parameters",
		"path", conf.CameraParameters,
		"width", model.Width,
		"height", model.Height,
		"fx", model.Fx,
		"fy", model.Fy,
	)
	return model, nil
}
