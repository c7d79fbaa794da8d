// Package config defines the structures that configure the overlay application along with the
// loaders for camera calibration and detector parameter files.
package config

import (
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/markerar/logging"
	"go.viam.com/markerar/overlay"
	"go.viam.com/markerar/vision/fiducial"
)

// DefaultForceCornerRefinement turns sub-pixel corner refinement on after the detector parameters
// are loaded, whatever the file says. Set marker.force_corner_refinement to false to honor the file.
const DefaultForceCornerRefinement = true

// Defaults applied by Ensure.
const (
	DefaultMarkerLength   = 75.0
	DefaultFieldOfViewDeg = 45.0
	DefaultWindowWidth    = 640
	DefaultWindowHeight   = 480
	DefaultWindowTitle    = "markerar"
	DefaultTPS            = 30
)

// CameraBackend names a frame source implementation.
type CameraBackend string

// The known camera backends.
const (
	BackendWebcam CameraBackend = "webcam"
	BackendOpenCV CameraBackend = "opencv"
	BackendReplay CameraBackend = "replay"
)

// Config is the whole application configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Camera      CameraConfig      `json:"camera"`
	Calibration CalibrationConfig `json:"calibration"`
	Marker      MarkerConfig      `json:"marker"`
	View        ViewConfig        `json:"view"`
	Window      WindowConfig      `json:"window"`
	Log         LogConfig         `json:"log"`
}

// CameraConfig selects and configures the frame source.
type CameraConfig struct {
	Backend CameraBackend `json:"backend"`
	// Device is a webcam label or an OpenCV device index.
	Device    string  `json:"device,omitempty"`
	Path      string  `json:"path,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
	Loop      bool    `json:"loop,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *CameraConfig) Validate(path string) error {
	switch c.Backend {
	case BackendWebcam, BackendOpenCV:
	case BackendReplay:
		if c.Path == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "path")
		}
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "backend")
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown backend %q", c.Backend))
	}
	if c.Width < 0 || c.Height < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid size (%d, %d)", c.Width, c.Height))
	}
	if c.FrameRate < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("frame_rate must not be negative, got %v", c.FrameRate))
	}
	return nil
}

// CalibrationConfig points at the calibration files.
type CalibrationConfig struct {
	CameraParameters   string `json:"camera_parameters,omitempty"`
	DetectorParameters string `json:"detector_parameters,omitempty"`
}

// MarkerConfig describes the printed markers and how detections are turned into a view.
type MarkerConfig struct {
	Dictionary            string  `json:"dictionary,omitempty"`
	Length                float64 `json:"length,omitempty"`
	Selection             string  `json:"selection,omitempty"`
	ForceCornerRefinement *bool   `json:"force_corner_refinement,omitempty"`
	RefinePose            bool    `json:"refine_pose,omitempty"`
	// DetectionsFile replays recorded detections instead of running a detector.
	DetectionsFile string `json:"detections_file,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *MarkerConfig) Validate(path string) error {
	if _, err := fiducial.ParseDictionary(c.Dictionary); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.Length <= 0 || math.IsNaN(c.Length) || math.IsInf(c.Length, 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("length must be positive, got %v", c.Length))
	}
	if _, err := overlay.ParseSelectionPolicy(c.Selection); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// CornerRefinement is the corner refinement override to apply after loading detector parameters.
func (c *MarkerConfig) CornerRefinement() bool {
	if c.ForceCornerRefinement == nil {
		return DefaultForceCornerRefinement
	}
	return *c.ForceCornerRefinement
}

// ViewConfig controls how poses become view matrices.
type ViewConfig struct {
	UnitScale             float64 `json:"unit_scale,omitempty"`
	RejectDegeneratePoses *bool   `json:"reject_degenerate_poses,omitempty"`
	DrawDetections        bool    `json:"draw_detections,omitempty"`
	FieldOfViewDeg        float64 `json:"fov_degrees,omitempty"`
}

// RejectDegenerate reports whether non-finite poses are dropped. Defaults to true.
func (c *ViewConfig) RejectDegenerate() bool {
	return c.RejectDegeneratePoses == nil || *c.RejectDegeneratePoses
}

// Validate ensures all parts of the config are valid.
func (c *ViewConfig) Validate(path string) error {
	if c.UnitScale <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("unit_scale must be positive, got %v", c.UnitScale))
	}
	if c.FieldOfViewDeg <= 0 || c.FieldOfViewDeg >= 180 {
		return utils.NewConfigValidationError(path, errors.Errorf("fov_degrees must be in (0, 180), got %v", c.FieldOfViewDeg))
	}
	return nil
}

// WindowConfig configures the on screen window.
type WindowConfig struct {
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	TPS    int    `json:"tps,omitempty"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level string `json:"level,omitempty"`
	// File, when set, also writes JSON logs to a rotated file.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *LogConfig) Validate(path string) error {
	if c.Level == "" {
		return nil
	}
	if _, err := logging.LevelFromString(c.Level); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// NewLogger builds the logger described by the config. The returned func closes the log file, if
// any.
func (c *LogConfig) NewLogger(name string, debug bool) (logging.Logger, func() error, error) {
	level := logging.INFO
	if c.Level != "" {
		var err error
		if level, err = logging.LevelFromString(c.Level); err != nil {
			return nil, nil, err
		}
	}
	if debug {
		level = logging.DEBUG
	}
	if c.File == "" {
		logger := logging.NewLogger(name)
		logger.SetLevel(level)
		return logger, func() error { return nil }, nil
	}
	logger, closer := logging.NewFileLogger(name, level, logging.FileConfig{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	})
	return logger, closer, nil
}

// Ensure fills in defaults and validates every section.
func (c *Config) Ensure() error {
	c.applyDefaults()
	if err := c.Camera.Validate("camera"); err != nil {
		return err
	}
	if err := c.Marker.Validate("marker"); err != nil {
		return err
	}
	if err := c.View.Validate("view"); err != nil {
		return err
	}
	if err := c.Log.Validate("log"); err != nil {
		return err
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return utils.NewConfigValidationError("window",
			errors.Errorf("invalid size (%d, %d)", c.Window.Width, c.Window.Height))
	}
	if c.Marker.DetectionsFile != "" {
		if _, err := os.Stat(c.Marker.DetectionsFile); err != nil {
			return utils.NewConfigValidationError("marker", errors.Wrap(err, "detections_file"))
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Camera.Backend == "" {
		c.Camera.Backend = BackendWebcam
	}
	if c.Marker.Dictionary == "" {
		c.Marker.Dictionary = string(fiducial.DefaultDictionary)
	}
	if c.Marker.Length == 0 {
		c.Marker.Length = DefaultMarkerLength
	}
	if c.Marker.Selection == "" {
		c.Marker.Selection = overlay.DefaultSelectionPolicy().String()
	}
	if c.View.UnitScale == 0 {
		c.View.UnitScale = overlay.DefaultUnitScale
	}
	if c.View.FieldOfViewDeg == 0 {
		c.View.FieldOfViewDeg = DefaultFieldOfViewDeg
	}
	if c.Window.Title == "" {
		c.Window.Title = DefaultWindowTitle
	}
	if c.Window.Width == 0 {
		c.Window.Width = DefaultWindowWidth
	}
	if c.Window.Height == 0 {
		c.Window.Height = DefaultWindowHeight
	}
	if c.Window.TPS == 0 {
		c.Window.TPS = DefaultTPS
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf("camera=%s marker=%s/%v view_scale=%v", c.Camera.Backend, c.Marker.Dictionary, c.Marker.Length, c.View.UnitScale)
}
