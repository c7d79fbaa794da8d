package videosource

import (
	"context"
	"image"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	driverutils "github.com/pion/mediadevices/pkg/driver"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"

	"go.viam.com/markerar/logging"
)

// WebcamConfig is the native config attribute struct for webcams.
type WebcamConfig struct {
	Debug     bool    `json:"debug,omitempty"`
	Format    string  `json:"format,omitempty"`
	Path      string  `json:"video_path"`
	Width     int     `json:"width_px,omitempty"`
	Height    int     `json:"height_px,omitempty"`
	FrameRate float32 `json:"frame_rate,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c WebcamConfig) Validate(path string) error {
	if c.Width < 0 || c.Height < 0 {
		return errors.Errorf(
			"%s: got illegal negative dimensions for width_px and height_px (%d, %d) fields set for webcam camera",
			path, c.Width, c.Height)
	}
	if c.FrameRate < 0 {
		return errors.Errorf(
			"%s: got illegal non-positive dimension for frame rate (%.2f) field set for webcam camera",
			path, c.FrameRate)
	}
	return nil
}

// makeConstraints is a helper that returns constraints to mediadevices in order to find and make a video source.
// Constraints are specifications for the video stream such as frame format, resolution etc.
func makeConstraints(conf *WebcamConfig, logger logging.Logger) mediadevices.MediaStreamConstraints {
	return mediadevices.MediaStreamConstraints{
		Video: func(constraint *mediadevices.MediaTrackConstraints) {
			if conf.Width > 0 {
				constraint.Width = prop.IntExact(conf.Width)
			} else {
				constraint.Width = prop.IntRanged{Min: 0, Ideal: 640, Max: 4096}
			}

			if conf.Height > 0 {
				constraint.Height = prop.IntExact(conf.Height)
			} else {
				constraint.Height = prop.IntRanged{Min: 0, Ideal: 480, Max: 2160}
			}

			if conf.FrameRate > 0.0 {
				constraint.FrameRate = prop.FloatExact(conf.FrameRate)
			} else {
				constraint.FrameRate = prop.FloatRanged{Min: 0.0, Ideal: 30.0, Max: 140.0}
			}

			if conf.Format == "" {
				constraint.FrameFormat = prop.FrameFormatOneOf{
					frame.FormatI420,
					frame.FormatI444,
					frame.FormatYUY2,
					frame.FormatUYVY,
					frame.FormatRGBA,
					frame.FormatMJPEG,
					frame.FormatNV12,
					frame.FormatNV21,
				}
			} else {
				constraint.FrameFormat = prop.FrameFormatExact(conf.Format)
			}

			if conf.Debug {
				logger.Debugf("constraints: %v", constraint)
			}
		},
	}
}

// getDriverProperties returns the Media properties of a specific driver.
func getDriverProperties(d driverutils.Driver) (_ []prop.Media, err error) {
	// Need to open driver to get properties
	if d.Status() == driverutils.StateClosed {
		errOpen := d.Open()
		if errOpen != nil {
			return nil, errOpen
		}
		defer func() {
			if errClose := d.Close(); errClose != nil {
				err = errClose
			}
		}()
	}
	return d.Properties(), err
}

// driverMatchesLabel reports whether label names the driver. An empty label matches any driver.
func driverMatchesLabel(d driverutils.Driver, label string) bool {
	if label == "" {
		return true
	}
	for _, part := range strings.Split(d.Info().Label, mediadevicescamera.LabelSeparator) {
		if part == label {
			return true
		}
	}
	return false
}

// selectDriver picks the driver and media properties that best fit the constraints.
func selectDriver(
	drivers []driverutils.Driver,
	constraints mediadevices.MediaStreamConstraints,
	label string,
	logger logging.Logger,
) (driverutils.Driver, prop.Media, error) {
	var trackConstraints mediadevices.MediaTrackConstraints
	if constraints.Video != nil {
		constraints.Video(&trackConstraints)
	}

	var (
		best     driverutils.Driver
		bestProp prop.Media
		bestDist = math.Inf(1)
	)
	for _, d := range drivers {
		if !driverMatchesLabel(d, label) {
			continue
		}
		if d.Status() == driverutils.StateRunning {
			logger.Debugw("driver is in use, skipping", "driver", d.Info().Label)
			continue
		}
		props, err := getDriverProperties(d)
		if err != nil {
			logger.Debugw("cannot access driver properties, skipping", "driver", d.Info().Label, "error", err)
			continue
		}
		for _, p := range props {
			dist, ok := trackConstraints.FitnessDistance(p)
			if ok && dist < bestDist {
				best, bestProp, bestDist = d, p, dist
			}
		}
	}
	if best == nil {
		if label == "" {
			return nil, prop.Media{}, errors.New("found no webcams matching the requested constraints")
		}
		return nil, prop.Media{}, errors.Errorf("found no webcam %q matching the requested constraints", label)
	}
	return best, bestProp, nil
}

// webcam reads frames from a mediadevices video driver.
type webcam struct {
	mu     sync.Mutex
	reader video.Reader
	driver driverutils.Driver
	label  string
	closed bool
	logger logging.Logger
}

// NewWebcam opens the webcam named by conf.Path, or the best fitting one if no path is set.
// Failing to open a device is an error; there is no retry.
func NewWebcam(ctx context.Context, conf WebcamConfig, logger logging.Logger) (Source, error) {
	if err := conf.Validate("webcam"); err != nil {
		return nil, err
	}
	mediadevicescamera.Initialize()

	label := conf.Path
	if label != "" {
		if resolved, err := filepath.EvalSymlinks(label); err == nil {
			label = resolved
		}
		label = filepath.Base(label)
	}

	drivers := driverutils.GetManager().Query(driverutils.FilterVideoRecorder())
	d, media, err := selectDriver(drivers, makeConstraints(&conf, logger), label, logger)
	if err != nil {
		return nil, err
	}
	recorder, ok := d.(driverutils.VideoRecorder)
	if !ok {
		return nil, errors.Errorf("driver %q is not a video recorder", d.Info().Label)
	}
	if err := d.Open(); err != nil {
		return nil, errors.Wrapf(err, "cannot open webcam %q", d.Info().Label)
	}
	reader, err := recorder.VideoRecord(media)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot start webcam %q", d.Info().Label)
	}
	logger.Infow("webcam opened", "label", d.Info().Label,
		"width", media.Width, "height", media.Height, "format", media.FrameFormat)
	return &webcam{reader: reader, driver: d, label: d.Info().Label, logger: logger}, nil
}

// Read grabs the next frame. Any driver error is reported as ErrFrameUnavailable.
func (c *webcam) Read(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, errClosed
	}
	img, release, err := c.reader.Read()
	if err != nil {
		if release != nil {
			release()
		}
		return nil, nil, NewFrameUnavailableError(err)
	}
	if release == nil {
		release = noopRelease
	}
	return img, release, nil
}

// Close stops the driver.
func (c *webcam) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Debugw("closing webcam", "label", c.label)
	return c.driver.Close()
}
