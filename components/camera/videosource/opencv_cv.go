//go:build withcv

package videosource

import (
	"context"
	"image"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/markerar/logging"
)

// OpenCVConfig selects an OpenCV capture device.
type OpenCVConfig struct {
	// Device is a device index ("0") or a file or stream URL.
	Device    string
	Width     int
	Height    int
	FrameRate float64
}

type openCVCapture struct {
	mu      sync.Mutex
	device  string
	capture *gocv.VideoCapture
	frame   gocv.Mat
	closed  bool
	logger  logging.Logger
}

// NewOpenCVCapture opens an OpenCV video capture. Failing to open the device is an error.
func NewOpenCVCapture(ctx context.Context, conf OpenCVConfig, logger logging.Logger) (Source, error) {
	var device interface{} = conf.Device
	if id, err := strconv.Atoi(conf.Device); err == nil {
		device = id
	} else if conf.Device == "" {
		device = 0
	}
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open capture device %q", conf.Device)
	}
	if !capture.IsOpened() {
		if closeErr := capture.Close(); closeErr != nil {
			logger.Debugw("error closing capture", "error", closeErr)
		}
		return nil, errors.Errorf("capture device %q did not open", conf.Device)
	}
	if conf.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(conf.Width))
	}
	if conf.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(conf.Height))
	}
	if conf.FrameRate > 0 {
		capture.Set(gocv.VideoCaptureFPS, conf.FrameRate)
	}
	logger.Infow("opencv capture opened", "device", conf.Device,
		"width", capture.Get(gocv.VideoCaptureFrameWidth), "height", capture.Get(gocv.VideoCaptureFrameHeight))
	return &openCVCapture{device: conf.Device, capture: capture, frame: gocv.NewMat(), logger: logger}, nil
}

// Read grabs and retrieves one frame. A failed grab is ErrFrameUnavailable.
func (oc *openCVCapture) Read(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.closed {
		return nil, nil, errClosed
	}
	if ok := oc.capture.Read(&oc.frame); !ok || oc.frame.Empty() {
		return nil, nil, errors.Wrapf(ErrFrameUnavailable, "capture device %q", oc.device)
	}
	img, err := oc.frame.ToImage()
	if err != nil {
		return nil, nil, NewFrameUnavailableError(err)
	}
	return img, noopRelease, nil
}

func (oc *openCVCapture) Close(ctx context.Context) error {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.closed {
		return nil
	}
	oc.closed = true
	if err := oc.frame.Close(); err != nil {
		oc.logger.Debugw("error releasing frame", "error", err)
	}
	return oc.capture.Close()
}
