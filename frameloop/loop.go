// Package frameloop runs the capture, detect, estimate and render steps once per tick.
package frameloop

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/markerar/components/camera/videosource"
	"go.viam.com/markerar/logging"
	"go.viam.com/markerar/overlay"
	"go.viam.com/markerar/render"
	"go.viam.com/markerar/rimage/transform"
	"go.viam.com/markerar/vision/fiducial"
)

// Loop owns one pipeline. It is driven from a single goroutine and is not safe for concurrent use.
type Loop struct {
	Source    videosource.Source
	Detector  fiducial.Detector
	Estimator fiducial.PoseEstimator
	// Model may be nil, in which case markers are detected but no pose is estimated.
	Model    *transform.PinholeCameraModel
	Tracker  *overlay.Tracker
	Renderer render.Renderer

	MarkerLength   float64
	UnitScale      float64
	DrawDetections bool

	Logger logging.Logger

	warnedNoModel bool
	ticks         int
}

// TickResult describes what one tick did.
type TickResult struct {
	FrameAvailable bool
	Markers        []fiducial.Marker
	Poses          []fiducial.MarkerPose
	ViewChanged    bool
	View           overlay.ViewMatrix
}

// Tick processes one frame. A missing frame is not an error: the tick skips the update and the
// renderer keeps the retained view. The view handed to the renderer is always the tracker's.
func (l *Loop) Tick(ctx context.Context) (TickResult, error) {
	l.ticks++
	img, release, err := l.Source.Read(ctx)
	if err != nil {
		if !errors.Is(err, videosource.ErrFrameUnavailable) {
			return TickResult{}, errors.Wrap(err, "reading frame")
		}
		l.Logger.Debugw("skipping tick", "tick", l.ticks, "error", err)
		view := l.Tracker.View()
		l.Renderer.SetViewMatrix(view)
		return TickResult{View: view}, nil
	}
	defer release()

	res := TickResult{FrameAvailable: true}
	res.Markers, err = l.Detector.Detect(ctx, img)
	if err != nil {
		return TickResult{}, errors.Wrap(err, "detecting markers")
	}

	if len(res.Markers) > 0 {
		res.Poses, err = l.estimate(res.Markers)
		if err != nil {
			return TickResult{}, err
		}
		_, res.ViewChanged = l.Tracker.Update(overlay.ComputeViews(res.Poses, l.UnitScale))
	}

	background, err := l.annotate(img, res)
	if err != nil {
		return TickResult{}, err
	}
	if err := l.Renderer.UploadBackground(background); err != nil {
		return TickResult{}, errors.Wrap(err, "uploading background")
	}
	res.View = l.Tracker.View()
	l.Renderer.SetViewMatrix(res.View)
	return res, nil
}

func (l *Loop) estimate(markers []fiducial.Marker) ([]fiducial.MarkerPose, error) {
	if l.Model == nil || l.Estimator == nil {
		if !l.warnedNoModel {
			l.Logger.Warnw("markers detected but no camera calibration is loaded, not estimating poses", "markers", len(markers))
			l.warnedNoModel = true
		}
		return nil, nil
	}
	poses, err := l.Estimator.EstimatePoses(markers, l.MarkerLength, l.Model)
	if err != nil {
		if errors.Is(err, transform.ErrNoIntrinsics) {
			return nil, errors.Wrap(err, "estimating poses")
		}
		// A marker seen at a grazing angle can defeat the solver. The tracker keeps its view.
		l.Logger.Warnw("could not estimate poses", "markers", len(markers), "error", err)
		return nil, nil
	}
	return poses, nil
}

func (l *Loop) annotate(img image.Image, res TickResult) (image.Image, error) {
	if !l.DrawDetections || len(res.Markers) == 0 {
		return img, nil
	}
	out := fiducial.DrawMarkers(img, res.Markers)
	if len(res.Poses) == 0 {
		return out, nil
	}
	withAxes, err := fiducial.DrawAxes(out, res.Poses, l.Model, l.MarkerLength/2)
	if err != nil {
		return nil, errors.Wrap(err, "drawing axes")
	}
	return withAxes, nil
}

// Close releases the source and the detector.
func (l *Loop) Close(ctx context.Context) error {
	var err error
	if l.Source != nil {
		err = multierr.Combine(err, errors.Wrap(l.Source.Close(ctx), "closing source"))
	}
	if l.Detector != nil {
		err = multierr.Combine(err, errors.Wrap(l.Detector.Close(), "closing detector"))
	}
	return err
}

// HeadlessConfig controls RunHeadless.
type HeadlessConfig struct {
	// Hz is the tick rate. Zero ticks as fast as possible.
	Hz float64
	// Ticks stops the run after this many ticks. Zero runs until ctx is done.
	Ticks int
}

// RunHeadless ticks loop until ctx is done, cfg.Ticks ticks have run or a tick fails. It returns
// the number of ticks run. Cancellation is not an error.
func RunHeadless(ctx context.Context, loop *Loop, cfg HeadlessConfig) (int, error) {
	var tick <-chan time.Time
	if cfg.Hz > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / cfg.Hz))
		defer ticker.Stop()
		tick = ticker.C
	}

	count := 0
	for cfg.Ticks <= 0 || count < cfg.Ticks {
		if tick != nil {
			select {
			case <-ctx.Done():
				return count, nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return count, nil
		}

		res, err := loop.Tick(ctx)
		if err != nil {
			return count, err
		}
		count++
		if res.ViewChanged {
			sel, _ := loop.Tracker.Selected()
			loop.Logger.Debugw("tick", "n", count, "markers", len(res.Markers), "selected", sel.Pose.ID)
		}
	}
	return count, nil
}
