package videosource

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/markerar/logging"
)

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := imaging.New(40, 20, color.NRGBA{uint8(i * 50), 0, 0, 255})
		test.That(t, imaging.Save(img, filepath.Join(dir, "frame_"+string(rune('a'+i))+".png")), test.ShouldBeNil)
	}
}

func TestReplaySource(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 3)
	test.That(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600), test.ShouldBeNil)

	src, err := NewReplaySource(ReplayConfig{Dir: dir})
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		img, release, err := src.Read(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 40, 20))
		r, _, _, _ := img.At(0, 0).RGBA()
		test.That(t, r>>8, test.ShouldEqual, uint32(i*50))
		release()
	}
	_, _, err = src.Read(ctx)
	test.That(t, errors.Is(err, ErrFrameUnavailable), test.ShouldBeTrue)

	test.That(t, src.Close(ctx), test.ShouldBeNil)
	_, _, err = src.Read(ctx)
	test.That(t, err, test.ShouldEqual, errClosed)
}

func TestReplaySourceLoopAndResize(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 2)

	src, err := NewReplaySource(ReplayConfig{Dir: dir, Loop: true, Width: 10, Height: 10, RotateDegrees: 90})
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 5; i++ {
		img, _, err := src.Read(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Dx(), test.ShouldEqual, 10)
		test.That(t, img.Bounds().Dy(), test.ShouldEqual, 10)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = src.Read(ctx)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestReplaySourceErrors(t *testing.T) {
	_, err := NewReplaySource(ReplayConfig{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewReplaySource(ReplayConfig{Dir: t.TempDir()})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewReplaySource(ReplayConfig{Dir: filepath.Join(t.TempDir(), "missing")})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewReplaySource(ReplayConfig{Dir: t.TempDir(), Width: 10})
	test.That(t, err, test.ShouldNotBeNil)

	// A file that disappears between listing and reading is a missed frame, not a failure.
	dir := t.TempDir()
	writeFrames(t, dir, 1)
	src, err := NewReplaySource(ReplayConfig{Dir: dir})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.Remove(filepath.Join(dir, "frame_a.png")), test.ShouldBeNil)
	_, _, err = src.Read(context.Background())
	test.That(t, errors.Is(err, ErrFrameUnavailable), test.ShouldBeTrue)
}

func TestWebcamConfigValidate(t *testing.T) {
	test.That(t, WebcamConfig{Width: 640, Height: 480}.Validate("webcam"), test.ShouldBeNil)
	err := WebcamConfig{Width: -1}.Validate("webcam")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "negative dimensions")
	err = WebcamConfig{FrameRate: -1}.Validate("webcam")
	test.That(t, err.Error(), test.ShouldContainSubstring, "frame rate")
}

func TestMakeConstraints(t *testing.T) {
	logger := logging.NewTestLogger(t)

	var constraint mediadevices.MediaTrackConstraints
	makeConstraints(&WebcamConfig{}, logger).Video(&constraint)
	test.That(t, constraint.Width, test.ShouldResemble, prop.IntRanged{Min: 0, Ideal: 640, Max: 4096})
	test.That(t, constraint.Height, test.ShouldResemble, prop.IntRanged{Min: 0, Ideal: 480, Max: 2160})

	constraint = mediadevices.MediaTrackConstraints{}
	makeConstraints(&WebcamConfig{Width: 1280, Height: 720, FrameRate: 60, Debug: true}, logger).Video(&constraint)
	test.That(t, constraint.Width, test.ShouldResemble, prop.IntExact(1280))
	test.That(t, constraint.Height, test.ShouldResemble, prop.IntExact(720))
	test.That(t, constraint.FrameRate, test.ShouldResemble, prop.FloatExact(60))
}

func TestSelectDriverWithoutDevices(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, _, err := selectDriver(nil, makeConstraints(&WebcamConfig{}, logger), "", logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = selectDriver(nil, makeConstraints(&WebcamConfig{}, logger), "video0", logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "video0")
}

func TestFrameUnavailableError(t *testing.T) {
	test.That(t, NewFrameUnavailableError(nil), test.ShouldEqual, ErrFrameUnavailable)
	err := NewFrameUnavailableError(errors.New("device busy"))
	test.That(t, errors.Is(err, ErrFrameUnavailable), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "device busy")
}
