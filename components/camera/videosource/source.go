// Package videosource implements the frame sources the overlay loop reads from: webcams through
// mediadevices, OpenCV captures, and directories of recorded images.
package videosource

import (
	"context"
	"image"

	"github.com/pkg/errors"
)

// ErrFrameUnavailable is returned by Read when the device produced no frame this time. Callers
// skip the frame and try again on the next tick.
var ErrFrameUnavailable = errors.New("no frame available")

var errClosed = errors.New("video source has been closed")

// A Source produces frames. The returned release func must be called once the image is no longer
// used; it is never nil when err is nil.
type Source interface {
	Read(ctx context.Context) (image.Image, func(), error)
	Close(ctx context.Context) error
}

// NewFrameUnavailableError wraps ErrFrameUnavailable with the reason the device gave.
func NewFrameUnavailableError(cause error) error {
	if cause == nil {
		return ErrFrameUnavailable
	}
	return errors.Wrap(ErrFrameUnavailable, cause.Error())
}

func noopRelease() {}
