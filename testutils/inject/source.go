// Package inject provides function-field fakes of the pipeline's interfaces for tests.
package inject

import (
	"context"
	"image"

	"go.viam.com/markerar/components/camera/videosource"
)

// Source is an injected frame source.
type Source struct {
	videosource.Source
	ReadFunc  func(ctx context.Context) (image.Image, func(), error)
	CloseFunc func(ctx context.Context) error
}

// Read calls the injected Read or the real version.
func (s *Source) Read(ctx context.Context) (image.Image, func(), error) {
	if s.ReadFunc == nil {
		return s.Source.Read(ctx)
	}
	return s.ReadFunc(ctx)
}

// Close calls the injected Close or the real version. A fake with neither closes cleanly.
func (s *Source) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		if s.Source == nil {
			return nil
		}
		return s.Source.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
