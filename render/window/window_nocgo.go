//go:build no_cgo

// Package window shows a render.Recorder's scene in a desktop window. This build has no display
// support.
package window

import (
	"github.com/pkg/errors"

	"go.viam.com/markerar/render"
)

// ErrUnsupported is returned by Run in builds without cgo.
var ErrUnsupported = errors.New("windowed rendering needs a cgo build, use -headless")

// Config configures the on screen window.
type Config struct {
	Title  string
	Width  int
	Height int
	TPS    int
}

// Window is unavailable without cgo.
type Window struct {
	rec  *render.Recorder
	step func() error
}

// New returns a window that cannot be run in this build.
func New(rec *render.Recorder, step func() error) *Window {
	return &Window{rec: rec, step: step}
}

// Run always fails; run headless instead.
func Run(cfg Config, w *Window) error {
	return ErrUnsupported
}
