//go:build !no_cgo

// Package window shows a render.Recorder's scene in a desktop window. It is kept apart from
// package render so headless builds never link the display stack.
package window

import (
	"github.com/hajimehoshi/ebiten/v2"

	"go.viam.com/markerar/render"
)

// Config configures the on screen window.
type Config struct {
	Title  string
	Width  int
	Height int
	TPS    int
}

// Window is an ebiten.Game drawing a Recorder's scene. Each update runs one step.
type Window struct {
	rec   *render.Recorder
	step  func() error
	frame *ebiten.Image
}

// New returns a window drawing the scene of rec. step runs once per update; an error from it
// closes the window.
func New(rec *render.Recorder, step func() error) *Window {
	return &Window{rec: rec, step: step}
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if w.step != nil {
		if err := w.step(); err != nil {
			return err
		}
	}
	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	img := w.rec.Snapshot()
	b := img.Bounds()
	if w.frame == nil || w.frame.Bounds().Dx() != b.Dx() || w.frame.Bounds().Dy() != b.Dy() {
		if w.frame != nil {
			w.frame.Deallocate()
		}
		w.frame = ebiten.NewImage(b.Dx(), b.Dy())
	}
	w.frame.WritePixels(img.Pix)
	screen.DrawImage(w.frame, nil)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	scene := w.rec.Scene()
	return scene.Width, scene.Height
}

// Run opens the window and blocks until it closes or step fails.
func Run(cfg Config, w *Window) error {
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.TPS > 0 {
		ebiten.SetTPS(cfg.TPS)
	}
	return ebiten.RunGame(w)
}
