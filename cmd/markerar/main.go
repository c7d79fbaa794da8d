// Package main runs the marker overlay: it reads frames from a camera, finds markers and draws a
// model anchored to the selected marker, in a window or headless.
package main

import (
	"context"

	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/markerar/config"
	"go.viam.com/markerar/frameloop"
	"go.viam.com/markerar/logging"
	"go.viam.com/markerar/render"
	"go.viam.com/markerar/render/window"
	"go.viam.com/markerar/utils"
)

var logger = logging.NewDebugLogger("markerar")

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"config,usage=JSON config file; built in defaults when empty"`
	Headless   bool   `flag:"headless,usage=run without opening a window"`
	Ticks      int    `flag:"ticks,usage=stop after this many ticks; 0 runs until interrupted"`
	Debug      bool   `flag:"debug"`
}

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, startupLogger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := config.Default()
	if argsParsed.ConfigFile != "" {
		cfg, err = config.Read(ctx, argsParsed.ConfigFile, startupLogger)
		if err != nil {
			return err
		}
	}

	appLogger, closeLog, err := cfg.Log.NewLogger("markerar", argsParsed.Debug)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	scene := render.NewScene(
		cfg.Window.Width,
		cfg.Window.Height,
		utils.DegToRad(cfg.View.FieldOfViewDeg),
		cfg.Marker.Length*cfg.View.UnitScale,
	)
	rec := render.NewRecorder(scene)

	loop, err := newLoop(ctx, cfg, rec, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, loop.Close(context.Background()))
	}()

	if argsParsed.Headless {
		hz := cfg.Camera.FrameRate
		if hz == 0 {
			hz = float64(cfg.Window.TPS)
		}
		n, err := frameloop.RunHeadless(ctx, loop, frameloop.HeadlessConfig{Hz: hz, Ticks: argsParsed.Ticks})
		appLogger.Infow("headless run finished", "ticks", n)
		if err != nil {
			return err
		}
		if sel, ok := loop.Tracker.Selected(); ok {
			appLogger.Infow("final view", "marker", sel.Pose.ID, "translation", sel.Pose.Translation)
		}
		return nil
	}

	win := window.New(rec, func() error {
		_, err := loop.Tick(ctx)
		return err
	})
	return window.Run(window.Config{
		Title:  cfg.Window.Title,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		TPS:    cfg.Window.TPS,
	}, win)
}
