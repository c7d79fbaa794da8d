// Package cli implements arctl, the command line companion of markerar for inspecting calibration
// files and replaying recorded detections offline.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/markerar/config"
	"go.viam.com/markerar/overlay"
)

const (
	jsonFlag        = "json"
	debugFlag       = "debug"
	cornersFlag     = "corners"
	calibrationFlag = "calibration"
	lengthFlag      = "length"
	scaleFlag       = "scale"
	selectionFlag   = "selection"
)

var app = &cli.App{
	Name:            "arctl",
	Usage:           "inspect marker overlay configuration and recorded detections",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.BoolFlag{
			Name:  jsonFlag,
			Usage: "print JSON instead of tables",
		},
	},
	Commands: []*cli.Command{
		{
			Name:            "calibration",
			Usage:           "work with camera calibration files",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:      "show",
					Usage:     "print the intrinsics and distortion of a calibration file",
					ArgsUsage: "<file>",
					Action:    CalibrationShowAction,
				},
			},
		},
		{
			Name:            "detector",
			Usage:           "work with detector parameter files",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:      "show",
					Usage:     "print detector parameters after defaults are applied",
					ArgsUsage: "<file>",
					Action:    DetectorShowAction,
				},
			},
		},
		{
			Name:  "view",
			Usage: "estimate poses and view matrices for recorded detections",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     cornersFlag,
					Usage:    "recorded detections, one JSON array of markers per frame",
					Required: true,
				},
				&cli.PathFlag{
					Name:     calibrationFlag,
					Usage:    "camera calibration file",
					Required: true,
				},
				&cli.Float64Flag{
					Name:  lengthFlag,
					Usage: "printed marker side length",
					Value: config.DefaultMarkerLength,
				},
				&cli.Float64Flag{
					Name:  scaleFlag,
					Usage: "renderer units per marker unit",
					Value: overlay.DefaultUnitScale,
				},
				&cli.StringFlag{
					Name:  selectionFlag,
					Usage: "marker selection policy: last, first, nearest or id:<n>",
					Value: overlay.DefaultSelectionPolicy().String(),
				},
				&cli.BoolFlag{
					Name:  "refine",
					Usage: "refine poses by minimizing reprojection error",
				},
			},
			Action: ViewAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// printf prints a message with no decoration.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "\x1b[1;33mWarning:\x1b[0m "+format+"\n", a...)
}
