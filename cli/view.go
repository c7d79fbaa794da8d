package cli

import (
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/markerar/config"
	"go.viam.com/markerar/logging"
	"go.viam.com/markerar/overlay"
	"go.viam.com/markerar/rimage/transform"
	"go.viam.com/markerar/utils"
	"go.viam.com/markerar/vision/fiducial"
)

// viewFrame is one recorded frame after pose estimation and selection. Matrices are written as
// 16 numbers in column major order. Selected indexes Poses.
type viewFrame struct {
	Frame    int                   `json:"frame"`
	Poses    []fiducial.MarkerPose `json:"poses"`
	Views    []overlay.ViewMatrix  `json:"views"`
	Selected *int                  `json:"selected,omitempty"`
	View     overlay.ViewMatrix    `json:"view"`
	Error    string                `json:"error,omitempty"`
}

// ViewAction replays recorded corners through pose estimation and the tracker and prints the
// resulting view matrices.
func ViewAction(c *cli.Context) error {
	logger := logging.NewLogger("arctl")
	if !c.Bool(debugFlag) {
		logger.SetLevel(logging.WARN)
	}

	model, err := config.LoadCameraParameters(c.Path(calibrationFlag))
	if err != nil {
		return err
	}
	policy, err := overlay.ParseSelectionPolicy(c.String(selectionFlag))
	if err != nil {
		return err
	}
	length, scale := c.Float64(lengthFlag), c.Float64(scaleFlag)
	if length <= 0 || scale <= 0 {
		return errors.Errorf("--%s and --%s must be positive, got %v and %v", lengthFlag, scaleFlag, length, scale)
	}

	//nolint:gosec
	f, err := os.Open(c.Path(cornersFlag))
	if err != nil {
		return errors.Wrap(err, "cannot open corners file")
	}
	//nolint:errcheck
	defer f.Close()
	recording, err := fiducial.ReadRecording(f)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", c.Path(cornersFlag))
	}

	frames := replayViews(recording, &fiducial.PlanarPoseEstimator{Refine: c.Bool("refine")}, length, scale,
		overlay.NewTracker(logger, overlay.WithSelectionPolicy(policy)), model)
	if c.Bool(jsonFlag) {
		return writeJSON(c.App.Writer, frames)
	}
	printf(c.App.Writer, "%s", viewTable(frames))
	return nil
}

func replayViews(
	recording [][]fiducial.Marker,
	estimator fiducial.PoseEstimator,
	length, scale float64,
	tracker *overlay.Tracker,
	model *transform.PinholeCameraModel,
) []viewFrame {
	frames := make([]viewFrame, 0, len(recording))
	for i, markers := range recording {
		fr := viewFrame{Frame: i}
		if len(markers) > 0 {
			poses, err := estimator.EstimatePoses(markers, length, model)
			if err != nil {
				fr.Error = err.Error()
			}
			candidates := overlay.ComputeViews(poses, scale)
			if _, changed := tracker.Update(candidates); changed {
				sel, _ := tracker.Selected()
				for j, cand := range candidates {
					if cand.Pose == sel.Pose {
						j := j
						fr.Selected = &j
						break
					}
				}
			}
			fr.Poses = poses
			for _, cand := range candidates {
				fr.Views = append(fr.Views, cand.View)
			}
		}
		fr.View = tracker.View()
		frames = append(frames, fr)
	}
	return frames
}

// viewTable has one row per pose plus one row per frame for the view the renderer would use.
func viewTable(frames []viewFrame) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Frame", "Marker", "Rotation", "Angle (deg)", "Translation", "View Translation"})
	for _, fr := range frames {
		for i, pose := range fr.Poses {
			marker := fmt.Sprint(pose.ID)
			if fr.Selected != nil && *fr.Selected == i {
				marker += " *"
			}
			t.AppendRow(table.Row{
				fr.Frame,
				marker,
				formatVector(pose.Rotation, 4),
				fmt.Sprintf("%.2f", utils.RadToDeg(pose.Rotation.Norm())),
				formatVector(pose.Translation, 1),
				formatVector(overlay.ViewTranslation(fr.Views[i]), 3),
			})
		}
		if fr.Error != "" {
			t.AppendRow(table.Row{fr.Frame, "error", fr.Error, "", "", ""})
		}
		if len(fr.Poses) == 0 && fr.Error == "" {
			t.AppendRow(table.Row{fr.Frame, "-", "", "", "", formatVector(overlay.ViewTranslation(fr.View), 3)})
		}
	}
	return t.Render()
}

func formatVector(v r3.Vector, prec int) string {
	return fmt.Sprintf("(%.*f, %.*f, %.*f)", prec, v.X, prec, v.Y, prec, v.Z)
}
