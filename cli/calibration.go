package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/markerar/config"
	"go.viam.com/markerar/rimage/transform"
	"go.viam.com/markerar/vision/fiducial"
)

// CalibrationShowAction prints a camera calibration file.
func CalibrationShowAction(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}
	model, err := config.LoadCameraParameters(path)
	if err != nil {
		return err
	}
	if c.Bool(jsonFlag) {
		return writeJSON(c.App.Writer, model)
	}
	printf(c.App.Writer, "%s", calibrationTable(model))
	if model.Distortion == nil {
		warningf(c.App.ErrWriter, "%s has no distortion coefficients, frames are assumed undistorted", path)
	}
	return nil
}

func calibrationTable(model *transform.PinholeCameraModel) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Parameter", "Value"})
	t.AppendRow(table.Row{"size", fmt.Sprintf("%dx%d", model.Width, model.Height)})
	t.AppendRow(table.Row{"fx", model.Fx})
	t.AppendRow(table.Row{"fy", model.Fy})
	t.AppendRow(table.Row{"ppx", model.Ppx})
	t.AppendRow(table.Row{"ppy", model.Ppy})
	if model.Skew != 0 {
		t.AppendRow(table.Row{"skew", model.Skew})
	}
	if model.Distortion != nil {
		t.AppendSeparator()
		names := []string{"k1", "k2", "p1", "p2", "k3"}
		for i, v := range model.Distortion.Parameters() {
			name := fmt.Sprintf("d%d", i)
			if i < len(names) {
				name = names[i]
			}
			t.AppendRow(table.Row{name, v})
		}
	}
	return t.Render()
}

// DetectorShowAction prints a detector parameter file with defaults filled in.
func DetectorShowAction(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}
	params, err := config.LoadDetectorConfig(path)
	if err != nil {
		return err
	}
	if c.Bool(jsonFlag) {
		return writeJSON(c.App.Writer, params)
	}
	printf(c.App.Writer, "%s", detectorTable(params))
	return nil
}

// detectorTable lists every parameter in file order, marking values that differ from the defaults.
func detectorTable(params *fiducial.DetectorConfig) string {
	defaults := fiducial.DefaultDetectorConfig()
	got, want := reflect.ValueOf(*params), reflect.ValueOf(defaults)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Parameter", "Value", "Default"})
	for i := 0; i < got.NumField(); i++ {
		name := strings.Split(got.Type().Field(i).Tag.Get("json"), ",")[0]
		value, def := got.Field(i).Interface(), want.Field(i).Interface()
		mark := ""
		if value != def {
			mark = fmt.Sprint(def)
		}
		t.AppendRow(table.Row{name, value, mark})
	}
	return t.Render()
}

func fileArg(c *cli.Context) (string, error) {
	if c.Args().Len() != 1 {
		return "", errors.Errorf("expected exactly one file argument, got %d", c.Args().Len())
	}
	return c.Args().First(), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
