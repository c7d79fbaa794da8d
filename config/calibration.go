package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/markerar/rimage/transform"
	"go.viam.com/markerar/vision/fiducial"
)

// ErrConfigUnavailable is wrapped by the loaders when a file is missing or cannot be opened. A file
// that opens but does not parse is reported with a different error.
var ErrConfigUnavailable = errors.New("configuration file unavailable")

// cameraParametersFile is the on disk layout of a camera calibration.
type cameraParametersFile struct {
	ImageWidth             int     `json:"image_width,omitempty" yaml:"image_width,omitempty"`
	ImageHeight            int     `json:"image_height,omitempty" yaml:"image_height,omitempty"`
	CameraMatrix           *Matrix `json:"camera_matrix" yaml:"camera_matrix"`
	DistortionCoefficients *Matrix `json:"distortion_coefficients" yaml:"distortion_coefficients"`
}

func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrConfigUnavailable, "%s: %v", path, err)
	}
	return data, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func decodeConfigFile(path string, data []byte, out interface{}) error {
	if isJSON(path) {
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(out); err != nil {
			return errors.Wrapf(err, "failed to decode %s as json", path)
		}
		return nil
	}
	if err := yaml.Unmarshal(stripOpenCVYAML(data), out); err != nil {
		return errors.Wrapf(err, "failed to decode %s as yaml", path)
	}
	return nil
}

// LoadCameraParameters reads a camera matrix and distortion coefficients. Files ending in .json are
// read as JSON and everything else as OpenCV FileStorage YAML. Nothing is returned unless the whole
// file is valid.
func LoadCameraParameters(path string) (*transform.PinholeCameraModel, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	var raw cameraParametersFile
	if err := decodeConfigFile(path, data, &raw); err != nil {
		return nil, err
	}
	return raw.toModel(path)
}

func (raw *cameraParametersFile) toModel(path string) (*transform.PinholeCameraModel, error) {
	if raw.CameraMatrix == nil {
		return nil, errors.Errorf("%s: camera_matrix is missing", path)
	}
	if raw.CameraMatrix.Rows != 3 || raw.CameraMatrix.Cols != 3 {
		return nil, errors.Errorf("%s: camera_matrix must be 3x3, got %dx%d",
			path, raw.CameraMatrix.Rows, raw.CameraMatrix.Cols)
	}
	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromMatrix(raw.CameraMatrix.Data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	intrinsics.Width = raw.ImageWidth
	intrinsics.Height = raw.ImageHeight

	model := &transform.PinholeCameraModel{PinholeCameraIntrinsics: intrinsics}
	if raw.DistortionCoefficients != nil && len(raw.DistortionCoefficients.Data) > 0 {
		if !raw.DistortionCoefficients.IsVector() {
			return nil, errors.Errorf("%s: distortion_coefficients must be a vector, got %dx%d",
				path, raw.DistortionCoefficients.Rows, raw.DistortionCoefficients.Cols)
		}
		distortion, err := transform.NewBrownConrady(raw.DistortionCoefficients.Data)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		model.Distortion = distortion
	}
	if err := model.CheckValid(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return model, nil
}

// WriteCameraParameters writes model in the layout LoadCameraParameters reads, as JSON or OpenCV
// YAML depending on the extension.
func WriteCameraParameters(path string, model *transform.PinholeCameraModel) error {
	if err := model.CheckValid(); err != nil {
		return err
	}
	raw := cameraParametersFile{
		ImageWidth:   model.Width,
		ImageHeight:  model.Height,
		CameraMatrix: &Matrix{Rows: 3, Cols: 3, Data: model.CameraMatrixData()},
	}
	if model.Distortion != nil {
		coeffs := model.Distortion.Parameters()
		raw.DistortionCoefficients = &Matrix{Rows: 1, Cols: len(coeffs), Data: coeffs}
	}

	var buf bytes.Buffer
	if isJSON(path) {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(raw); err != nil {
			return err
		}
	} else {
		buf.WriteString("%YAML:1.0\n---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(3)
		if err := enc.Encode(raw); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	}
	//nolint:gosec
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadDetectorConfig reads detector thresholds. Keys missing from the file keep the detection
// library's defaults; keys present overwrite them. The result is validated and nothing is returned
// unless the whole file is valid.
func LoadDetectorConfig(path string) (*fiducial.DetectorConfig, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg := fiducial.DefaultDetectorConfig()
	if err := decodeConfigFile(path, data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s: invalid detector parameters", path)
	}
	return &cfg, nil
}
