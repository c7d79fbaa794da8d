package transform

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraModel is the model of a pinhole camera.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"distortion"`
}

// CheckValid checks the intrinsics and, when present, the distortion parameters.
func (params *PinholeCameraModel) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("camera model does not exist")
	}
	if err := params.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return err
	}
	if params.Distortion != nil {
		return params.Distortion.CheckValid()
	}
	return nil
}

// UndistortPixel maps a distorted pixel to its undistorted normalized image coordinates, the ray
// (x, y, 1) in the camera frame.
func (params *PinholeCameraModel) UndistortPixel(pt r2.Point) r2.Point {
	x, y := params.PixelToNormalized(pt.X, pt.Y)
	if params.Distortion != nil {
		if inv, ok := params.Distortion.(invertibleDistorter); ok {
			x, y = inv.Inverse().Transform(x, y)
		}
	}
	return r2.Point{X: x, Y: y}
}

// ProjectPoint projects a point in the camera frame to a distorted pixel. The second return is false
// for points at or behind the camera plane.
func (params *PinholeCameraModel) ProjectPoint(pt r3.Vector) (r2.Point, bool) {
	if pt.Z <= 0 {
		return r2.Point{}, false
	}
	x, y := pt.X/pt.Z, pt.Y/pt.Z
	if params.Distortion != nil {
		x, y = params.Distortion.Transform(x, y)
	}
	u, v := params.NormalizedToPixel(x, y)
	return r2.Point{X: u, Y: v}, true
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
// The camera matrix is
// [[fx skew ppx],
//
//	[0  fy   ppy],
//	[0  0    1]]
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px,omitempty"`
	Height int     `json:"height_px,omitempty"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
	Skew   float64 `json:"skew,omitempty"`
}

// NewPinholeCameraIntrinsicsFromMatrix reads a 3x3 row major camera matrix. The bottom row must be
// (0, 0, 1) and the element below fx must be zero.
func NewPinholeCameraIntrinsicsFromMatrix(data []float64) (*PinholeCameraIntrinsics, error) {
	if len(data) != 9 {
		return nil, errors.Errorf("camera matrix must have 9 elements, got %d", len(data))
	}
	if data[3] != 0 || data[6] != 0 || data[7] != 0 || data[8] != 1 {
		return nil, errors.Errorf("camera matrix %v is not of the form [[fx s cx] [0 fy cy] [0 0 1]]", data)
	}
	return &PinholeCameraIntrinsics{
		Fx:   data[0],
		Skew: data[1],
		Ppx:  data[2],
		Fy:   data[4],
		Ppy:  data[5],
	}, nil
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs. The image size is
// optional; when only one of width and height is given the intrinsics are invalid.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width < 0 || params.Height < 0 || (params.Width == 0) != (params.Height == 0) {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 || math.IsNaN(params.Fx) {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 || math.IsNaN(params.Fy) {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// PixelToNormalized removes the camera matrix from a pixel.
func (params *PinholeCameraIntrinsics) PixelToNormalized(u, v float64) (float64, float64) {
	y := (v - params.Ppy) / params.Fy
	x := (u - params.Ppx - params.Skew*y) / params.Fx
	return x, y
}

// NormalizedToPixel applies the camera matrix to normalized image coordinates.
func (params *PinholeCameraIntrinsics) NormalizedToPixel(x, y float64) (float64, float64) {
	return params.Fx*x + params.Skew*y + params.Ppx, params.Fy*y + params.Ppy
}

// CameraMatrixData returns the camera matrix in row major order.
func (params *PinholeCameraIntrinsics) CameraMatrixData() []float64 {
	return []float64{
		params.Fx, params.Skew, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	}
}

// GetCameraMatrix creates a new camera matrix and returns it.
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	return mat.NewDense(3, 3, params.CameraMatrixData())
}
