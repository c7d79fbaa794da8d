package fiducial

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/markerar/rimage/transform"
	"go.viam.com/markerar/spatialmath"
)

// A PoseEstimator turns detected corners into marker poses in the camera frame.
type PoseEstimator interface {
	EstimatePoses(markers []Marker, markerLength float64, model *transform.PinholeCameraModel) ([]MarkerPose, error)
}

// PlanarPoseEstimator solves each marker's pose from the homography between the marker plane and
// its undistorted image corners. With Refine set, the closed form solution is polished by
// minimizing the pixel reprojection error.
type PlanarPoseEstimator struct {
	Refine bool
	// MaxIterations bounds the refinement. Zero means 200.
	MaxIterations int
}

// EstimatePoses returns one pose per marker, in the same order as the markers.
func (pe *PlanarPoseEstimator) EstimatePoses(
	markers []Marker,
	markerLength float64,
	model *transform.PinholeCameraModel,
) ([]MarkerPose, error) {
	if model == nil || model.PinholeCameraIntrinsics == nil {
		return nil, transform.NewNoIntrinsicsError("pose estimation needs a camera model")
	}
	if markerLength <= 0 || math.IsNaN(markerLength) {
		return nil, errors.Errorf("marker length must be positive, got %v", markerLength)
	}
	poses := make([]MarkerPose, 0, len(markers))
	for _, m := range markers {
		pose, err := pe.estimate(m, markerLength, model)
		if err != nil {
			return nil, errors.Wrapf(err, "marker %d", m.ID)
		}
		poses = append(poses, pose)
	}
	return poses, nil
}

func (pe *PlanarPoseEstimator) estimate(m Marker, markerLength float64, model *transform.PinholeCameraModel) (MarkerPose, error) {
	object := ObjectPoints(markerLength)
	plane := make([]r2.Point, 4)
	rays := make([]r2.Point, 4)
	for i := range object {
		plane[i] = r2.Point{X: object[i].X, Y: object[i].Y}
		rays[i] = model.UndistortPixel(m.Corners[i])
	}

	h, err := transform.EstimateHomography(plane, rays)
	if err != nil {
		return MarkerPose{}, err
	}
	rot, trans, err := decomposePlanarHomography(h)
	if err != nil {
		return MarkerPose{}, err
	}
	pose := MarkerPose{ID: m.ID, Rotation: rot.AxisAngle(), Translation: trans}

	if pe.Refine {
		pose = pe.refine(pose, m, object, model)
	}
	return pose, nil
}

// decomposePlanarHomography splits H = s * [r1 r2 t] for a plane at Z = 0 seen by a camera with
// identity intrinsics. The sign is chosen so the plane is in front of the camera.
func decomposePlanarHomography(h *transform.Homography) (*spatialmath.RotationMatrix, r3.Vector, error) {
	h1 := r3.Vector{X: h.At(0, 0), Y: h.At(1, 0), Z: h.At(2, 0)}
	h2 := r3.Vector{X: h.At(0, 1), Y: h.At(1, 1), Z: h.At(2, 1)}
	h3 := r3.Vector{X: h.At(0, 2), Y: h.At(1, 2), Z: h.At(2, 2)}

	scale := (h1.Norm() + h2.Norm()) / 2
	if scale == 0 || math.IsNaN(scale) {
		return nil, r3.Vector{}, errors.New("degenerate homography")
	}
	if h3.Z < 0 {
		scale = -scale
	}
	r1v := h1.Mul(1 / scale)
	r2v := h2.Mul(1 / scale)
	t := h3.Mul(1 / scale)
	r3v := r1v.Cross(r2v)

	approx := mat.NewDense(3, 3, []float64{
		r1v.X, r2v.X, r3v.X,
		r1v.Y, r2v.Y, r3v.Y,
		r1v.Z, r2v.Z, r3v.Z,
	})
	rot, err := spatialmath.NearestRotation(approx)
	if err != nil {
		return nil, r3.Vector{}, err
	}
	return rot, t, nil
}

func (pe *PlanarPoseEstimator) refine(
	start MarkerPose,
	m Marker,
	object [4]r3.Vector,
	model *transform.PinholeCameraModel,
) MarkerPose {
	cost := func(x []float64) float64 {
		pose := MarkerPose{
			Rotation:    r3.Vector{X: x[0], Y: x[1], Z: x[2]},
			Translation: r3.Vector{X: x[3], Y: x[4], Z: x[5]},
		}
		return squaredReprojectionError(pose, m, object[:], model)
	}
	x0 := []float64{
		start.Rotation.X, start.Rotation.Y, start.Rotation.Z,
		start.Translation.X, start.Translation.Y, start.Translation.Z,
	}
	startCost := cost(x0)

	iterations := pe.MaxIterations
	if iterations <= 0 {
		iterations = 200
	}
	problem := optimize.Problem{Func: cost}
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{MajorIterations: iterations}, &optimize.NelderMead{})
	if err != nil || result == nil || !(result.F < startCost) {
		return start
	}
	return MarkerPose{
		ID:          start.ID,
		Rotation:    r3.Vector{X: result.X[0], Y: result.X[1], Z: result.X[2]},
		Translation: r3.Vector{X: result.X[3], Y: result.X[4], Z: result.X[5]},
	}
}

// ProjectPoints maps points in the marker frame to pixels with the marker at pose.
func ProjectPoints(points []r3.Vector, pose MarkerPose, model *transform.PinholeCameraModel) ([]r2.Point, error) {
	if model == nil || model.PinholeCameraIntrinsics == nil {
		return nil, transform.NewNoIntrinsicsError("projection needs a camera model")
	}
	rot := spatialmath.RotationMatrixFromAxisAngle(pose.Rotation)
	out := make([]r2.Point, len(points))
	for i, p := range points {
		px, ok := model.ProjectPoint(rot.MulVec(p).Add(pose.Translation))
		if !ok {
			return nil, errors.Errorf("point %d is behind the camera", i)
		}
		out[i] = px
	}
	return out, nil
}

// ReprojectionError is the root mean square distance in pixels between the marker's detected
// corners and its corners projected with pose.
func ReprojectionError(pose MarkerPose, m Marker, markerLength float64, model *transform.PinholeCameraModel) (float64, error) {
	object := ObjectPoints(markerLength)
	projected, err := ProjectPoints(object[:], pose, model)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sumSquaredDistances(projected, m.Corners[:]) / float64(len(projected))), nil
}

func squaredReprojectionError(pose MarkerPose, m Marker, object []r3.Vector, model *transform.PinholeCameraModel) float64 {
	projected, err := ProjectPoints(object, pose, model)
	if err != nil {
		return math.Inf(1)
	}
	return sumSquaredDistances(projected, m.Corners[:])
}

func sumSquaredDistances(a, b []r2.Point) float64 {
	var sum float64
	for i := range a {
		d := a[i].Sub(b[i])
		sum += d.Dot(d)
	}
	return sum
}
