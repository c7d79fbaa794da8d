// Package overlay turns marker poses from the vision side into view matrices for the renderer.
//
// Poses come in the camera convention used by marker detection: right handed, X right, Y down,
// Z looking out of the lens. The renderer uses row vectors (points are multiplied on the left,
// translation lives in row 3) with Y up. PoseToView converts between the two.
package overlay

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/markerar/spatialmath"
	"go.viam.com/markerar/utils"
	"go.viam.com/markerar/vision/fiducial"
)

// ViewMatrix is the renderer's camera view matrix. At(r, c) is row r, column c of the row vector
// matrix, so the translation is in row 3.
type ViewMatrix = mgl64.Mat4

// DefaultUnitScale converts marker length units into renderer world units.
const DefaultUnitScale = 0.01

// ErrDegeneratePose is wrapped by ValidatePose.
var ErrDegeneratePose = errors.New("degenerate marker pose")

// axisCorrection is a -90 degree rotation about X in the row vector convention. It swaps the
// vision Y down, Z forward axes into the renderer's Y up frame.
var axisCorrection = RotationX(utils.DegToRad(-90))

// IdentityView is the view before any marker has been seen.
func IdentityView() ViewMatrix {
	return mgl64.Ident4()
}

// RotationX returns a rotation of angle radians about X for row vectors:
//
//	[1  0 0 0]
//	[0  c s 0]
//	[0 -s c 0]
//	[0  0 0 1]
func RotationX(angle float64) ViewMatrix {
	return mgl64.HomogRotate3DX(angle).Transpose()
}

// Translation returns a row vector translation by v.
func Translation(v r3.Vector) ViewMatrix {
	m := mgl64.Ident4()
	m.Set(3, 0, v.X)
	m.Set(3, 1, v.Y)
	m.Set(3, 2, v.Z)
	return m
}

// PoseToView computes the view matrix for one marker pose. The result is
//
//	axisCorrection * invRotation * translation
//
// where invRotation is the transposed pose rotation with its X and Z columns negated, and
// translation moves by (tx, -ty, tz) * unitScale. Degenerate poses are not checked here; see
// ValidatePose.
func PoseToView(pose fiducial.MarkerPose, unitScale float64) ViewMatrix {
	inv := spatialmath.RotationMatrixFromAxisAngle(pose.Rotation).Transpose()

	tm := mgl64.Ident4()
	for r := 0; r < 3; r++ {
		tm.Set(r, 0, -inv.At(r, 0))
		tm.Set(r, 1, inv.At(r, 1))
		tm.Set(r, 2, -inv.At(r, 2))
	}

	trans := Translation(r3.Vector{
		X: pose.Translation.X,
		Y: -pose.Translation.Y,
		Z: pose.Translation.Z,
	}.Mul(unitScale))

	return axisCorrection.Mul4(tm).Mul4(trans)
}

// ValidatePose reports poses whose components are not finite.
func ValidatePose(pose fiducial.MarkerPose) error {
	r, t := pose.Rotation, pose.Translation
	if !utils.IsFinite(r.X, r.Y, r.Z) {
		return errors.Wrapf(ErrDegeneratePose, "rotation %v is not finite", r)
	}
	if !utils.IsFinite(t.X, t.Y, t.Z) {
		return errors.Wrapf(ErrDegeneratePose, "translation %v is not finite", t)
	}
	return nil
}

// ViewTranslation returns row 3 of a view matrix.
func ViewTranslation(v ViewMatrix) r3.Vector {
	return r3.Vector{X: v.At(3, 0), Y: v.At(3, 1), Z: v.At(3, 2)}
}

// RotationBlock returns the upper left 3x3 of a view matrix.
func RotationBlock(v ViewMatrix) mgl64.Mat3 {
	return v.Mat3()
}

// IsRigid reports whether the rotation block is orthonormal with determinant +1 and the last
// column is (0, 0, 0, 1), within tol.
func IsRigid(v ViewMatrix, tol float64) bool {
	block := RotationBlock(v)
	prod := block.Mul3(block.Transpose())
	ident := mgl64.Ident3()
	// Elementwise absolute comparison; mgl64's ApproxEqualThreshold is relative away from zero.
	for i := range prod {
		if !utils.Float64AlmostEqual(prod[i], ident[i], tol) {
			return false
		}
	}
	if !utils.Float64AlmostEqual(block.Det(), 1, tol) {
		return false
	}
	return utils.Float64AlmostEqual(v.At(0, 3), 0, tol) && utils.Float64AlmostEqual(v.At(1, 3), 0, tol) &&
		utils.Float64AlmostEqual(v.At(2, 3), 0, tol) && utils.Float64AlmostEqual(v.At(3, 3), 1, tol)
}
