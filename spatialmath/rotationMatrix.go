package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// rodriguesEpsilon is the rotation angle below which a rotation vector is treated as the identity.
const rodriguesEpsilon = 1e-12

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of 9 values in row major order.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	rm := &RotationMatrix{}
	copy(rm.mat[:], m)
	return rm, nil
}

// NewRotationMatrixFromDense copies a 3x3 gonum matrix.
func NewRotationMatrixFromDense(m mat.Matrix) (*RotationMatrix, error) {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("rotation matrix must be 3x3, got %dx%d", r, c)
	}
	rm := &RotationMatrix{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rm.mat[3*i+j] = m.At(i, j)
		}
	}
	return rm, nil
}

// IdentityRotationMatrix returns the rotation that does nothing.
func IdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{mat: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// RotationMatrixFromAxisAngle maps a rotation vector (axis scaled by angle in radians) to its rotation
// matrix with the Rodrigues formula R = cos(t) I + (1 - cos(t)) k k^T + sin(t) [k]x.
func RotationMatrixFromAxisAngle(aa r3.Vector) *RotationMatrix {
	theta := aa.Norm()
	if theta < rodriguesEpsilon {
		return IdentityRotationMatrix()
	}
	k := aa.Mul(1 / theta)
	c, s := math.Cos(theta), math.Sin(theta)
	c1 := 1 - c

	return &RotationMatrix{mat: [9]float64{
		c + c1*k.X*k.X, c1*k.X*k.Y - s*k.Z, c1*k.X*k.Z + s*k.Y,
		c1*k.Y*k.X + s*k.Z, c + c1*k.Y*k.Y, c1*k.Y*k.Z - s*k.X,
		c1*k.Z*k.X - s*k.Y, c1*k.Z*k.Y + s*k.X, c + c1*k.Z*k.Z,
	}}
}

// QuatToRotationMatrix converts a unit quaternion to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{mat: [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}}
}

// At returns the float corresponding to the element at the specified location.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Row returns the row at the given index as a vector.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[3*row], Y: rm.mat[3*row+1], Z: rm.mat[3*row+2]}
}

// Col returns the column at the given index as a vector.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[3+col], Z: rm.mat[6+col]}
}

// Data returns a copy of the elements in row major order.
func (rm *RotationMatrix) Data() []float64 {
	out := make([]float64, 9)
	copy(out, rm.mat[:])
	return out
}

// Dense returns the matrix as a gonum matrix.
func (rm *RotationMatrix) Dense() *mat.Dense {
	return mat.NewDense(3, 3, rm.Data())
}

// Transpose returns a new matrix with rows and columns swapped. For a rotation this is its inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	out := &RotationMatrix{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.mat[3*c+r] = rm.mat[3*r+c]
		}
	}
	return out
}

// Mul returns rm * other.
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	out := &RotationMatrix{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.mat[3*r+c] = rm.Row(r).Dot(other.Col(c))
		}
	}
	return out
}

// MulVec returns rm * v for a column vector v.
func (rm *RotationMatrix) MulVec(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Row(0).Dot(v), Y: rm.Row(1).Dot(v), Z: rm.Row(2).Dot(v)}
}

// Det returns the determinant.
func (rm *RotationMatrix) Det() float64 {
	return rm.Row(0).Dot(rm.Row(1).Cross(rm.Row(2)))
}

// IsOrthonormal reports whether R*R^T is the identity and det(R) is +1 within tol.
func (rm *RotationMatrix) IsOrthonormal(tol float64) bool {
	prod := rm.Mul(rm.Transpose())
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = 1
			}
			if math.Abs(prod.At(r, c)-want) > tol {
				return false
			}
		}
	}
	return math.Abs(rm.Det()-1) <= tol
}

// AlmostEqual compares elementwise within tol.
func (rm *RotationMatrix) AlmostEqual(other *RotationMatrix, tol float64) bool {
	for i := range rm.mat {
		if math.Abs(rm.mat[i]-other.mat[i]) > tol {
			return false
		}
	}
	return true
}

// AxisAngle returns the rotation vector of the matrix, the inverse of RotationMatrixFromAxisAngle.
// The returned angle is in [0, pi].
func (rm *RotationMatrix) AxisAngle() r3.Vector {
	v := r3.Vector{
		X: rm.At(2, 1) - rm.At(1, 2),
		Y: rm.At(0, 2) - rm.At(2, 0),
		Z: rm.At(1, 0) - rm.At(0, 1),
	}
	s := v.Norm() / 2
	c := (rm.At(0, 0) + rm.At(1, 1) + rm.At(2, 2) - 1) / 2
	theta := math.Atan2(s, c)

	if c > 0 {
		if s == 0 {
			return r3.Vector{}
		}
		return v.Mul(theta / (2 * s))
	}

	// Past pi/2 the antisymmetric part shrinks toward zero, so the axis is read from the symmetric
	// part, (R + Rt)/2 - cI = (1 - c) n nt, using its largest column. v only picks the sign.
	sym := func(i, j int) float64 { return (rm.At(i, j) + rm.At(j, i)) / 2 }
	best := 0
	for i := 1; i < 3; i++ {
		if sym(i, i) > sym(best, best) {
			best = i
		}
	}
	axis := r3.Vector{X: sym(0, best), Y: sym(1, best), Z: sym(2, best)}
	switch best {
	case 0:
		axis.X -= c
	case 1:
		axis.Y -= c
	default:
		axis.Z -= c
	}
	axis = axis.Normalize()
	if axis.Dot(v) < 0 {
		axis = axis.Mul(-1)
	}
	return axis.Mul(theta)
}

// Quaternion returns the unit quaternion for the rotation.
func (rm *RotationMatrix) Quaternion() quat.Number {
	return R3ToR4(rm.AxisAngle()).ToQuat()
}

// NearestRotation projects an arbitrary 3x3 matrix onto SO(3) using its singular value decomposition,
// R = U * diag(1, 1, det(U V^T)) * V^T.
func NearestRotation(m mat.Matrix) (*RotationMatrix, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize matrix for orthonormalization")
	}
	var u, v, uvt mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	uvt.Mul(&u, v.T())
	if mat.Det(&uvt) < 0 {
		d := mat.NewDiagDense(3, []float64{1, 1, -1})
		var ud mat.Dense
		ud.Mul(&u, d)
		uvt.Mul(&ud, v.T())
	}
	return NewRotationMatrixFromDense(&uvt)
}
