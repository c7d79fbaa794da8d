package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"go.viam.com/markerar/utils"
)

// maxDistortionCoefficients is the longest coefficient vector a calibration can carry:
// k1, k2, p1, p2, k3, k4, k5, k6, s1, s2, s3, s4, tauX, tauY.
const maxDistortionCoefficients = 14

// BrownConrady is the OpenCV lens distortion model: radial terms with an optional rational
// denominator, tangential terms, thin prism terms and a tilted sensor. Coefficients are given in
// the order calibration tools write them: k1, k2, p1, p2, k3, k4, k5, k6, s1, s2, s3, s4, tauX, tauY.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`

	// Rational model denominator.
	RadialK4 float64 `json:"rk4,omitempty"`
	RadialK5 float64 `json:"rk5,omitempty"`
	RadialK6 float64 `json:"rk6,omitempty"`

	PrismS1 float64 `json:"s1,omitempty"`
	PrismS2 float64 `json:"s2,omitempty"`
	PrismS3 float64 `json:"s3,omitempty"`
	PrismS4 float64 `json:"s4,omitempty"`

	// Sensor tilt in radians.
	TiltX float64 `json:"tau_x,omitempty"`
	TiltY float64 `json:"tau_y,omitempty"`

	coefficients []float64
}

// NewBrownConrady takes in a slice of coefficients in OpenCV order. Missing trailing coefficients
// are zero and the slice is kept verbatim for Parameters.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > maxDistortionCoefficients {
		return nil, errors.Errorf("list of parameters too long, expected max %d, got %d", maxDistortionCoefficients, len(inp))
	}
	var p [maxDistortionCoefficients]float64
	copy(p[:], inp)
	stored := make([]float64, len(inp))
	copy(stored, inp)
	return &BrownConrady{
		RadialK1:     p[0],
		RadialK2:     p[1],
		TangentialP1: p[2],
		TangentialP2: p[3],
		RadialK3:     p[4],
		RadialK4:     p[5],
		RadialK5:     p[6],
		RadialK6:     p[7],
		PrismS1:      p[8],
		PrismS2:      p[9],
		PrismS3:      p[10],
		PrismS4:      p[11],
		TiltX:        p[12],
		TiltY:        p[13],
		coefficients: stored,
	}, nil
}

// all returns every coefficient in OpenCV order.
func (bc *BrownConrady) all() []float64 {
	return []float64{
		bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3,
		bc.RadialK4, bc.RadialK5, bc.RadialK6,
		bc.PrismS1, bc.PrismS2, bc.PrismS3, bc.PrismS4,
		bc.TiltX, bc.TiltY,
	}
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	if !utils.IsFinite(bc.all()...) {
		return InvalidDistortionError("BrownConrady parameters must be finite")
	}
	if math.Abs(bc.TiltX) >= math.Pi/2 || math.Abs(bc.TiltY) >= math.Pi/2 {
		return InvalidDistortionError("sensor tilt must be less than 90 degrees")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the coefficients exactly as they were given. A model built directly returns
// the shortest OpenCV length (5, 8, 12 or 14) that holds every non-zero coefficient.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	if bc.coefficients != nil {
		out := make([]float64, len(bc.coefficients))
		copy(out, bc.coefficients)
		return out
	}
	all := bc.all()
	n := 5
	for i := len(all) - 1; i >= n; i-- {
		if all[i] == 0 {
			continue
		}
		switch {
		case i >= 12:
			n = 14
		case i >= 8:
			n = 12
		default:
			n = 8
		}
		break
	}
	return all[:n]
}

// tilted reports whether the sensor tilt terms are in use.
func (bc *BrownConrady) tilted() bool {
	return bc.TiltX != 0 || bc.TiltY != 0
}

// tiltMatrix is the projection from the tilted sensor plane onto the image plane, as built by
// OpenCV's computeTiltProjectionMatrix.
func (bc *BrownConrady) tiltMatrix() mgl64.Mat3 {
	cx, sx := math.Cos(bc.TiltX), math.Sin(bc.TiltX)
	cy, sy := math.Cos(bc.TiltY), math.Sin(bc.TiltY)
	rotX := mgl64.Mat3FromRows(
		mgl64.Vec3{1, 0, 0},
		mgl64.Vec3{0, cx, sx},
		mgl64.Vec3{0, -sx, cx},
	)
	rotY := mgl64.Mat3FromRows(
		mgl64.Vec3{cy, 0, -sy},
		mgl64.Vec3{0, 1, 0},
		mgl64.Vec3{sy, 0, cy},
	)
	rotXY := rotY.Mul3(rotX)
	projZ := mgl64.Mat3FromRows(
		mgl64.Vec3{rotXY.At(2, 2), 0, -rotXY.At(0, 2)},
		mgl64.Vec3{0, rotXY.At(2, 2), -rotXY.At(1, 2)},
		mgl64.Vec3{0, 0, 1},
	)
	return projZ.Mul3(rotXY)
}

// Transform distorts undistorted normalized coordinates.
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	radDist := (1.0 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6) /
		(1.0 + bc.RadialK4*r2 + bc.RadialK5*r4 + bc.RadialK6*r6)
	xd := x*radDist + 2.0*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2.0*x*x) + bc.PrismS1*r2 + bc.PrismS2*r4
	yd := y*radDist + 2.0*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2.0*y*y) + bc.PrismS3*r2 + bc.PrismS4*r4
	if !bc.tilted() {
		return xd, yd
	}
	v := bc.tiltMatrix().Mul3x1(mgl64.Vec3{xd, yd, 1})
	if v.Z() == 0 {
		return v.X(), v.Y()
	}
	return v.X() / v.Z(), v.Y() / v.Z()
}

// Inverse returns the model that undoes this distortion.
func (bc *BrownConrady) Inverse() Distorter {
	return &InverseBrownConrady{Forward: *bc}
}
