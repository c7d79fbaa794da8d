package transform

// InverseBrownConrady undoes a BrownConrady distortion. Marker corners are found in the distorted
// image, so they pass through this before any geometry is done on them.
type InverseBrownConrady struct {
	Forward BrownConrady `json:"forward"`
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return ibc.Forward.CheckValid()
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the coefficients of the forward model.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.Forward.Parameters()
}

// Inverse returns the forward model.
func (ibc *InverseBrownConrady) Inverse() Distorter {
	fwd := ibc.Forward
	return &fwd
}

// Transform converts distorted normalized points to undistorted ones with Newton-Raphson
// iterations on the forward model, starting from the distorted point. The Jacobian is taken by
// central differences so every term of the forward model, including the rational denominator and
// the sensor tilt, is inverted the same way.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	fwd := &ibc.Forward

	const (
		maxIterations = 30
		tolerance     = 1e-12
		step          = 1e-7
	)

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		xdEst, ydEst := fwd.Transform(xu, yu)
		errX, errY := xdEst-xd, ydEst-yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		// J = [[dxd/dxu, dxd/dyu], [dyd/dxu, dyd/dyu]]
		xp, yp := fwd.Transform(xu+step, yu)
		xm, ym := fwd.Transform(xu-step, yu)
		dxdDxu, dydDxu := (xp-xm)/(2*step), (yp-ym)/(2*step)
		xp, yp = fwd.Transform(xu, yu+step)
		xm, ym = fwd.Transform(xu, yu-step)
		dxdDyu, dydDyu := (xp-xm)/(2*step), (yp-ym)/(2*step)

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}

		// Update: [xu, yu] -= J^-1 * [errX, errY]
		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}

	return xu, yu
}
