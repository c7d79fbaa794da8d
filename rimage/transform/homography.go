package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 matrix (represented as a 2D array) mapping one plane onto another up to scale.
// Indices are [row][column].
type Homography [3][3]float64

// At returns the element at row, col.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply maps a point through the homography.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// Dense returns the homography as a gonum matrix.
func (h *Homography) Dense() *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.Set(r, c, h[r][c])
		}
	}
	return out
}

// EstimateHomography computes the homography taking src to dst with the normalized direct linear
// transform (Multiple View Geometry, Alg 4.2). At least 4 correspondences are needed, no three
// of them collinear. The result is scaled so its bottom right element is 1 when that element is
// not zero.
func EstimateHomography(src, dst []r2.Point) (*Homography, error) {
	if len(src) != len(dst) {
		return nil, errors.New("sets of points src and dst must have the same number of elements")
	}
	if len(src) < 4 {
		return nil, errors.Errorf("at least 4 correspondences are needed, got %d", len(src))
	}
	srcN, srcT, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	dstN, dstT, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range srcN {
		s, d := srcN[i], dstN[i]
		a.SetRow(2*i, []float64{-s.X, -s.Y, -1, 0, 0, 0, d.X * s.X, d.X * s.Y, d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, -s.X, -s.Y, -1, d.Y * s.X, d.Y * s.Y, d.Y})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, errors.New("homography SVD failed to factorize")
	}
	var v mat.Dense
	svd.VTo(&v)
	values := svd.Values(nil)
	// With exactly 4 points the matrix is 8x9 and only 8 singular values exist; rank below 8
	// means a degenerate configuration.
	if len(values) >= 8 && values[7] <= 1e-12*values[0] {
		return nil, errors.New("degenerate point configuration for homography")
	}
	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	// H = dstT^-1 * Hn * srcT
	var dstTInv, tmp, full mat.Dense
	if err := dstTInv.Inverse(dstT); err != nil {
		return nil, errors.Wrap(err, "cannot invert normalization")
	}
	tmp.Mul(&dstTInv, hn)
	full.Mul(&tmp, srcT)

	scale := full.At(2, 2)
	if math.Abs(scale) < 1e-15 {
		scale = 1
	}
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = full.At(r, c) / scale
		}
	}
	return &h, nil
}

// normalizePoints centers points on their centroid and scales them so the mean distance to the
// origin is sqrt(2), as described in Multiple View Geometry, Alg 4.2.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := float64(len(pts))
	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / nPoints)

	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / nPoints
	}
	if d == 0 || math.IsNaN(d) {
		return nil, nil, errors.New("points are coincident or not finite")
	}
	scale := math.Sqrt(2) / d
	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = pt.Sub(mu).Mul(scale)
	}
	return out, t, nil
}
