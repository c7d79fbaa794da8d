package fiducial

import (
	"image"
	"image/color"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/markerar/rimage"
	"go.viam.com/markerar/rimage/transform"
)

var (
	markerOutlineColor = color.RGBA{G: 255, A: 255}
	markerFirstCorner  = color.RGBA{R: 255, A: 255}
	markerLabelColor   = color.RGBA{R: 255, G: 255, A: 255}
	axisColors         = [3]color.Color{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{B: 255, A: 255},
	}
)

// DrawMarkers returns a copy of img with each marker outlined, its first corner marked and its
// id written at its center.
func DrawMarkers(img image.Image, markers []Marker) *image.RGBA {
	dc := gg.NewContextForRGBA(rimage.ToRGBA(img))
	for _, m := range markers {
		rimage.DrawPolygon(dc, m.Corners[:], markerOutlineColor, 2)
		dc.SetColor(markerFirstCorner)
		dc.DrawRectangle(m.Corners[0].X-3, m.Corners[0].Y-3, 6, 6)
		dc.Stroke()
		rimage.DrawString(dc, "id="+strconv.Itoa(m.ID), center(m.Corners[:]), markerLabelColor, 14)
	}
	return dc.Image().(*image.RGBA)
}

// DrawAxes returns a copy of img with the X, Y and Z axes of each pose drawn in red, green and
// blue. Each axis is axisLength long in marker units. Poses that project behind the camera are
// skipped.
func DrawAxes(
	img image.Image,
	poses []MarkerPose,
	model *transform.PinholeCameraModel,
	axisLength float64,
) (*image.RGBA, error) {
	dc := gg.NewContextForRGBA(rimage.ToRGBA(img))
	axes := []r3.Vector{
		{},
		{X: axisLength},
		{Y: axisLength},
		{Z: axisLength},
	}
	for _, pose := range poses {
		pts, err := ProjectPoints(axes, pose, model)
		if err != nil {
			if model == nil || model.PinholeCameraIntrinsics == nil {
				return nil, err
			}
			continue
		}
		for i := 1; i < len(pts); i++ {
			rimage.DrawSegment(dc, pts[0], pts[i], axisColors[i-1], 3)
		}
	}
	return dc.Image().(*image.RGBA), nil
}

func center(pts []r2.Point) r2.Point {
	var c r2.Point
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(pts)))
}
