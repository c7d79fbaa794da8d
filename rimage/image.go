// Package rimage holds the image helpers shared by capture, detection and rendering.
package rimage

import (
	"image"

	"golang.org/x/image/draw"
)

// ToRGBA converts any image to a 4-channel RGBA image whose bounds start at the origin. An
// *image.RGBA that already starts at the origin is copied so callers may keep the result
// after the source frame is released.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && src.Stride == dst.Stride {
		copy(dst.Pix, src.Pix)
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Resize scales an image to width x height. Sizes that already match only go through ToRGBA.
func Resize(img image.Image, width, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return ToRGBA(img)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ToBGRA returns the pixel buffer of an image in B, G, R, A byte order, the layout most
// texture upload paths expect.
func ToBGRA(img image.Image) []byte {
	rgba := ToRGBA(img)
	out := make([]byte, len(rgba.Pix))
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		out[i] = rgba.Pix[i+2]
		out[i+1] = rgba.Pix[i+1]
		out[i+2] = rgba.Pix[i]
		out[i+3] = rgba.Pix[i+3]
	}
	return out
}
