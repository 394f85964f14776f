package raster

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// GrayToMat copies a grayscale image into a single-channel 8-bit Mat.
// The caller owns the returned Mat and must Close it.
func GrayToMat(g *image.Gray) gocv.Mat {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mat.SetUCharAt(y, x, g.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
		}
	}

	return mat
}

// MatToGray copies a single-channel 8-bit Mat into an image.Gray.
func MatToGray(m gocv.Mat) *image.Gray {
	h, w := m.Rows(), m.Cols()
	gray := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray.SetGray(x, y, color.Gray{Y: m.GetUCharAt(y, x)})
		}
	}

	return gray
}
