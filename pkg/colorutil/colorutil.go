// Package colorutil provides shared overlay colors for annotated imagery.
package colorutil

import "image/color"

// Overlay colors used when drawing detections over source imagery.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Amber = color.RGBA{R: 255, G: 191, B: 0, A: 255}
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Cyan  = color.RGBA{R: 0, G: 255, B: 255, A: 255}
)

// Dim scales a color toward black by factor f in [0, 1]. Alpha is preserved.
func Dim(c color.RGBA, f float64) color.RGBA {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
