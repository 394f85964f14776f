package raster

import (
	"image"
	"image/color"
	"image/draw"

	"aoi-sentinel/pkg/geometry"
)

// Box pairs a pixel rectangle with an outline color for annotation.
type Box struct {
	Rect  geometry.RectInt
	Color color.RGBA
}

// Annotate draws box outlines over a copy of img and returns the copy.
// Boxes are clipped to the image bounds. A thickness below 1 is drawn
// as 1 pixel.
func Annotate(img image.Image, boxes []Box, thickness int) *image.RGBA {
	if thickness < 1 {
		thickness = 1
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for _, b := range boxes {
		drawOutline(out, b.Rect, b.Color, thickness)
	}
	return out
}

func drawOutline(img *image.RGBA, r geometry.RectInt, c color.RGBA, thickness int) {
	// Top and bottom edges.
	fillClipped(img, r.X, r.Y, r.X2(), r.Y+thickness, c)
	fillClipped(img, r.X, r.Y2()-thickness, r.X2(), r.Y2(), c)
	// Left and right edges.
	fillClipped(img, r.X, r.Y, r.X+thickness, r.Y2(), c)
	fillClipped(img, r.X2()-thickness, r.Y, r.X2(), r.Y2(), c)
}

func fillClipped(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	clip := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
