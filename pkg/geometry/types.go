// Package geometry provides the pixel-space types shared by the detection
// pipeline.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RectInt represents an axis-aligned rectangle with integer pixel coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectFromImage converts a stdlib image.Rectangle to a RectInt.
func RectFromImage(r image.Rectangle) RectInt {
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// X2 returns the exclusive right edge.
func (r RectInt) X2() int { return r.X + r.Width }

// Y2 returns the exclusive bottom edge.
func (r RectInt) Y2() int { return r.Y + r.Height }

// Area returns the rectangle area in pixels.
func (r RectInt) Area() int { return r.Width * r.Height }

// Center returns the center point of the rectangle.
func (r RectInt) Center() Point2D {
	return Point2D{
		X: float64(r.X) + float64(r.Width)/2,
		Y: float64(r.Y) + float64(r.Height)/2,
	}
}

// Contains returns true if the pixel coordinate is inside the rectangle.
func (r RectInt) Contains(x, y int) bool {
	return x >= r.X && x < r.X2() && y >= r.Y && y < r.Y2()
}
