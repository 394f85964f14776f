// Package geo maps pixel-space detections into geographic coordinates
// within a caller-supplied bounding box.
//
// The projection is a first-order linear interpolation with no lens or map
// projection correction. It is an approximation for visualization, not
// surveying-grade output.
package geo

import (
	"errors"
	"fmt"
)

// ErrProjection reports invalid geographic bounds or a zero-sized image.
var ErrProjection = errors.New("geo: invalid projection")

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox is the geographic area of interest under analysis.
type BoundingBox struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// Validate enforces the invariant that the north-east corner lies strictly
// north and east of the south-west corner.
func (b BoundingBox) Validate() error {
	if b.NorthEast.Lat <= b.SouthWest.Lat {
		return fmt.Errorf("%w: north-east lat %.6f not above south-west lat %.6f",
			ErrProjection, b.NorthEast.Lat, b.SouthWest.Lat)
	}
	if b.NorthEast.Lng <= b.SouthWest.Lng {
		return fmt.Errorf("%w: north-east lng %.6f not east of south-west lng %.6f",
			ErrProjection, b.NorthEast.Lng, b.SouthWest.Lng)
	}
	return nil
}

// Projector interpolates pixel coordinates into a bounding box.
type Projector struct {
	bounds BoundingBox
	width  float64
	height float64
}

// NewProjector builds a projector for an image of the given pixel
// dimensions covering the bounding box.
func NewProjector(bounds BoundingBox, imageWidth, imageHeight int) (*Projector, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, fmt.Errorf("%w: zero-sized image %dx%d", ErrProjection, imageWidth, imageHeight)
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	return &Projector{
		bounds: bounds,
		width:  float64(imageWidth),
		height: float64(imageHeight),
	}, nil
}

// Project maps a pixel coordinate to a geographic coordinate. Pixel row 0
// is the northern edge, so the vertical axis is flipped.
func (p *Projector) Project(px, py float64) LatLng {
	spanLng := p.bounds.NorthEast.Lng - p.bounds.SouthWest.Lng
	spanLat := p.bounds.NorthEast.Lat - p.bounds.SouthWest.Lat

	return LatLng{
		Lng: p.bounds.SouthWest.Lng + (px/p.width)*spanLng,
		Lat: p.bounds.NorthEast.Lat - (py/p.height)*spanLat,
	}
}
