// Package region binarizes a dissimilarity map and extracts the connected
// change regions that survive noise cleanup.
package region

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"aoi-sentinel/internal/raster"
	"aoi-sentinel/pkg/geometry"
)

// ErrEmptyMap reports a missing or zero-dimension dissimilarity map.
var ErrEmptyMap = errors.New("region: empty dissimilarity map")

// Region is a connected set of changed pixels above the noise floor.
type Region struct {
	Bounds geometry.RectInt
	AreaPx int
}

// Options tunes extraction. The minimum area is resolution-dependent and
// must come from configuration, not a constant.
type Options struct {
	MinArea    int // noise floor in pixels; regions below it are discarded
	KernelSize int // structuring element side for open/close
	Iterations int // passes of each morphological operation
}

// DefaultOptions returns extraction defaults tuned for ~512-1024px imagery.
func DefaultOptions() Options {
	return Options{
		MinArea:    100,
		KernelSize: 5,
		Iterations: 2,
	}
}

// Extract binarizes the map with a variance-maximizing (Otsu) threshold,
// applies morphological opening then closing, and collects external
// contours. Opening runs first so isolated noise is removed before closing
// merges fragments of real regions. Holes inside a region are not reported
// separately. Returns the retained regions and a rendered binary mask with
// every retained region drawn filled.
func Extract(diffMap *image.Gray, opts Options) ([]Region, *image.Gray, error) {
	if diffMap == nil || diffMap.Bounds().Dx() <= 0 || diffMap.Bounds().Dy() <= 0 {
		return nil, nil, ErrEmptyMap
	}
	if opts.KernelSize < 1 || opts.Iterations < 1 || opts.MinArea < 1 {
		return nil, nil, fmt.Errorf("region: invalid options %+v", opts)
	}

	src := raster.GrayToMat(diffMap)
	defer src.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(src, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(opts.KernelSize, opts.KernelSize))
	defer kernel.Close()

	for i := 0; i < opts.Iterations; i++ {
		gocv.MorphologyEx(binary, &binary, gocv.MorphOpen, kernel)
	}
	for i := 0; i < opts.Iterations; i++ {
		gocv.MorphologyEx(binary, &binary, gocv.MorphClose, kernel)
	}

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	mask := gocv.NewMatWithSize(src.Rows(), src.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()

	var regions []Region
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area < float64(opts.MinArea) {
			continue
		}

		gocv.DrawContours(&mask, contours, i, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

		rect := gocv.BoundingRect(contours.At(i))
		regions = append(regions, Region{
			Bounds: geometry.RectFromImage(rect),
			AreaPx: int(area),
		})
	}

	return regions, raster.MatToGray(mask), nil
}
