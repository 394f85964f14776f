// Package raster provides decoding, scaling, and color conversion for the
// imagery handed to the change-detection pipeline.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ErrDecode reports an input that could not be turned into a usable raster.
var ErrDecode = errors.New("raster: decode failed")

// Image wraps a decoded pixel buffer. The pipeline never mutates it; every
// transformation returns a fresh buffer.
type Image struct {
	Data image.Image
}

// Decode decodes PNG, JPEG, or TIFF bytes into an Image.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrDecode)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s image has zero dimensions", ErrDecode, format)
	}

	return &Image{Data: img}, nil
}

// FromImage wraps an already-decoded image.
func FromImage(img image.Image) (*Image, error) {
	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, fmt.Errorf("%w: nil or zero-dimension image", ErrDecode)
	}
	return &Image{Data: img}, nil
}

// Width returns the image width in pixels.
func (i *Image) Width() int {
	if i == nil || i.Data == nil {
		return 0
	}
	return i.Data.Bounds().Dx()
}

// Height returns the image height in pixels.
func (i *Image) Height() int {
	if i == nil || i.Data == nil {
		return 0
	}
	return i.Data.Bounds().Dy()
}

// Grayscale converts the image to single-channel luminance.
func (i *Image) Grayscale() *image.Gray {
	bounds := i.Data.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x-bounds.Min.X, y-bounds.Min.Y, color.GrayModel.Convert(i.Data.At(x, y)))
		}
	}

	return gray
}

// Resize scales the image to the given dimensions with bilinear
// interpolation. Bilinear keeps resampling artifacts below the noise floor
// the extractor removes; nearest-neighbor blocking can survive thresholding
// and read as change.
func Resize(img *Image, width, height int) *Image {
	if img.Width() == width && img.Height() == height {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img.Data, img.Data.Bounds(), draw.Src, nil)
	return &Image{Data: dst}
}

// EncodePNG encodes a raster to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
