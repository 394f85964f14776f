// Package diff computes a windowed structural-similarity score and a
// per-pixel dissimilarity map for two co-registered grayscale rasters.
package diff

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"aoi-sentinel/internal/raster"
)

// ErrDimensionMismatch reports rasters whose sizes cannot be reconciled.
var ErrDimensionMismatch = errors.New("diff: dimension mismatch")

// Stabilizing constants for an 8-bit dynamic range (K1=0.01, K2=0.03, L=255).
const (
	c1 = 6.5025
	c2 = 58.5225
)

// DefaultWindow is the mean-filter window size used when none is configured.
const DefaultWindow = 7

// Result holds the outcome of one comparison.
type Result struct {
	// Score is the mean structural similarity in [0,1]; 1.0 means the
	// rasters are identical. Symmetric under swapping the inputs.
	Score float64

	// DissimilarityMap is (1-ssim)*255 per pixel, same dimensions as the
	// inputs. Higher values mean more local change.
	DissimilarityMap *image.Gray
}

// Engine computes windowed SSIM with a uniform (box) filter.
type Engine struct {
	window int
}

// NewEngine creates an engine with the given odd window size.
// Sizes below 3 fall back to DefaultWindow.
func NewEngine(window int) *Engine {
	if window < 3 {
		window = DefaultWindow
	}
	if window%2 == 0 {
		window++
	}
	return &Engine{window: window}
}

// Compare computes the SSIM score and dissimilarity map for two
// equal-dimension grayscale rasters. Failures are reported explicitly;
// there is no degenerate "no change" fallback.
func (e *Engine) Compare(a, b *image.Gray) (*Result, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil raster", ErrDimensionMismatch)
	}

	aw, ah := a.Bounds().Dx(), a.Bounds().Dy()
	bw, bh := b.Bounds().Dx(), b.Bounds().Dy()
	if aw != bw || ah != bh {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, aw, ah, bw, bh)
	}
	if aw < e.window || ah < e.window {
		return nil, fmt.Errorf("%w: %dx%d smaller than %d-pixel window", ErrDimensionMismatch, aw, ah, e.window)
	}

	ma := raster.GrayToMat(a)
	defer ma.Close()
	mb := raster.GrayToMat(b)
	defer mb.Close()

	fa := gocv.NewMat()
	defer fa.Close()
	ma.ConvertTo(&fa, gocv.MatTypeCV64F)

	fb := gocv.NewMat()
	defer fb.Close()
	mb.ConvertTo(&fb, gocv.MatTypeCV64F)

	ssimMap := e.ssimMap(fa, fb)
	defer ssimMap.Close()

	score, err := e.meanOverValidWindow(ssimMap)
	if err != nil {
		return nil, err
	}

	// Dissimilarity surface: (1 - ssim) * 255, saturated into 8 bits.
	dm := ssimMap.Clone()
	defer dm.Close()
	dm.MultiplyFloat(-255)
	dm.AddFloat(255)

	u8 := gocv.NewMat()
	defer u8.Close()
	dm.ConvertTo(&u8, gocv.MatTypeCV8U)

	return &Result{
		Score:            score,
		DissimilarityMap: raster.MatToGray(u8),
	}, nil
}

// ssimMap computes the per-pixel SSIM surface over CV64F inputs using the
// standard formulation: local means and (co)variances from a box filter,
// combined with the c1/c2 stabilizers.
func (e *Engine) ssimMap(fa, fb gocv.Mat) gocv.Mat {
	ksize := image.Pt(e.window, e.window)

	mu1 := gocv.NewMat()
	defer mu1.Close()
	gocv.Blur(fa, &mu1, ksize)

	mu2 := gocv.NewMat()
	defer mu2.Close()
	gocv.Blur(fb, &mu2, ksize)

	mu1sq := gocv.NewMat()
	defer mu1sq.Close()
	gocv.Multiply(mu1, mu1, &mu1sq)

	mu2sq := gocv.NewMat()
	defer mu2sq.Close()
	gocv.Multiply(mu2, mu2, &mu2sq)

	mu1mu2 := gocv.NewMat()
	defer mu1mu2.Close()
	gocv.Multiply(mu1, mu2, &mu1mu2)

	sigma1sq := localVariance(fa, fa, mu1sq, ksize)
	defer sigma1sq.Close()

	sigma2sq := localVariance(fb, fb, mu2sq, ksize)
	defer sigma2sq.Close()

	sigma12 := localVariance(fa, fb, mu1mu2, ksize)
	defer sigma12.Close()

	// (2*mu1*mu2 + c1) * (2*sigma12 + c2)
	num1 := mu1mu2.Clone()
	defer num1.Close()
	num1.MultiplyFloat(2)
	num1.AddFloat(c1)

	num2 := sigma12.Clone()
	defer num2.Close()
	num2.MultiplyFloat(2)
	num2.AddFloat(c2)

	num := gocv.NewMat()
	defer num.Close()
	gocv.Multiply(num1, num2, &num)

	// (mu1^2 + mu2^2 + c1) * (sigma1^2 + sigma2^2 + c2)
	den1 := gocv.NewMat()
	defer den1.Close()
	gocv.Add(mu1sq, mu2sq, &den1)
	den1.AddFloat(c1)

	den2 := gocv.NewMat()
	defer den2.Close()
	gocv.Add(sigma1sq, sigma2sq, &den2)
	den2.AddFloat(c2)

	den := gocv.NewMat()
	defer den.Close()
	gocv.Multiply(den1, den2, &den)

	ssim := gocv.NewMat()
	gocv.Divide(num, den, &ssim)
	return ssim
}

// localVariance returns blur(a*b) - mu, the windowed (co)variance surface.
func localVariance(a, b, mu gocv.Mat, ksize image.Point) gocv.Mat {
	prod := gocv.NewMat()
	defer prod.Close()
	gocv.Multiply(a, b, &prod)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.Blur(prod, &blurred, ksize)

	out := gocv.NewMat()
	gocv.Subtract(blurred, mu, &out)
	return out
}

// meanOverValidWindow averages the SSIM surface over the region where the
// filter window fits entirely inside the image, so border effects do not
// skew the global score.
func (e *Engine) meanOverValidWindow(ssimMap gocv.Mat) (float64, error) {
	pad := e.window / 2
	rect := image.Rect(pad, pad, ssimMap.Cols()-pad, ssimMap.Rows()-pad)

	valid := ssimMap.Region(rect)
	defer valid.Close()

	// Clone to get a contiguous buffer for the raw float view.
	cont := valid.Clone()
	defer cont.Close()

	vals, err := cont.DataPtrFloat64()
	if err != nil {
		return 0, fmt.Errorf("read ssim surface: %w", err)
	}

	return stat.Mean(vals, nil), nil
}
