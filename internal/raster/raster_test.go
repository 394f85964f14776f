package raster

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	return data
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty buffer", nil},
		{"garbage bytes", []byte("not an image at all")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Decode(c.data)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("Decode error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 16))
	img, err := Decode(pngBytes(t, src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width() != 32 || img.Height() != 16 {
		t.Fatalf("dimensions = %dx%d, want 32x16", img.Width(), img.Height())
	}
}

func TestFromImageRejectsNil(t *testing.T) {
	if _, err := FromImage(nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("FromImage(nil) error = %v, want ErrDecode", err)
	}
}

func TestResize(t *testing.T) {
	src, err := FromImage(image.NewRGBA(image.Rect(0, 0, 100, 50)))
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	out := Resize(src, 40, 20)
	if out.Width() != 40 || out.Height() != 20 {
		t.Fatalf("resized to %dx%d, want 40x20", out.Width(), out.Height())
	}

	// Same dimensions should not allocate a new buffer.
	if same := Resize(src, 100, 50); same != src {
		t.Error("Resize to identical dimensions should return the input")
	}
}

func TestGrayscaleLuminance(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 1))
	rgba.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	rgba.Set(1, 0, color.RGBA{A: 255})

	img, err := FromImage(rgba)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	gray := img.Grayscale()
	if got := gray.GrayAt(0, 0).Y; got != 255 {
		t.Errorf("white pixel luminance = %d, want 255", got)
	}
	if got := gray.GrayAt(1, 0).Y; got != 0 {
		t.Errorf("black pixel luminance = %d, want 0", got)
	}
}

func TestGrayMatRoundTrip(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			gray.SetGray(x, y, color.Gray{Y: uint8(x*16 + y)})
		}
	}

	mat := GrayToMat(gray)
	defer mat.Close()

	back := MatToGray(mat)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if back.GrayAt(x, y) != gray.GrayAt(x, y) {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, back.GrayAt(x, y), gray.GrayAt(x, y))
			}
		}
	}
}
