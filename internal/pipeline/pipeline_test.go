package pipeline

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/raster"
	"aoi-sentinel/internal/threat"
)

var testAOI = geo.BoundingBox{
	SouthWest: geo.LatLng{Lat: 34.0, Lng: 74.0},
	NorthEast: geo.LatLng{Lat: 34.5, Lng: 74.8},
}

// grayRaster builds a uniform 512x512 raster.
func grayRaster(t *testing.T, value uint8) *raster.Image {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 512, 512))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	r, err := raster.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	return r
}

// grayRasterWithRect builds a uniform raster with one filled rectangle.
func grayRasterWithRect(t *testing.T, value uint8, rect image.Rectangle, rectValue uint8) *raster.Image {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 512, 512))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: rectValue})
		}
	}
	r, err := raster.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	return r
}

func TestIdenticalImagesReportNoChange(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := p.Analyze(grayRaster(t, 128), grayRaster(t, 128), testAOI)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if math.Abs(result.SimilarityScore-1.0) > 1e-9 {
		t.Errorf("similarity = %v, want 1.0", result.SimilarityScore)
	}
	if len(result.Anomalies) != 0 {
		t.Errorf("got %d anomalies, want 0", len(result.Anomalies))
	}
	if result.Risk.Score != 0 {
		t.Errorf("risk = %v, want 0", result.Risk.Score)
	}
	if result.HasChanges() {
		t.Error("HasChanges = true for identical inputs")
	}
	if len(result.GeoJSON.Features) != 0 {
		t.Errorf("got %d geo features, want 0", len(result.GeoJSON.Features))
	}
}

func TestWhiteRectangleDetectedAsHighThreat(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := grayRaster(t, 128)
	after := grayRasterWithRect(t, 128, image.Rect(100, 100, 200, 200), 255)

	result, err := p.Analyze(before, after, testAOI)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.SimilarityScore >= 1.0 {
		t.Errorf("similarity = %v, want < 1.0", result.SimilarityScore)
	}
	if len(result.Anomalies) != 1 {
		t.Fatalf("got %d anomalies, want exactly 1", len(result.Anomalies))
	}

	a := result.Anomalies[0]
	// The SSIM window halo grows the region by a few pixels per side.
	if a.AreaPx < 9000 || a.AreaPx > 14000 {
		t.Errorf("area = %d px, want ~10000", a.AreaPx)
	}
	if a.Level != threat.LevelHigh {
		t.Errorf("level = %s, want HIGH", a.Level)
	}
	if a.AreaPx < DefaultConfig().MinRegionArea {
		t.Errorf("anomaly below configured noise floor: %d", a.AreaPx)
	}
	if result.Risk.Score <= 0 {
		t.Errorf("risk = %v, want > 0", result.Risk.Score)
	}

	// The single feature must project inside the AOI.
	if len(result.GeoJSON.Features) != 1 {
		t.Fatalf("got %d geo features, want 1", len(result.GeoJSON.Features))
	}
	coords := result.GeoJSON.Features[0].Geometry.Coordinates
	lng, lat := coords[0], coords[1]
	if lng < testAOI.SouthWest.Lng || lng > testAOI.NorthEast.Lng ||
		lat < testAOI.SouthWest.Lat || lat > testAOI.NorthEast.Lat {
		t.Errorf("feature at (%v,%v) outside AOI", lng, lat)
	}
}

func TestAnalyzeResizesSecondImage(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	small := image.NewGray(image.Rect(0, 0, 256, 256))
	for i := range small.Pix {
		small.Pix[i] = 128
	}
	after, err := raster.FromImage(small)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	result, err := p.Analyze(grayRaster(t, 128), after, testAOI)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Mask.Bounds(); got.Dx() != 512 || got.Dy() != 512 {
		t.Errorf("mask dims = %dx%d, want before's 512x512", got.Dx(), got.Dy())
	}
}

func TestAnalyzeRejectsInvalidAOI(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	badAOI := geo.BoundingBox{
		SouthWest: geo.LatLng{Lat: 35.0, Lng: 74.0},
		NorthEast: geo.LatLng{Lat: 34.0, Lng: 74.8},
	}
	if _, err := p.Analyze(grayRaster(t, 128), grayRaster(t, 128), badAOI); !errors.Is(err, geo.ErrProjection) {
		t.Fatalf("Analyze error = %v, want ErrProjection", err)
	}
}

func TestAnalyzeRejectsNilInput(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Analyze(nil, grayRaster(t, 128), testAOI); !errors.Is(err, raster.ErrDecode) {
		t.Fatalf("Analyze(nil, ...) error = %v, want ErrDecode", err)
	}
}

func TestConfigValidate(t *testing.T) {
	mutate := func(f func(*Config)) Config {
		cfg := DefaultConfig()
		f(&cfg)
		return cfg
	}

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero min area", mutate(func(c *Config) { c.MinRegionArea = 0 }), true},
		{"zero kernel", mutate(func(c *Config) { c.MorphKernelSize = 0 }), true},
		{"zero iterations", mutate(func(c *Config) { c.MorphIterations = 0 }), true},
		{"even ssim window", mutate(func(c *Config) { c.SSIMWindow = 8 }), true},
		{"tiny ssim window", mutate(func(c *Config) { c.SSIMWindow = 1 }), true},
		{"no tiers", mutate(func(c *Config) { c.Tiers = nil }), true},
		{"bad policy", mutate(func(c *Config) { c.ScoringPolicy = "BOTH" }), true},
		{"bad weights", mutate(func(c *Config) { c.RiskWeights.AreaNormalizer = 0 }), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate = %v, wantErr %v", err, c.wantErr)
			}
			if c.wantErr && !errors.Is(err, ErrConfig) {
				t.Fatalf("error %v does not wrap ErrConfig", err)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRegionArea = -5
	if _, err := New(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("New error = %v, want ErrConfig", err)
	}
}
