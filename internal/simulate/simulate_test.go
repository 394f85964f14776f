package simulate

import (
	"errors"
	"reflect"
	"testing"

	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/pipeline"
)

var _ pipeline.Analyzer = (*Analyzer)(nil)

var testAOI = geo.BoundingBox{
	SouthWest: geo.LatLng{Lat: 34.0, Lng: 74.0},
	NorthEast: geo.LatLng{Lat: 34.5, Lng: 74.8},
}

func TestDeterministicWithSeed(t *testing.T) {
	run := func() *pipeline.Result {
		a, err := New(42, pipeline.DefaultConfig())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		result, err := a.Analyze(nil, nil, testAOI)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		return result
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first.Anomalies, second.Anomalies) {
		t.Error("same seed produced different anomalies")
	}
	if first.Risk.Score != second.Risk.Score {
		t.Errorf("same seed produced different risk: %v vs %v", first.Risk.Score, second.Risk.Score)
	}
}

func TestFabricatedReportShape(t *testing.T) {
	a, err := New(7, pipeline.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := a.Analyze(nil, nil, testAOI)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(result.Anomalies) < 1 || len(result.Anomalies) > 4 {
		t.Fatalf("got %d anomalies, want 1..4", len(result.Anomalies))
	}
	if len(result.GeoJSON.Features) != len(result.Anomalies) {
		t.Errorf("features (%d) != anomalies (%d)", len(result.GeoJSON.Features), len(result.Anomalies))
	}
	if result.Risk.Score < 0 || result.Risk.Score > 10 {
		t.Errorf("risk %v outside [0,10]", result.Risk.Score)
	}
	if result.SimilarityScore < 0 || result.SimilarityScore > 1 {
		t.Errorf("similarity %v outside [0,1]", result.SimilarityScore)
	}

	bounds := result.Mask.Bounds()
	if bounds.Dx() != defaultWidth || bounds.Dy() != defaultHeight {
		t.Errorf("mask dims = %dx%d, want default canvas", bounds.Dx(), bounds.Dy())
	}

	for _, an := range result.Anomalies {
		if an.Bounds.X < 0 || an.Bounds.Y < 0 ||
			an.Bounds.X2() > defaultWidth || an.Bounds.Y2() > defaultHeight {
			t.Errorf("anomaly bounds %+v leave the canvas", an.Bounds)
		}
		if result.Mask.GrayAt(an.Bounds.X, an.Bounds.Y).Y != 255 {
			t.Errorf("mask not filled at anomaly origin %+v", an.Bounds)
		}
	}
}

func TestEnforcesAOIInvariant(t *testing.T) {
	a, err := New(1, pipeline.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bad := geo.BoundingBox{
		SouthWest: geo.LatLng{Lat: 35.0, Lng: 74.0},
		NorthEast: geo.LatLng{Lat: 34.0, Lng: 74.8},
	}
	if _, err := a.Analyze(nil, nil, bad); !errors.Is(err, geo.ErrProjection) {
		t.Fatalf("Analyze error = %v, want ErrProjection", err)
	}
}

func TestRejectsInvalidConfig(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.Tiers = nil
	if _, err := New(1, cfg); !errors.Is(err, pipeline.ErrConfig) {
		t.Fatalf("New error = %v, want ErrConfig", err)
	}
}
