// Package simulate provides a deterministic stand-in Analyzer for demos and
// tests. It fabricates anomalies from a seeded random source instead of
// comparing imagery and is never wired into the production analysis path.
package simulate

import (
	"image"
	"image/color"
	"math/rand"

	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/pipeline"
	"aoi-sentinel/internal/raster"
	"aoi-sentinel/internal/region"
	"aoi-sentinel/internal/threat"
	"aoi-sentinel/pkg/geometry"
)

// Canvas dimensions used when no before image is supplied.
const (
	defaultWidth  = 512
	defaultHeight = 512
)

// Analyzer fabricates change reports. Same seed, same report.
type Analyzer struct {
	rng    *rand.Rand
	cfg    pipeline.Config
	policy threat.Policy
}

// New builds a simulated analyzer. The config supplies the classification
// table and scoring policy so fabricated reports match the deployment's
// real tuning.
func New(seed int64, cfg pipeline.Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		rng:    rand.New(rand.NewSource(seed)),
		cfg:    cfg,
		policy: threat.Policy{Tiers: cfg.Tiers},
	}, nil
}

// Analyze fabricates one to four anomalies inside the image frame. The
// images are only consulted for their dimensions; a nil before image uses
// a 512x512 canvas. The AOI invariant is still enforced so the double
// fails the same way the real pipeline does on caller error.
func (a *Analyzer) Analyze(before, _ *raster.Image, aoi geo.BoundingBox) (*pipeline.Result, error) {
	width, height := defaultWidth, defaultHeight
	if before != nil {
		width, height = before.Width(), before.Height()
	}

	projector, err := geo.NewProjector(aoi, width, height)
	if err != nil {
		return nil, err
	}

	count := 1 + a.rng.Intn(4)
	mask := image.NewGray(image.Rect(0, 0, width, height))

	anomalies := make([]threat.Anomaly, 0, count)
	for i := 0; i < count; i++ {
		w := 10 + a.rng.Intn(width/4)
		h := 10 + a.rng.Intn(height/4)
		x := a.rng.Intn(width - w)
		y := a.rng.Intn(height - h)

		r := geometry.RectInt{X: x, Y: y, Width: w, Height: h}
		fillRect(mask, r)

		anomalies = append(anomalies, a.policy.Classify(regionOf(r)))
	}

	// Fabricated similarity: the more area invented, the less similar.
	total := 0
	for _, an := range anomalies {
		total += an.AreaPx
	}
	similarity := 1.0 - float64(total)/float64(width*height)
	if similarity < 0 {
		similarity = 0
	}

	risk := threat.ScoreRisk(anomalies, similarity, a.cfg.ScoringPolicy, a.cfg.RiskWeights)

	collection := geo.NewFeatureCollection()
	for _, an := range anomalies {
		center := an.Bounds.Center()
		collection.Features = append(collection.Features, geo.NewPointFeature(
			projector.Project(center.X, center.Y),
			map[string]interface{}{
				"type":         "Simulated Detection",
				"class":        an.Class,
				"confidence":   an.Confidence,
				"threat_level": an.Level.String(),
				"area_px":      an.AreaPx,
			},
		))
	}

	return &pipeline.Result{
		Mask:            mask,
		SimilarityScore: similarity,
		Anomalies:       anomalies,
		Risk:            risk,
		GeoJSON:         collection,
	}, nil
}

func regionOf(r geometry.RectInt) region.Region {
	return region.Region{Bounds: r, AreaPx: r.Area()}
}

func fillRect(mask *image.Gray, r geometry.RectInt) {
	white := color.Gray{Y: 255}
	for y := r.Y; y < r.Y2(); y++ {
		for x := r.X; x < r.X2(); x++ {
			mask.SetGray(x, y, white)
		}
	}
}
