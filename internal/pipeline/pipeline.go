// Package pipeline chains the change-detection stages: precondition,
// structural diff, region extraction, threat classification, risk scoring,
// and geo-projection. Each run is a pure function of its inputs; a single
// Pipeline is safe for concurrent use.
package pipeline

import (
	"fmt"
	"image"

	"aoi-sentinel/internal/diff"
	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/raster"
	"aoi-sentinel/internal/region"
	"aoi-sentinel/internal/threat"
)

// Analyzer produces a change report for two co-registered rasters of an
// area of interest. The production pipeline and the simulated test double
// both satisfy it.
type Analyzer interface {
	Analyze(before, after *raster.Image, aoi geo.BoundingBox) (*Result, error)
}

// Result is the change report for one run.
type Result struct {
	// Mask is the rendered binary change mask, before-image dimensions.
	Mask *image.Gray

	// SimilarityScore is the global SSIM in [0,1]; 1.0 means identical.
	SimilarityScore float64

	Anomalies []threat.Anomaly
	Risk      threat.RiskAssessment
	GeoJSON   geo.FeatureCollection
}

// HasChanges reports whether any anomaly survived the noise floor.
func (r *Result) HasChanges() bool { return len(r.Anomalies) > 0 }

// HasLevel reports whether any anomaly reached the given threat level.
func (r *Result) HasLevel(l threat.Level) bool {
	return r.Risk.CountByLevel[l] > 0
}

// Pipeline is the production Analyzer.
type Pipeline struct {
	cfg    Config
	engine *diff.Engine
	policy threat.Policy
}

// New validates the config and builds a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:    cfg,
		engine: diff.NewEngine(cfg.SSIMWindow),
		policy: threat.Policy{Tiers: cfg.Tiers},
	}, nil
}

// Analyze runs the full pipeline. The after image is resampled to the
// before image's dimensions; both are reduced to luminance before the
// similarity pass, so color-only change (a repainted but unchanged-shape
// structure) is not detected. Every failure is reported explicitly; there
// is no silent "no change" substitute.
func (p *Pipeline) Analyze(before, after *raster.Image, aoi geo.BoundingBox) (*Result, error) {
	if before == nil || after == nil {
		return nil, fmt.Errorf("%w: nil input raster", raster.ErrDecode)
	}

	width, height := before.Width(), before.Height()

	// Reject a bad AOI before the expensive stages run.
	projector, err := geo.NewProjector(aoi, width, height)
	if err != nil {
		return nil, err
	}

	aligned := raster.Resize(after, width, height)
	grayBefore := before.Grayscale()
	grayAfter := aligned.Grayscale()

	diffResult, err := p.engine.Compare(grayBefore, grayAfter)
	if err != nil {
		return nil, err
	}

	regions, mask, err := region.Extract(diffResult.DissimilarityMap, region.Options{
		MinArea:    p.cfg.MinRegionArea,
		KernelSize: p.cfg.MorphKernelSize,
		Iterations: p.cfg.MorphIterations,
	})
	if err != nil {
		return nil, err
	}

	anomalies := make([]threat.Anomaly, 0, len(regions))
	for _, r := range regions {
		anomalies = append(anomalies, p.policy.Classify(r))
	}

	risk := threat.ScoreRisk(anomalies, diffResult.Score, p.cfg.ScoringPolicy, p.cfg.RiskWeights)

	collection := geo.NewFeatureCollection()
	for _, a := range anomalies {
		center := a.Bounds.Center()
		collection.Features = append(collection.Features, geo.NewPointFeature(
			projector.Project(center.X, center.Y),
			map[string]interface{}{
				"type":         "New Anomaly",
				"class":        a.Class,
				"confidence":   a.Confidence,
				"threat_level": a.Level.String(),
				"area_px":      a.AreaPx,
			},
		))
	}

	return &Result{
		Mask:            mask,
		SimilarityScore: diffResult.Score,
		Anomalies:       anomalies,
		Risk:            risk,
		GeoJSON:         collection,
	}, nil
}
