package pipeline

import (
	"errors"
	"fmt"

	"aoi-sentinel/internal/diff"
	"aoi-sentinel/internal/region"
	"aoi-sentinel/internal/threat"
)

// ErrConfig reports invalid or out-of-range tunables.
var ErrConfig = errors.New("pipeline: invalid config")

// Config holds every tunable of one pipeline deployment.
type Config struct {
	// MinRegionArea is the noise floor in pixels. Resolution-dependent.
	MinRegionArea int

	// MorphKernelSize is the structuring element side for open/close.
	MorphKernelSize int

	// MorphIterations is the number of passes of each morphological op.
	MorphIterations int

	// SSIMWindow is the sliding-window side for the similarity metric.
	SSIMWindow int

	// Tiers is the area-threshold classification table.
	Tiers []threat.Tier

	// ScoringPolicy selects the risk aggregation; never mix policies
	// within one deployment.
	ScoringPolicy threat.ScoringPolicy

	// RiskWeights tunes the weighted-linear policy.
	RiskWeights threat.Weights
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		MinRegionArea:   region.DefaultOptions().MinArea,
		MorphKernelSize: region.DefaultOptions().KernelSize,
		MorphIterations: region.DefaultOptions().Iterations,
		SSIMWindow:      diff.DefaultWindow,
		Tiers:           threat.DefaultPolicy().Tiers,
		ScoringPolicy:   threat.ScoringWeightedLinear,
		RiskWeights:     threat.DefaultWeights(),
	}
}

// Validate checks every tunable, wrapping ErrConfig on the first violation.
func (c Config) Validate() error {
	if c.MinRegionArea < 1 {
		return fmt.Errorf("%w: min region area %d, want >= 1", ErrConfig, c.MinRegionArea)
	}
	if c.MorphKernelSize < 1 {
		return fmt.Errorf("%w: morph kernel size %d, want >= 1", ErrConfig, c.MorphKernelSize)
	}
	if c.MorphIterations < 1 {
		return fmt.Errorf("%w: morph iterations %d, want >= 1", ErrConfig, c.MorphIterations)
	}
	if c.SSIMWindow < 3 || c.SSIMWindow%2 == 0 {
		return fmt.Errorf("%w: ssim window %d, want odd >= 3", ErrConfig, c.SSIMWindow)
	}
	if err := (threat.Policy{Tiers: c.Tiers}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if _, err := threat.ParseScoringPolicy(string(c.ScoringPolicy)); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := c.RiskWeights.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}
