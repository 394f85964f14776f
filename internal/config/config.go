// Package config loads AOI Sentinel service configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"aoi-sentinel/internal/pipeline"
	"aoi-sentinel/internal/threat"
)

// Config holds service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8000"
}

type StorageConfig struct {
	// StaticDir receives rendered change masks and is served at /static/.
	// The server owns this namespace and generates collision-free names.
	StaticDir string `yaml:"static_dir"`
}

// PipelineConfig mirrors pipeline.Config with YAML-friendly field types.
type PipelineConfig struct {
	MinRegionArea   int          `yaml:"min_region_area_px"`
	MorphKernelSize int          `yaml:"morph_kernel_size"`
	MorphIterations int          `yaml:"morph_iterations"`
	SSIMWindow      int          `yaml:"ssim_window"`
	ScoringPolicy   string       `yaml:"risk_scoring_policy"` // WEIGHTED_LINEAR | THREAT_TIER_COUNT
	RiskWeights     WeightConfig `yaml:"risk_weights"`
	Tiers           []TierConfig `yaml:"threat_thresholds"`
}

type WeightConfig struct {
	Count          float64 `yaml:"count"`
	Area           float64 `yaml:"area"`
	Dissimilarity  float64 `yaml:"dissimilarity"`
	AreaNormalizer float64 `yaml:"area_normalizer"`
}

// TierConfig is one row of the classification table, descending by area.
type TierConfig struct {
	MinArea int    `yaml:"area_px"`
	Class   string `yaml:"class"`
	Threat  string `yaml:"threat"` // LOW | MEDIUM | HIGH
}

// MonitorConfig points the demo monitor endpoint at a fixture image pair.
// When the paths are empty the endpoint falls back to the simulated
// analyzer.
type MonitorConfig struct {
	BeforeImage string `yaml:"before_image"`
	AfterImage  string `yaml:"after_image"`
	Seed        int64  `yaml:"seed"`
}

// Load reads configuration from a YAML file. A missing file yields the
// default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	def := pipeline.DefaultConfig()

	tiers := make([]TierConfig, 0, len(def.Tiers))
	for _, t := range def.Tiers {
		tiers = append(tiers, TierConfig{MinArea: t.MinArea, Class: t.Class, Threat: t.Level.String()})
	}

	return &Config{
		Server:  ServerConfig{Addr: ":8000"},
		Storage: StorageConfig{StaticDir: "static"},
		Pipeline: PipelineConfig{
			MinRegionArea:   def.MinRegionArea,
			MorphKernelSize: def.MorphKernelSize,
			MorphIterations: def.MorphIterations,
			SSIMWindow:      def.SSIMWindow,
			ScoringPolicy:   string(def.ScoringPolicy),
			RiskWeights: WeightConfig{
				Count:          def.RiskWeights.Count,
				Area:           def.RiskWeights.Area,
				Dissimilarity:  def.RiskWeights.Dissimilarity,
				AreaNormalizer: def.RiskWeights.AreaNormalizer,
			},
			Tiers: tiers,
		},
		Monitor: MonitorConfig{Seed: 1},
	}
}

// PipelineConfig converts the YAML form into a validated pipeline.Config.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	policy, err := threat.ParseScoringPolicy(c.Pipeline.ScoringPolicy)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: %v", pipeline.ErrConfig, err)
	}

	tiers := make([]threat.Tier, 0, len(c.Pipeline.Tiers))
	for _, t := range c.Pipeline.Tiers {
		level, err := threat.ParseLevel(t.Threat)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("%w: %v", pipeline.ErrConfig, err)
		}
		tiers = append(tiers, threat.Tier{MinArea: t.MinArea, Class: t.Class, Level: level})
	}

	cfg := pipeline.Config{
		MinRegionArea:   c.Pipeline.MinRegionArea,
		MorphKernelSize: c.Pipeline.MorphKernelSize,
		MorphIterations: c.Pipeline.MorphIterations,
		SSIMWindow:      c.Pipeline.SSIMWindow,
		Tiers:           tiers,
		ScoringPolicy:   policy,
		RiskWeights: threat.Weights{
			Count:          c.Pipeline.RiskWeights.Count,
			Area:           c.Pipeline.RiskWeights.Area,
			Dissimilarity:  c.Pipeline.RiskWeights.Dissimilarity,
			AreaNormalizer: c.Pipeline.RiskWeights.AreaNormalizer,
		},
	}

	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return cfg, nil
}
