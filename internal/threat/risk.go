package threat

import "fmt"

// ScoringPolicy selects how the scalar risk score is aggregated. The two
// policies are not equivalent; a deployment picks one and sticks with it.
type ScoringPolicy string

const (
	// ScoringWeightedLinear combines anomaly count, total changed area, and
	// structural dissimilarity: w1*count + w2*area/normalizer + w3*(1-ssim).
	ScoringWeightedLinear ScoringPolicy = "WEIGHTED_LINEAR"

	// ScoringThreatTierCount weights only tier counts: 4*high + 2*medium + count.
	ScoringThreatTierCount ScoringPolicy = "THREAT_TIER_COUNT"
)

// ParseScoringPolicy converts a policy name to a ScoringPolicy.
func ParseScoringPolicy(s string) (ScoringPolicy, error) {
	switch ScoringPolicy(s) {
	case ScoringWeightedLinear, ScoringThreatTierCount:
		return ScoringPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown scoring policy %q", s)
	}
}

// Weights tunes the weighted-linear policy.
type Weights struct {
	Count          float64
	Area           float64
	Dissimilarity  float64
	AreaNormalizer float64
}

// DefaultWeights returns the reference weighted-linear tuning.
func DefaultWeights() Weights {
	return Weights{
		Count:          1.5,
		Area:           1.0,
		Dissimilarity:  10.0,
		AreaNormalizer: 1000.0,
	}
}

// Validate rejects weights that could push the score negative or divide by zero.
func (w Weights) Validate() error {
	if w.Count < 0 || w.Area < 0 || w.Dissimilarity < 0 {
		return fmt.Errorf("threat: negative risk weight %+v", w)
	}
	if w.AreaNormalizer <= 0 {
		return fmt.Errorf("threat: area normalizer must be positive, got %v", w.AreaNormalizer)
	}
	return nil
}

// RiskAssessment is the aggregated per-run risk.
type RiskAssessment struct {
	Score        float64       `json:"score"`
	CountByLevel map[Level]int `json:"count_by_threat"`
}

// ScoreRisk aggregates anomalies into a risk assessment under the given
// policy. The score is always clamped to [0,10].
func ScoreRisk(anomalies []Anomaly, similarity float64, policy ScoringPolicy, w Weights) RiskAssessment {
	counts := map[Level]int{
		LevelLow:    0,
		LevelMedium: 0,
		LevelHigh:   0,
	}
	totalArea := 0
	for _, a := range anomalies {
		counts[a.Level]++
		totalArea += a.AreaPx
	}

	var score float64
	switch policy {
	case ScoringThreatTierCount:
		score = 4*float64(counts[LevelHigh]) + 2*float64(counts[LevelMedium]) + float64(len(anomalies))
	default:
		score = w.Count*float64(len(anomalies)) +
			w.Area*float64(totalArea)/w.AreaNormalizer +
			w.Dissimilarity*(1.0-similarity)
	}

	return RiskAssessment{
		Score:        clamp(score, 0, 10),
		CountByLevel: counts,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
