// Package threat classifies change regions into threat tiers and aggregates
// a per-run risk assessment.
package threat

import (
	"fmt"

	"aoi-sentinel/internal/region"
	"aoi-sentinel/pkg/geometry"
)

// Level is the ordinal severity bucket assigned to an anomaly.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "HIGH"
	case LevelMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// MarshalText renders the level name, also used for JSON map keys.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "LOW":
		return LevelLow, nil
	case "MEDIUM":
		return LevelMedium, nil
	case "HIGH":
		return LevelHigh, nil
	default:
		return LevelLow, fmt.Errorf("unknown threat level %q", s)
	}
}

// Anomaly is a classified change region. Immutable once produced.
type Anomaly struct {
	Bounds     geometry.RectInt
	AreaPx     int
	Class      string
	Level      Level
	Confidence float64
}

// Tier maps an exclusive area lower bound to a class and threat level.
type Tier struct {
	MinArea int
	Class   string
	Level   Level
}

// Policy is the single configuration-driven classification table injected
// per deployment. Tiers are ordered by descending MinArea; the first tier
// whose bound the area exceeds wins, so the table must end with a MinArea
// of 0 catch-all.
type Policy struct {
	Tiers []Tier
}

// DefaultPolicy returns the reference classification table.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{MinArea: 1000, Class: "Major Structure", Level: LevelHigh},
			{MinArea: 200, Class: "Vehicle / Site", Level: LevelMedium},
			{MinArea: 0, Class: "Minor Anomaly / Movement", Level: LevelLow},
		},
	}
}

// Validate checks tier ordering and the catch-all bound.
func (p Policy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("threat: empty tier table")
	}
	for i, t := range p.Tiers {
		if t.MinArea < 0 {
			return fmt.Errorf("threat: tier %d has negative area bound", i)
		}
		if i > 0 && t.MinArea >= p.Tiers[i-1].MinArea {
			return fmt.Errorf("threat: tiers not in descending area order at index %d", i)
		}
	}
	if p.Tiers[len(p.Tiers)-1].MinArea != 0 {
		return fmt.Errorf("threat: tier table has no catch-all (MinArea 0) entry")
	}
	return nil
}

// Classify buckets a region into an Anomaly by its area.
func (p Policy) Classify(r region.Region) Anomaly {
	a := Anomaly{
		Bounds:     r.Bounds,
		AreaPx:     r.AreaPx,
		Confidence: confidence(r.AreaPx),
	}

	for _, t := range p.Tiers {
		if r.AreaPx > t.MinArea || t.MinArea == 0 {
			a.Class = t.Class
			a.Level = t.Level
			break
		}
	}

	return a
}

// confidence is a linear monotone non-decreasing function of area, clamped
// to [0.70, 0.95]. Tunable policy, not a calibrated probability.
func confidence(areaPx int) float64 {
	c := 0.70 + float64(areaPx)/2000.0
	if c > 0.95 {
		c = 0.95
	}
	return c
}
