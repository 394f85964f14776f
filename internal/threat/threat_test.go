package threat

import (
	"testing"

	"aoi-sentinel/internal/region"
	"aoi-sentinel/pkg/geometry"
)

func regionWithArea(area int) region.Region {
	return region.Region{
		Bounds: geometry.RectInt{X: 0, Y: 0, Width: area, Height: 1},
		AreaPx: area,
	}
}

func TestClassifyReferenceTable(t *testing.T) {
	policy := DefaultPolicy()

	cases := []struct {
		area      int
		wantLevel Level
		wantClass string
	}{
		{50, LevelLow, "Minor Anomaly / Movement"},
		{200, LevelLow, "Minor Anomaly / Movement"}, // bounds are exclusive
		{201, LevelMedium, "Vehicle / Site"},
		{1000, LevelMedium, "Vehicle / Site"},
		{1001, LevelHigh, "Major Structure"},
		{50000, LevelHigh, "Major Structure"},
	}
	for _, c := range cases {
		a := policy.Classify(regionWithArea(c.area))
		if a.Level != c.wantLevel || a.Class != c.wantClass {
			t.Errorf("Classify(area=%d) = %s/%s, want %s/%s",
				c.area, a.Level, a.Class, c.wantLevel, c.wantClass)
		}
		if a.AreaPx != c.area {
			t.Errorf("Classify(area=%d) lost the area: %d", c.area, a.AreaPx)
		}
	}
}

func TestConfidenceMonotoneAndClamped(t *testing.T) {
	policy := DefaultPolicy()

	prev := -1.0
	for _, area := range []int{1, 50, 200, 500, 1000, 5000, 100000} {
		c := policy.Classify(regionWithArea(area)).Confidence
		if c < prev {
			t.Errorf("confidence decreased at area %d: %v < %v", area, c, prev)
		}
		if c < 0 || c > 0.95 {
			t.Errorf("confidence %v at area %d outside [0, 0.95]", c, area)
		}
		prev = c
	}
}

func TestPolicyValidate(t *testing.T) {
	cases := []struct {
		name    string
		tiers   []Tier
		wantErr bool
	}{
		{"default", DefaultPolicy().Tiers, false},
		{"empty", nil, true},
		{"no catch-all", []Tier{{MinArea: 100, Class: "x", Level: LevelLow}}, true},
		{"wrong order", []Tier{
			{MinArea: 0, Class: "a", Level: LevelLow},
			{MinArea: 100, Class: "b", Level: LevelHigh},
		}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := (Policy{Tiers: c.tiers}).Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("HIGH"); err != nil || l != LevelHigh {
		t.Errorf("ParseLevel(HIGH) = %v, %v", l, err)
	}
	if _, err := ParseLevel("critical"); err == nil {
		t.Error("ParseLevel accepted an unknown level")
	}
}
