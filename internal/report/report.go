// Package report renders analyst-readable narrative summaries of a change
// report. The Generator interface keeps the text source opaque to the
// pipeline, so a model-backed generator can replace the template one
// without touching the core.
package report

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/threat"
)

// Context carries everything the generator may reference.
type Context struct {
	AOI             geo.BoundingBox
	Anomalies       []threat.Anomaly
	SimilarityScore float64
	RiskScore       float64
}

// Generator produces free-text summaries from a report context.
type Generator interface {
	Generate(ctx Context) (string, error)
}

// TemplateGenerator renders the fixed three-section intelligence summary:
// BLUF, detailed analysis, and an analyst recommendation.
type TemplateGenerator struct{}

// NewTemplateGenerator returns the template-based generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate renders the summary. It never fails; the error return exists
// for generators with external dependencies.
func (g *TemplateGenerator) Generate(ctx Context) (string, error) {
	var b strings.Builder

	count := len(ctx.Anomalies)
	highThreat := false
	byLevel := map[threat.Level][]string{}
	for _, a := range ctx.Anomalies {
		if a.Level == threat.LevelHigh {
			highThreat = true
		}
		byLevel[a.Level] = append(byLevel[a.Level], a.Class)
	}

	threatWarning := ""
	if highThreat {
		threatWarning = " [HIGH THREAT DETECTED]"
	}
	fmt.Fprintf(&b, "**BLUF (Bottom Line Up Front):** Analysis of AOI [Lat: %.4f, Lng: %.4f] identified %d anomalies indicating new activity%s.\n\n",
		ctx.AOI.SouthWest.Lat, ctx.AOI.SouthWest.Lng, count, threatWarning)

	b.WriteString("**Detailed Analysis:**\n")
	if count == 0 {
		b.WriteString("* No significant changes or new objects detected in the specified AOI.\n")
		b.WriteString("* All clear - monitoring continues.\n")
	} else {
		fmt.Fprintf(&b, "* WARNING: %d new anomalies detected in imagery.\n", count)
		for _, level := range []threat.Level{threat.LevelHigh, threat.LevelMedium, threat.LevelLow} {
			classes := byLevel[level]
			if len(classes) == 0 {
				continue
			}
			fmt.Fprintf(&b, "* %s threat level: %s (%d detected).\n",
				level, strings.Join(uniqueClasses(classes), ", "), len(classes))
		}
		fmt.Fprintf(&b, "* Structural similarity score of %.2f indicates temporal changes.\n", ctx.SimilarityScore)
		if line := statsLine(ctx.Anomalies); line != "" {
			b.WriteString(line)
		}
		b.WriteString("* Exact coordinates provided for each anomaly on the map overlay.\n")
	}

	b.WriteString("\n**Analyst Recommendation:**\n")
	switch {
	case highThreat || ctx.RiskScore > 8.0:
		b.WriteString("* HIGH PRIORITY: Immediate review required. Large structures detected.")
	case ctx.RiskScore > 5.0:
		b.WriteString("* MEDIUM PRIORITY: Monitor detected changes. Correlate with intelligence reports.")
	case count > 0:
		b.WriteString("* LOW PRIORITY: Log detections for trend analysis. Continue monitoring.")
	default:
		b.WriteString("* ROUTINE: No action required. Area remains stable.")
	}

	return b.String(), nil
}

// statsLine summarizes confidence and area across the anomaly set.
func statsLine(anomalies []threat.Anomaly) string {
	confidences := make([]float64, len(anomalies))
	areas := make([]float64, len(anomalies))
	for i, a := range anomalies {
		confidences[i] = a.Confidence
		areas[i] = float64(a.AreaPx)
	}

	meanConf, err := stats.Mean(confidences)
	if err != nil {
		return ""
	}
	maxArea, err := stats.Max(areas)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("* Mean detection confidence %.2f; largest anomaly %d px.\n", meanConf, int(maxArea))
}

func uniqueClasses(classes []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range classes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
