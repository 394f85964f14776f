// Command changetest runs change detection on two image files and outputs
// the resulting report, mask, and GeoJSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/pipeline"
	"aoi-sentinel/internal/raster"
	"aoi-sentinel/internal/report"
	"aoi-sentinel/internal/threat"
	"aoi-sentinel/pkg/colorutil"
)

func main() {
	beforePath := flag.String("before", "", "Path to the earlier image (PNG, JPEG, or TIFF)")
	afterPath := flag.String("after", "", "Path to the later image")
	aoiSpec := flag.String("aoi", "0,0,1,1", "AOI as swLat,swLng,neLat,neLng")
	minArea := flag.Int("min-area", pipeline.DefaultConfig().MinRegionArea, "Minimum region area in pixels")
	policy := flag.String("policy", string(threat.ScoringWeightedLinear), "Risk scoring policy: WEIGHTED_LINEAR or THREAT_TIER_COUNT")
	maskOut := flag.String("mask-out", "change_mask.png", "Output path for the change mask")
	annotatedOut := flag.String("annotated-out", "", "Optional output path for the annotated after image")
	geojsonOut := flag.String("geojson-out", "", "Optional output path for anomaly GeoJSON")
	flag.Parse()

	if *beforePath == "" || *afterPath == "" {
		fmt.Println("Usage: changetest -before <path> -after <path> [-aoi swLat,swLng,neLat,neLng]")
		os.Exit(1)
	}

	aoi, err := parseAOI(*aoiSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid AOI: %v\n", err)
		os.Exit(1)
	}

	before := mustLoad(*beforePath)
	after := mustLoad(*afterPath)
	fmt.Printf("Loaded %dx%d vs %dx%d\n", before.Width(), before.Height(), after.Width(), after.Height())

	cfg := pipeline.DefaultConfig()
	cfg.MinRegionArea = *minArea
	cfg.ScoringPolicy = threat.ScoringPolicy(*policy)

	p, err := pipeline.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	result, err := p.Analyze(before, after, aoi)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSimilarity score: %.4f\n", result.SimilarityScore)
	fmt.Printf("Risk score:       %.2f (%s)\n", result.Risk.Score, cfg.ScoringPolicy)
	fmt.Printf("Anomalies:        %d\n\n", len(result.Anomalies))

	for i, a := range result.Anomalies {
		fmt.Printf("  #%d  [%d,%d %dx%d]  area=%dpx  %s  %s  conf=%.2f\n",
			i+1, a.Bounds.X, a.Bounds.Y, a.Bounds.Width, a.Bounds.Height,
			a.AreaPx, a.Level, a.Class, a.Confidence)
	}

	summary, err := report.NewTemplateGenerator().Generate(report.Context{
		AOI:             aoi,
		Anomalies:       result.Anomalies,
		SimilarityScore: result.SimilarityScore,
		RiskScore:       result.Risk.Score,
	})
	if err == nil {
		fmt.Printf("\n%s\n", summary)
	}

	maskData, err := raster.EncodePNG(result.Mask)
	if err == nil {
		err = os.WriteFile(*maskOut, maskData, 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write mask: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nChange mask saved to %s\n", *maskOut)

	if *annotatedOut != "" {
		boxes := make([]raster.Box, 0, len(result.Anomalies))
		for _, a := range result.Anomalies {
			boxes = append(boxes, raster.Box{Rect: a.Bounds, Color: levelColor(a.Level)})
		}
		aligned := raster.Resize(after, before.Width(), before.Height())
		data, err := raster.EncodePNG(raster.Annotate(aligned.Data, boxes, 2))
		if err == nil {
			err = os.WriteFile(*annotatedOut, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write annotated image: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Annotated image saved to %s\n", *annotatedOut)
	}

	if *geojsonOut != "" {
		data, err := json.MarshalIndent(result.GeoJSON, "", "  ")
		if err == nil {
			err = os.WriteFile(*geojsonOut, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write GeoJSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("GeoJSON saved to %s\n", *geojsonOut)
	}
}

func levelColor(level threat.Level) color.RGBA {
	switch level {
	case threat.LevelHigh:
		return colorutil.Red
	case threat.LevelMedium:
		return colorutil.Amber
	default:
		return colorutil.Green
	}
}

func mustLoad(path string) *raster.Image {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	img, err := raster.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode %s: %v\n", path, err)
		os.Exit(1)
	}
	return img
}

func parseAOI(spec string) (geo.BoundingBox, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("want 4 comma-separated values, got %d", len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BoundingBox{}, err
		}
		vals[i] = v
	}

	box := geo.BoundingBox{
		SouthWest: geo.LatLng{Lat: vals[0], Lng: vals[1]},
		NorthEast: geo.LatLng{Lat: vals[2], Lng: vals[3]},
	}
	return box, box.Validate()
}
