package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"golang.org/x/sync/errgroup"

	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/pipeline"
	"aoi-sentinel/internal/report"
	"aoi-sentinel/internal/raster"
	"aoi-sentinel/internal/threat"
)

const maxUploadBytes = 64 << 20

type anomalyPayload struct {
	BBoxPixels  [4]int  `json:"bbox_pixels"`
	Class       string  `json:"class"`
	Confidence  float64 `json:"confidence"`
	Type        string  `json:"type"`
	AreaPixels  int     `json:"area_pixels"`
	ThreatLevel string  `json:"threat_level"`
}

type analyzeResponse struct {
	ReportSummary    string                `json:"report_summary"`
	ChangeMaskURL    string                `json:"change_mask_url"`
	AnnotatedURL     string                `json:"annotated_url,omitempty"`
	AnomaliesGeoJSON geo.FeatureCollection `json:"anomalies_geojson"`
	ImageBounds      geo.BoundingBox       `json:"image_bounds"`
	SimilarityScore  float64               `json:"similarity_score"`
	RiskScore        float64               `json:"risk_score"`
	Risk             threat.RiskAssessment `json:"risk"`
	Anomalies        []anomalyPayload      `json:"anomalies"`
	HasChanges       bool                  `json:"has_changes"`
	WarningMessage   string                `json:"warning_message"`
}

// handleAnalyze accepts a multipart form with an aoi_bounds_json field and
// image_before/image_after file parts, runs the pipeline, and returns the
// change report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var aoi geo.BoundingBox
	if err := json.Unmarshal([]byte(r.FormValue("aoi_bounds_json")), &aoi); err != nil {
		http.Error(w, "invalid AOI bounds JSON", http.StatusBadRequest)
		return
	}
	log.Printf("[API] analysis request for AOI sw=%.4f,%.4f ne=%.4f,%.4f",
		aoi.SouthWest.Lat, aoi.SouthWest.Lng, aoi.NorthEast.Lat, aoi.NorthEast.Lng)

	// Decoding dominates request latency for large uploads, so the two
	// images are decoded in parallel.
	var before, after *raster.Image
	g, _ := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		before, err = formImage(r, "image_before")
		return err
	})
	g.Go(func() error {
		var err error
		after, err = formImage(r, "image_after")
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.analyzer.Analyze(before, after, aoi)
	if err != nil {
		writeError(w, err)
		return
	}

	token := randomToken()
	maskURL, err := s.saveMask(fmt.Sprintf("change_mask_%s.png", token), result)
	if err != nil {
		writeError(w, err)
		return
	}

	// Anomaly bounds are in before-image coordinates, so the overlay is
	// drawn over the after image resampled to those dimensions.
	aligned := raster.Resize(after, before.Width(), before.Height())
	annotatedURL, err := s.saveOverlay(fmt.Sprintf("annotated_%s.png", token), aligned, result.Anomalies)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := s.reporter.Generate(report.Context{
		AOI:             aoi,
		Anomalies:       result.Anomalies,
		SimilarityScore: result.SimilarityScore,
		RiskScore:       result.Risk.Score,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[API] analysis complete: %d anomalies, similarity %.4f, risk %.2f",
		len(result.Anomalies), result.SimilarityScore, result.Risk.Score)

	writeJSON(w, analyzeResponse{
		ReportSummary:    summary,
		ChangeMaskURL:    maskURL,
		AnnotatedURL:     annotatedURL,
		AnomaliesGeoJSON: result.GeoJSON,
		ImageBounds:      aoi,
		SimilarityScore:  result.SimilarityScore,
		RiskScore:        result.Risk.Score,
		Risk:             result.Risk,
		Anomalies:        anomalyPayloads(result, "New Anomaly"),
		HasChanges:       result.HasChanges(),
		WarningMessage:   warningMessage(result),
	})
}

// formImage reads and decodes one uploaded image part.
func formImage(r *http.Request, name string) (*raster.Image, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: missing part %q", http.ErrMissingFile, name)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	img, err := raster.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return img, nil
}

func anomalyPayloads(result *pipeline.Result, detectionType string) []anomalyPayload {
	payloads := make([]anomalyPayload, 0, len(result.Anomalies))
	for _, a := range result.Anomalies {
		payloads = append(payloads, anomalyPayload{
			BBoxPixels:  [4]int{a.Bounds.X, a.Bounds.Y, a.Bounds.X2(), a.Bounds.Y2()},
			Class:       a.Class,
			Confidence:  a.Confidence,
			Type:        detectionType,
			AreaPixels:  a.AreaPx,
			ThreatLevel: a.Level.String(),
		})
	}
	return payloads
}

func warningMessage(result *pipeline.Result) string {
	if result.HasChanges() {
		return fmt.Sprintf("WARNING: %d changes detected in AOI", len(result.Anomalies))
	}
	return "No significant changes detected"
}
