package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/pipeline"
	"aoi-sentinel/internal/raster"
	"aoi-sentinel/internal/report"
)

type monitorRequest struct {
	Location  string          `json:"location"`
	AOIBounds geo.BoundingBox `json:"aoi_bounds"`
}

type monitorResponse struct {
	analyzeResponse
	MonitoringTimestamp int64  `json:"monitoring_timestamp"`
	Location            string `json:"location"`
}

// handleMonitor runs the demo monitoring check. With fixture imagery
// configured it runs the real pipeline over the fixture pair under
// threat-tier scoring; otherwise it serves the simulated analyzer. The
// simulated path never handles real uploads.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Location == "" {
		req.Location = "default"
	}
	log.Printf("[Monitor] starting check for location %q", req.Location)

	result, after, err := s.monitorResult(req.AOIBounds)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now()
	stem := fmt.Sprintf("%s_%d", sanitizeLocation(req.Location), now.Unix())
	maskURL, err := s.saveMask("realtime_mask_"+stem+".png", result)
	if err != nil {
		writeError(w, err)
		return
	}

	// The simulated analyzer has no source imagery to annotate.
	var annotatedURL string
	if after != nil {
		annotatedURL, err = s.saveOverlay("realtime_annotated_"+stem+".png", after, result.Anomalies)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	summary, err := s.reporter.Generate(report.Context{
		AOI:             req.AOIBounds,
		Anomalies:       result.Anomalies,
		SimilarityScore: result.SimilarityScore,
		RiskScore:       result.Risk.Score,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[Monitor] check complete: %d anomalies, risk %.1f", len(result.Anomalies), result.Risk.Score)

	warning := "All clear - no changes detected"
	if result.HasChanges() {
		warning = fmt.Sprintf("LIVE ALERT: %d anomalies detected at %s",
			len(result.Anomalies), strings.ToUpper(req.Location))
	}

	writeJSON(w, monitorResponse{
		analyzeResponse: analyzeResponse{
			ReportSummary:    summary,
			ChangeMaskURL:    maskURL,
			AnnotatedURL:     annotatedURL,
			AnomaliesGeoJSON: result.GeoJSON,
			ImageBounds:      req.AOIBounds,
			SimilarityScore:  result.SimilarityScore,
			RiskScore:        result.Risk.Score,
			Risk:             result.Risk,
			Anomalies:        anomalyPayloads(result, "Real-Time Detection"),
			HasChanges:       result.HasChanges(),
			WarningMessage:   warning,
		},
		MonitoringTimestamp: now.Unix(),
		Location:            req.Location,
	})
}

// monitorResult analyzes the configured fixture pair, or falls back to the
// simulated analyzer when no fixtures are configured. The after image is
// returned for annotation and is nil on the simulated path.
func (s *Server) monitorResult(aoi geo.BoundingBox) (*pipeline.Result, *raster.Image, error) {
	mon := s.cfg.Monitor
	if mon.BeforeImage == "" || mon.AfterImage == "" {
		result, err := s.simulated.Analyze(nil, nil, aoi)
		return result, nil, err
	}

	before, err := loadImage(mon.BeforeImage)
	if err != nil {
		return nil, nil, err
	}
	after, err := loadImage(mon.AfterImage)
	if err != nil {
		return nil, nil, err
	}

	// Aligned to before-image dimensions so overlay boxes land correctly.
	aligned := raster.Resize(after, before.Width(), before.Height())
	result, err := s.monitor.Analyze(before, aligned, aoi)
	return result, aligned, err
}

func loadImage(path string) (*raster.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return raster.Decode(data)
}

// sanitizeLocation keeps mask filenames inside the static namespace.
func sanitizeLocation(location string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(location) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
