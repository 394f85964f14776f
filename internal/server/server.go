// Package server exposes the change-detection pipeline over HTTP and maps
// core error kinds to transport failures.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"aoi-sentinel/internal/config"
	"aoi-sentinel/internal/geo"
	"aoi-sentinel/internal/pipeline"
	"aoi-sentinel/internal/raster"
	"aoi-sentinel/internal/report"
	"aoi-sentinel/internal/simulate"
	"aoi-sentinel/internal/threat"
	"aoi-sentinel/internal/version"
	"aoi-sentinel/pkg/colorutil"
)

// Server wires the analyzers, report generator, and mask storage behind
// the HTTP API.
type Server struct {
	mux       *http.ServeMux
	cfg       *config.Config
	analyzer  pipeline.Analyzer
	monitor   pipeline.Analyzer
	simulated pipeline.Analyzer
	reporter  report.Generator
}

// New builds the server from service configuration.
func New(cfg *config.Config) (*Server, error) {
	pipeCfg, err := cfg.PipelineConfig()
	if err != nil {
		return nil, err
	}

	analyzer, err := pipeline.New(pipeCfg)
	if err != nil {
		return nil, err
	}

	// The monitor endpoint scores by threat-tier counts; the upload
	// endpoint keeps the configured policy. Both use one tier table.
	monitorCfg := pipeCfg
	monitorCfg.ScoringPolicy = threat.ScoringThreatTierCount
	monitor, err := pipeline.New(monitorCfg)
	if err != nil {
		return nil, err
	}

	simulated, err := simulate.New(cfg.Monitor.Seed, monitorCfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.StaticDir, 0o755); err != nil {
		return nil, fmt.Errorf("create static dir: %w", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		analyzer:  analyzer,
		monitor:   monitor,
		simulated: simulated,
		reporter:  report.NewTemplateGenerator(),
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/v1/analyze_aoi", s.handleAnalyze)
	s.mux.HandleFunc("/api/v1/analyze_aoi/monitor", s.handleMonitor)
	s.mux.Handle("/static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(cfg.Storage.StaticDir))))

	return s, nil
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start runs the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// saveMask writes the mask PNG under the static dir and returns its URL path.
func (s *Server) saveMask(name string, result *pipeline.Result) (string, error) {
	return s.savePNG(name, result.Mask)
}

// saveOverlay renders anomaly boxes over the after image, colored by
// threat level, and writes the result under the static dir.
func (s *Server) saveOverlay(name string, after *raster.Image, anomalies []threat.Anomaly) (string, error) {
	boxes := make([]raster.Box, 0, len(anomalies))
	for _, a := range anomalies {
		// Outline brightness tracks detection confidence.
		c := colorutil.Dim(levelColor(a.Level), 0.5+a.Confidence/2)
		boxes = append(boxes, raster.Box{Rect: a.Bounds, Color: c})
	}
	return s.savePNG(name, raster.Annotate(after.Data, boxes, 2))
}

func (s *Server) savePNG(name string, img image.Image) (string, error) {
	data, err := raster.EncodePNG(img)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.cfg.Storage.StaticDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	return "/static/" + name, nil
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

// randomToken returns a hex token for collision-free mask names.
func randomToken() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand read failure is not recoverable at this layer
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// writeError maps core error kinds to transport status codes: caller input
// problems become 400, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, raster.ErrDecode),
		errors.Is(err, geo.ErrProjection),
		errors.Is(err, http.ErrMissingFile):
		status = http.StatusBadRequest
	}

	log.Printf("[API] request failed (%d): %v", status, err)
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to write response: %v", err)
	}
}
