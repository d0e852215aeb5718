package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banjirlab/flood-risk-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ClassificationService is the classifier surface the server exposes.
type ClassificationService interface {
	ReadinessChecker
	Classify(obs domain.Observation) (domain.ClassificationResult, error)
	Assignment() (*domain.RiskAssignment, error)
	Reload() (*domain.RiskAssignment, error)
}

// Server exposes the classification API plus health, readiness, and
// metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	service    ClassificationService
	resolver   domain.ElevationResolver
	logger     *slog.Logger
}

// NewServer creates the HTTP server. resolver may be nil, in which case
// readings without an elevation are rejected rather than enriched.
func NewServer(addr string, service ClassificationService, resolver domain.ElevationResolver, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:  service,
		resolver: resolver,
		logger:   logger,
	}

	mux.HandleFunc("POST /v1/classify", s.handleClassify)
	mux.HandleFunc("GET /v1/legend", s.handleLegend)
	mux.HandleFunc("GET /v1/centers", s.handleCenters)
	mux.HandleFunc("POST /v1/reload", s.handleReload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(s.service))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var reading domain.StationReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reading = domain.EnrichWithElevation(r.Context(), reading, s.resolver, s.logger)

	obs, err := reading.Observation()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Classify(obs)
	if err != nil {
		s.writeClassifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeClassifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidObservation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrAssignmentInconsistent):
		s.logger.Error("classification failed on inconsistent assignment", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("classification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// legendEntry is one row of the cluster-to-risk legend, ordered most
// severe first.
type legendEntry struct {
	ClusterID int    `json:"cluster_id"`
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	Color     string `json:"color"`
}

func (s *Server) handleLegend(w http.ResponseWriter, _ *http.Request) {
	assignment, err := s.service.Assignment()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	centers := assignment.Centers()
	levels := make([]legendEntry, len(centers))
	for i, center := range centers {
		levels[i] = legendEntry{
			ClusterID: center.ClusterID,
			Rank:      center.Category.Rank,
			Name:      center.Category.Name,
			Color:     center.Category.Color,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"levels": levels})
}

func (s *Server) handleCenters(w http.ResponseWriter, _ *http.Request) {
	assignment, err := s.service.Assignment()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"centers": assignment.Centers()})
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	assignment, err := s.service.Reload()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "reloaded",
		"clusters": assignment.Size(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
