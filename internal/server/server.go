// Package server exposes the HTTP API: event tracking, test management,
// orchestration triggers, the ML endpoints, and the dashboard read models.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cro-pilot/cro-pilot/internal/engine"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

type Server struct {
	engine    *engine.Engine
	store     store.Store
	log       *zap.Logger
	port      int
	router    *http.ServeMux
	startTime time.Time
}

func New(eng *engine.Engine, st store.Store, log *zap.Logger, port int) *Server {
	srv := &Server{
		engine:    eng,
		store:     st,
		log:       log,
		port:      port,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// Tracking endpoint, called cross-origin from the site.
	s.router.HandleFunc("/api/cro/events", s.handleEvents)

	// Test management and pipeline control.
	s.router.HandleFunc("/api/cro/tests", s.handleTests)
	s.router.HandleFunc("/api/cro/tests/", s.handleTestAction)
	s.router.HandleFunc("/api/cro/orchestrate", s.handleOrchestrate)
	s.router.HandleFunc("/api/cro/status", s.handleStatus)

	// Prediction model.
	s.router.HandleFunc("/api/cro/ml/train", s.handleTrain)
	s.router.HandleFunc("/api/cro/ml/predict", s.handlePredict)
	s.router.HandleFunc("/api/cro/ml/optimal-variant", s.handleOptimalVariant)

	// Dashboard read models.
	s.router.HandleFunc("/api/cro/overview", s.handleOverview)
	s.router.HandleFunc("/api/cro/active-tests", s.handleActiveTests)
	s.router.HandleFunc("/api/cro/recent-winners", s.handleRecentWinners)
	s.router.HandleFunc("/api/cro/asset-performance", s.handleAssetPerformance)
	s.router.HandleFunc("/api/cro/recommendations", s.handleRecommendations)
	s.router.HandleFunc("/api/cro/performance-analysis", s.handlePerformanceAnalysis)
	s.router.HandleFunc("/api/cro/production-variants", s.handleProductionVariants)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// response is the uniform API envelope.
type response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("writing response failed", zap.Error(err))
	}
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, response{Status: "success", Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, response{Status: "error", Message: msg})
}
