package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cro-pilot/cro-pilot/internal/predict"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	TestsCount    int    `json:"tests_count"`
	EventsCount   int    `json:"events_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	tests, err := s.store.ListTests(ctx)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{
		Status:        "ok",
		TestsCount:    len(tests),
		EventsCount:   len(events),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// handleEvents accepts tracking beacons. CORS is open because the pixel
// fires from the marketing site's origin.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var event store.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if event.TestID == "" || event.VariantID == "" || event.Type == "" {
		s.writeError(w, http.StatusBadRequest, "Event must have test_id, variant_id, and event_type")
		return
	}

	if err := s.engine.RecordEvent(r.Context(), &event); err != nil {
		s.log.Error("recording event failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to record event")
		return
	}
	s.writeJSON(w, http.StatusOK, response{Status: "success", Message: "Event recorded successfully"})
}

func (s *Server) handleTests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tests, err := s.store.ListTests(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to load tests")
			return
		}
		s.writeData(w, map[string]interface{}{"tests": tests, "count": len(tests)})

	case http.MethodPost:
		var test store.Test
		if err := json.NewDecoder(r.Body).Decode(&test); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if test.Name == "" || len(test.Variants) < 2 {
			s.writeError(w, http.StatusBadRequest, "Test must have a name and at least 2 variants")
			return
		}
		created, err := s.engine.CreateTest(r.Context(), &test)
		if err != nil {
			s.log.Error("creating test failed", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Failed to create test")
			return
		}
		s.writeJSON(w, http.StatusOK, response{
			Status:  "success",
			Data:    map[string]interface{}{"test": created},
			Message: "Test created successfully",
		})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleTestAction routes /api/cro/tests/{id} and /api/cro/tests/{id}/end.
func (s *Server) handleTestAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/cro/tests/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		test, err := s.engine.GetTest(r.Context(), parts[0])
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Test not found")
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to load test")
			return
		}
		s.writeData(w, map[string]interface{}{"test": test})

	case len(parts) == 2 && parts[1] == "end" && r.Method == http.MethodPost:
		var body struct {
			WinnerID string `json:"winnerId"`
		}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&body)
		}
		test, err := s.engine.EndTest(r.Context(), parts[0], body.WinnerID)
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Test not found")
			return
		}
		if err != nil {
			s.log.Error("ending test failed", zap.String("test_id", parts[0]), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Failed to end test")
			return
		}
		s.writeJSON(w, http.StatusOK, response{
			Status:  "success",
			Data:    map[string]interface{}{"test": test},
			Message: "Test ended successfully",
		})

	default:
		s.writeError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	result, err := s.engine.Orchestrate(r.Context())
	if err != nil {
		s.log.Error("orchestration failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Orchestration failed")
		return
	}
	s.writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Data:    result,
		Message: "Orchestration completed successfully",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	status, err := s.engine.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load status")
		return
	}
	s.writeData(w, status)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	model, err := s.engine.Train(r.Context())
	if err != nil {
		s.log.Error("training failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Training failed")
		return
	}
	s.writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Data:    map[string]interface{}{"model": model},
		Message: "Model trained successfully",
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var cfg store.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	prediction, err := s.engine.Predictor().Predict(r.Context(), cfg)
	if errors.Is(err, store.ErrNotFound) {
		s.writeData(w, map[string]interface{}{
			"prediction": "unknown",
			"confidence": 0,
			"reason":     "Model not trained yet",
		})
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Prediction failed")
		return
	}
	s.writeData(w, prediction)
}

func (s *Server) handleOptimalVariant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var conditions predict.Conditions
	if err := json.NewDecoder(r.Body).Decode(&conditions); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	optimal, err := s.engine.Predictor().PredictOptimalVariant(r.Context(), conditions)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusConflict, "Model not trained yet")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Prediction failed")
		return
	}
	s.writeData(w, optimal)
}

func (s *Server) handleProductionVariants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	variants, err := s.store.ProductionVariants(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load production variants")
		return
	}
	s.writeData(w, map[string]interface{}{"variants": variants})
}
