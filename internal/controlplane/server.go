package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/metrics"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/sensor"
)

// Server provides the loopback HTTP API for the daemon.
type Server struct {
	service *Service
	addr    string
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string, logger *zap.Logger) *Server {
	return &Server{
		service: service,
		addr:    addr,
		logger:  logger,
	}
}

// Handler builds the API routing table.
func (s *Server) Handler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/recommendations", s.handleRecommendations)
	mux.HandleFunc("/results", s.handleResults)
	mux.HandleFunc("/recipes", s.handleRecipes)
	mux.HandleFunc("/recipes/", s.handleRecipeByName)
	mux.HandleFunc("/feedback", s.handleFeedback)
	mux.HandleFunc("/activity", s.handleActivity)

	if reg := m.Registry(); reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}

// Start starts the HTTP server. It blocks until shutdown.
func (s *Server) Start(m *metrics.Metrics) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(m),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("control plane listening", zap.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Agents())
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Recommendations())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := s.service.Results(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Recipes())
}

// handleRecipeByName handles /recipes/{name} and /recipes/{name}/{action}.
func (s *Server) handleRecipeByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/recipes/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "recipe name required", http.StatusBadRequest)
		return
	}

	name := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getRecipe(w, r, name)
	case action == "apply" && r.Method == http.MethodPost:
		s.applyRecipe(w, r, name)
	case action == "revert" && r.Method == http.MethodPost:
		s.revertRecipe(w, r, name)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request, name string) {
	recipe, err := s.service.Recipe(name)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) applyRecipe(w http.ResponseWriter, r *http.Request, name string) {
	result, err := s.service.ApplyRecipe(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) revertRecipe(w http.ResponseWriter, r *http.Request, name string) {
	result, err := s.service.RevertRecipe(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type feedbackRequest struct {
	AgentID             string  `json:"agent_id"`
	Action              string  `json:"action"`
	Scenario            string  `json:"scenario"`
	Kind                string  `json:"kind"`
	MeasuredImprovement float64 `json:"measured_improvement"`
	Comment             string  `json:"comment"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	fb := feedbackFromRequest(req)
	if err := s.service.SubmitFeedback(fb); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"accepted"}`))
}

type activityRequest struct {
	ActiveWindow  string  `json:"active_window"`
	ActiveProcess string  `json:"active_process"`
	Keyboard      float64 `json:"keyboard_activity"`
	Mouse         float64 `json:"mouse_activity"`
	Focused       bool    `json:"focused"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.service.ReportActivity(sensor.ActivitySignal{
		ActiveWindow:  req.ActiveWindow,
		ActiveProcess: req.ActiveProcess,
		Keyboard:      req.Keyboard,
		Mouse:         req.Mouse,
	}, req.Focused)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func feedbackFromRequest(req feedbackRequest) models.AgentFeedback {
	return models.AgentFeedback{
		AgentID:             req.AgentID,
		Action:              req.Action,
		Scenario:            req.Scenario,
		Kind:                models.FeedbackKind(req.Kind),
		MeasuredImprovement: req.MeasuredImprovement,
		Comment:             req.Comment,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRecipeNotFound), errors.Is(err, ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
