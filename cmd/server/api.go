package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/observability"
	"diffusion-lab/internal/simulation"
	"diffusion-lab/internal/storage"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 1000
	maxBodyBytes     = 1 << 20
)

// routes builds the HTTP handler.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("GET /status", s.handleStatus)

	// Engine operations
	mux.HandleFunc("POST /api/{kind}", s.handleRun)

	// Stored runs
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)

	// Live sessions
	mux.Handle("GET /ws", s.live)

	return mux
}

// RunResponse is the JSON response of an engine operation.
type RunResponse struct {
	Kind   domain.RunKind `json:"kind"`
	RunID  string         `json:"run_id"`
	Result any            `json:"result"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleRun executes the operation named by the path with the request body as params.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	kind := domain.RunKind(r.PathValue("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound, "unknown operation "+string(kind))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	runID, result, err := s.runner.Dispatch(r.Context(), kind, body)
	s.countRequest(string(kind), err)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidParams):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, simulation.ErrUnknownKind):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.logger.Printf("%s run failed: %v", kind, err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{Kind: kind, RunID: runID, Result: result})
}

// handleListRuns returns the newest stored runs. ?limit= caps the count.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.stores.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run storage is not configured")
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.stores.Runs.GetRecent(r.Context(), limit)
	if err != nil {
		s.logger.Printf("list runs: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one stored run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.stores.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run storage is not configured")
		return
	}

	run, err := s.stores.Runs.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Printf("get run: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string         `json:"status"`
	Uptime           string         `json:"uptime"`
	Started          time.Time      `json:"started"`
	RunBackend       string         `json:"run_backend"`
	AnalyticsBackend string         `json:"analytics_backend"`
	Requests         map[string]int `json:"requests"`
	Failures         int            `json:"failures"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	requests := make(map[string]int, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		Started:          s.started,
		RunBackend:       s.stores.RunBackend,
		AnalyticsBackend: s.stores.AnalyticsBackend,
		Requests:         requests,
		Failures:         s.failures,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) countRequest(kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[kind]++
	if err != nil {
		s.failures++
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
