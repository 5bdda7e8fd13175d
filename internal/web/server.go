// Package web exposes the ranking engine and background jobs over a JSON
// HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/jobs"
	"github.com/linkhoard/linkhoard/internal/rank"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Server is the HTTP front over the engine, the job runner, and the store.
type Server struct {
	store  store.Store
	engine *rank.Engine
	runner *jobs.Runner
	log    *slog.Logger
}

// NewServer creates the API server.
func NewServer(st store.Store, engine *rank.Engine, runner *jobs.Runner, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: st, engine: engine, runner: runner, log: log}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/jobs/{job}", s.handleJob)
	mux.HandleFunc("GET /api/bookmarks", s.handleGetBookmark)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req rank.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.engine.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, rank.ErrInvalidLimit) {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("search failed", "query", req.Query, "error", err)
		httpError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type jobRequest struct {
	Limit       int  `json:"limit,omitempty"`
	DelayMs     int  `json:"delayMs,omitempty"`
	ResetCursor bool `json:"resetCursor,omitempty"`
	// All runs the reclassify supervising loop to completion instead of a
	// single batch.
	All bool `json:"all,omitempty"`
}

func (r jobRequest) options() jobs.Options {
	return jobs.Options{
		Limit:       r.Limit,
		Delay:       time.Duration(r.DelayMs) * time.Millisecond,
		ResetCursor: r.ResetCursor,
	}
}

type jobResponse struct {
	Outcome string      `json:"outcome"` // "ok" or "skipped"
	Result  jobs.Result `json:"result"`
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := jobs.ID(strings.ToLower(r.PathValue("job")))
	switch id {
	case jobs.Backfill, jobs.Reclassify, jobs.Cleanup, jobs.Sync:
	default:
		httpError(w, http.StatusBadRequest, "unknown job: "+string(id))
		return
	}

	var req jobRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	opts := req.options()

	var res jobs.Result
	var err error
	if id == jobs.Reclassify && req.All {
		res, err = s.runner.ReclassifyAll(r.Context(), opts)
	} else {
		res, err = s.runner.Run(r.Context(), id, opts)
	}
	switch {
	case errors.Is(err, jobs.ErrNotAcquired):
		// Another run is in flight; a manual trigger is a no-op, not a
		// failure.
		writeJSON(w, http.StatusOK, jobResponse{Outcome: "skipped"})
	case err != nil:
		s.log.Error("job failed", "job", id, "error", err)
		httpError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, jobResponse{Outcome: "ok", Result: res})
	}
}

func (s *Server) handleGetBookmark(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpError(w, http.StatusBadRequest, "missing id parameter")
		return
	}
	b, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.log.Error("get bookmark failed", "id", id, "error", err)
		httpError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if b == nil {
		httpError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, _ := s.store.Count(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"bookmarks":          count,
		"pending_embeddings": s.engine.Refresher().Pending(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
