// Package admin exposes an HTTP API for operating the simulation service:
// triggering runs, inspecting the result cache, evaluating uniformity and
// browsing recent run history.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vxrdis/allen-interval-probabilities/internal/cache"
	"github.com/vxrdis/allen-interval-probabilities/internal/runner"
	"github.com/vxrdis/allen-interval-probabilities/internal/stats"
	"github.com/vxrdis/allen-interval-probabilities/internal/tally"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// ResultCache is the slice of the result cache the admin server needs. In
// production this is satisfied by *cache.Cache; tests can provide a mock.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key cache.Key, fn cache.ComputeFunc, force bool) (*cache.Entry, error)
	Stats() cache.Stats
	Clear()
}

// RunHistory records completed runs and serves them back newest first.
// Satisfied by *runner.Registry.
type RunHistory interface {
	Record(result *runner.Result)
	Recent() []runner.RunSummary
}

// Server provides an HTTP-based admin API for operational management.
type Server struct {
	runner     *runner.Runner
	cache      ResultCache
	history    RunHistory
	references []stats.Reference
	logger     *slog.Logger
}

// NewServer creates a new admin API server. The uniform reference is always
// available; additional references can be supplied via WithReferences.
func NewServer(r *runner.Runner, c ResultCache, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		runner:     r,
		cache:      c,
		references: []stats.Reference{stats.Uniform()},
		logger:     logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServerOption configures optional dependencies for the admin server.
type ServerOption func(*Server)

// WithRunHistory sets the run history provider on the admin server.
func WithRunHistory(h RunHistory) ServerOption {
	return func(s *Server) { s.history = h }
}

// WithReferences adds reference distributions to the uniformity endpoint,
// alongside the built-in uniform reference.
func WithReferences(refs ...stats.Reference) ServerOption {
	return func(s *Server) { s.references = append(s.references, refs...) }
}

// Handler returns the HTTP handler for the admin API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/v1/simulate", s.handleSimulate)
	mux.HandleFunc("GET /admin/v1/uniformity", s.handleUniformity)
	mux.HandleFunc("GET /admin/v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /admin/v1/cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /admin/v1/runs", s.handleRuns)
	return mux
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSONBody reads and decodes a JSON request body into v.
// Returns false (and writes an error response) if decoding fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return false
	}
	return true
}

type simulateRequest struct {
	runner.Params
	Force bool `json:"force"`
}

type simulateResponse struct {
	ID        string            `json:"id"`
	Key       string            `json:"key"`
	Counts    map[string]uint64 `json:"counts"`
	Total     uint64            `json:"total"`
	ElapsedMS int64             `json:"elapsed_ms"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	entry, err := s.runCached(r.Context(), req.Params, req.Force)
	if err != nil {
		s.writeRunError(w, err, req.Params)
		return
	}

	counts := make(map[string]uint64, 13)
	for code, n := range entry.Tally.Counts() {
		counts[string(code)] = n
	}

	writeJSON(w, http.StatusOK, simulateResponse{
		ID:        entry.ID.String(),
		Key:       entry.Key.String(),
		Counts:    counts,
		Total:     entry.Tally.Total(),
		ElapsedMS: entry.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleUniformity(w http.ResponseWriter, r *http.Request) {
	params, ok := runParamsFromQuery(w, r)
	if !ok {
		return
	}

	entry, err := s.runCached(r.Context(), params, false)
	if err != nil {
		s.writeRunError(w, err, params)
		return
	}

	report, err := stats.Evaluate(entry.Tally, s.references...)
	if err != nil {
		s.logger.Error("uniformity evaluation failed", "error", err, "key", entry.Key.String())
		http.Error(w, `{"error":"uniformity evaluation failed"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	s.logger.Info("result cache cleared via admin API")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, `{"error":"run history not available"}`, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.history.Recent())
}

// runCached routes a run through the result cache so repeated identical
// requests reuse the completed tally.
func (s *Server) runCached(ctx context.Context, p runner.Params, force bool) (*cache.Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	key := cache.Key{PBorn: p.PBorn, PDie: p.PDie, Trials: p.Trials, Seed: p.Seed}
	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*tally.Tally, error) {
		res, err := s.runner.Run(ctx, p)
		if err != nil {
			return nil, err
		}
		if s.history != nil {
			s.history.Record(res)
		}
		return res.Tally, nil
	}, force)
}

func (s *Server) writeRunError(w http.ResponseWriter, err error, p runner.Params) {
	switch {
	case errors.Is(err, runner.ErrInvalidParameter):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("simulation failed", "error", err,
			"p_born", p.PBorn, "p_die", p.PDie, "trials", p.Trials)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// runParamsFromQuery extracts run parameters from query params, writing a 400
// response when a value does not parse.
func runParamsFromQuery(w http.ResponseWriter, r *http.Request) (runner.Params, bool) {
	q := r.URL.Query()
	var p runner.Params
	var err error

	if p.PBorn, err = strconv.ParseFloat(q.Get("p_born"), 64); err != nil {
		http.Error(w, `{"error":"p_born query param required"}`, http.StatusBadRequest)
		return p, false
	}
	if p.PDie, err = strconv.ParseFloat(q.Get("p_die"), 64); err != nil {
		http.Error(w, `{"error":"p_die query param required"}`, http.StatusBadRequest)
		return p, false
	}
	if p.Trials, err = strconv.Atoi(q.Get("trials")); err != nil {
		http.Error(w, `{"error":"trials query param required"}`, http.StatusBadRequest)
		return p, false
	}
	if v := q.Get("seed"); v != "" {
		if p.Seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			http.Error(w, `{"error":"seed must be an integer"}`, http.StatusBadRequest)
			return p, false
		}
	}
	if v := q.Get("workers"); v != "" {
		if p.Workers, err = strconv.Atoi(v); err != nil {
			http.Error(w, `{"error":"workers must be an integer"}`, http.StatusBadRequest)
			return p, false
		}
	}
	return p, true
}
