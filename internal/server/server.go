// internal/server/server.go

// Package server exposes the recipe builder's HTTP surface: test-mode
// extraction and context dumps against caller-supplied pages. Nothing here
// submits records anywhere.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pricescout/pricescout/internal/extract"
	"github.com/pricescout/pricescout/internal/monitoring"
	"github.com/pricescout/pricescout/internal/page"
	"github.com/pricescout/pricescout/internal/recipe"
)

const maxBodyBytes = 8 << 20

// Server hosts the builder API.
type Server struct {
	extractor *extract.Extractor
	metrics   *monitoring.Metrics
	registry  *prometheus.Registry
	router    *mux.Router
	http      *http.Server
}

// New wires the routes and returns a ready-to-listen server.
func New(addr string) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		extractor: extract.New(),
		metrics:   monitoring.NewMetrics(registry),
		registry:  registry,
		router:    mux.NewRouter(),
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/extract/test", s.handleExtractTest).Methods(http.MethodPost)
	api.HandleFunc("/context", s.handleContext).Methods(http.MethodPost)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Msg("builder API listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// pageRequest is the caller-supplied page snapshot. Globals, when present,
// seed the script environment the way a real browser harvest would.
type pageRequest struct {
	URL     string         `json:"url"`
	HTML    string         `json:"html"`
	Scripts bool           `json:"scripts,omitempty"`
	Globals map[string]any `json:"globals,omitempty"`
}

func (r *pageRequest) buildPage() (*page.Page, error) {
	switch {
	case len(r.Globals) > 0:
		return page.NewFromBrowser(r.HTML, r.URL, r.Globals)
	case r.Scripts:
		return page.NewWithScripts(r.HTML, r.URL)
	default:
		return page.New(r.HTML, r.URL)
	}
}

type extractTestRequest struct {
	Recipe recipe.Recipe `json:"recipe"`
	Page   pageRequest   `json:"page"`
}

func (s *Server) handleExtractTest(w http.ResponseWriter, r *http.Request) {
	var req extractTestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pg, err := req.Page.buildPage()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page: "+err.Error())
		return
	}

	start := time.Now()
	result, err := s.extractor.Test(&req.Recipe, req.Page.URL, pg)
	if err != nil {
		s.metrics.ObserveExtraction(req.Recipe.Merchant.Name, "error", time.Since(start).Seconds())
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.metrics.ObserveExtraction(req.Recipe.Merchant.Name, "ok", time.Since(start).Seconds())
	for _, out := range result.Outcomes {
		outcome := "missed"
		if out.Assigned {
			outcome = "assigned"
		} else if out.Found {
			outcome = "unnormalized"
		}
		s.metrics.ObserveField(string(out.Field), outcome)
	}

	writeData(w, result)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pg, err := req.buildPage()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page: "+err.Error())
		return
	}

	ctx, err := extract.BuildContext(pg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeData(w, map[string]any{
		"context":   ctx,
		"flattened": ctx.Flatten(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeData wraps data in the {success, data} envelope clients expect.
func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
