// Package server exposes the threshold catalog and the analysis engine over
// HTTP. Every request is evaluated on its own against the shared, read-only
// catalog.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes bounds an analyze request body.
const maxBodyBytes = 1 << 20

// RunRecorder stores finished runs. history.Store satisfies it.
type RunRecorder interface {
	Record(ctx context.Context, r *engine.Report, source string) error
}

type Handler struct {
	cat  *catalog.Catalog
	runs RunRecorder
	log  *zap.Logger
}

// NewHandler builds a handler. runs may be nil to disable history.
func NewHandler(cat *catalog.Catalog, runs RunRecorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cat: cat, runs: runs, log: logger}
}

type AnalyzeRequest struct {
	Mode    string         `json:"mode"`
	Entries []engine.Entry `json:"entries"`
}

type CatalogResponse struct {
	Mode       catalog.Mode        `json:"mode"`
	Thresholds []catalog.Threshold `json:"thresholds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"modes":  catalog.Modes(),
	})
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	mode, err := catalog.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, err := h.cat.Resolve(mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Mode: mode, Thresholds: t.Thresholds()})
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body: "+err.Error()))
		return
	}
	mode := catalog.DefaultMode
	if req.Mode != "" {
		m, err := catalog.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		mode = m
	}
	t, err := h.cat.Resolve(mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rep, err := engine.Analyze(req.Entries, t)
	if errors.Is(err, engine.ErrNoEligibleEntries) {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h.runs != nil {
		// A history failure is logged; the caller still gets the result.
		if err := h.runs.Record(r.Context(), rep, "http"); err != nil {
			h.log.Warn("record run failed", zap.String("run_id", rep.RunID), zap.Error(err))
		}
	}
	h.log.Info("analysis complete",
		zap.String("run_id", rep.RunID),
		zap.String("mode", string(mode)),
		zap.String("verdict", rep.Summary.Verdict.String()),
		zap.Int("results", rep.Summary.Total))
	writeJSON(w, http.StatusOK, report.NewDocument(rep))
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/health", h.Health)
	r.Get("/catalog/{mode}", h.Catalog)
	r.Post("/analyze", h.Analyze)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
