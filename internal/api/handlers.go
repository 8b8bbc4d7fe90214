package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/report"
	"github.com/spherical/pdf-diff/internal/storage"
)

// RunStore is the history the API records into and serves from.
type RunStore interface {
	Save(ctx context.Context, run *storage.Run) error
	Get(ctx context.Context, id string) (*storage.Run, error)
	List(ctx context.Context, limit int) ([]*storage.Run, error)
}

// DiffHandler handles token-stream diff requests.
type DiffHandler struct {
	logger *observability.Logger
	cfg    Config
	runs   RunStore
}

// NewDiffHandler creates a new diff handler.
func NewDiffHandler(logger *observability.Logger, cfg Config, runs RunStore) *DiffHandler {
	return &DiffHandler{logger: logger.WithOperation("api.diff"), cfg: cfg, runs: runs}
}

// DiffOptionsDTO tunes one request. Unset fields fall back to server config.
type DiffOptionsDTO struct {
	Strategy          string `json:"strategy,omitempty"`
	ExemptBoilerplate *bool  `json:"exempt_boilerplate,omitempty"`
	PageDiff          bool   `json:"page_diff,omitempty"`
	OldName           string `json:"old_name,omitempty"`
	NewName           string `json:"new_name,omitempty"`
}

// DiffRequestDTO is the body of POST /v1/diff.
type DiffRequestDTO struct {
	Old     *domain.Document `json:"old"`
	New     *domain.Document `json:"new"`
	Options DiffOptionsDTO   `json:"options"`
}

// DiffResponseDTO is the reply to POST /v1/diff.
type DiffResponseDTO struct {
	RunID      string                                `json:"run_id"`
	Strategy   diff.Strategy                         `json:"strategy"`
	Empty      bool                                  `json:"empty"`
	Script     domain.EditScript                     `json:"script"`
	Statistics domain.Statistics                     `json:"statistics"`
	Record     report.Record                         `json:"record"`
	Regions    report.SidePair[[]domain.PageRegions] `json:"regions"`
	Exempt     report.SidePair[[]string]             `json:"exempt"`
	PageDiff   string                                `json:"page_diff,omitempty"`
}

// Diff handles POST /v1/diff.
func (h *DiffHandler) Diff(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	}

	var req DiffRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	strategy := req.Options.Strategy
	if strategy == "" {
		strategy = h.cfg.Strategy
	}
	aligner, err := diff.NewAligner(diff.Strategy(strategy))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	exempt := h.cfg.ExemptBoilerplate
	if req.Options.ExemptBoilerplate != nil {
		exempt = *req.Options.ExemptBoilerplate
	}

	start := time.Now()
	engine := diff.NewEngine(diff.WithAligner(aligner), diff.WithExemptions(exempt), diff.WithLogger(h.logger))
	result, err := engine.Run(req.Old, req.New)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		h.logger.Error().Err(err).Msg("diff failed")
		writeError(w, http.StatusInternalServerError, "diff failed", err.Error())
		return
	}

	resp := DiffResponseDTO{
		RunID:      uuid.NewString(),
		Strategy:   result.Strategy,
		Empty:      result.Empty,
		Script:     result.Script,
		Statistics: result.Stats,
		Record:     report.NewRecord(result.Stats),
		Regions:    report.SidePair[[]domain.PageRegions]{Old: result.Old.Regions, New: result.New.Regions},
		Exempt:     report.SidePair[[]string]{Old: result.Old.Exempt, New: result.New.Exempt},
	}
	if req.Options.PageDiff {
		if resp.PageDiff, err = diff.PageTextDiff(req.Old, req.New, 3); err != nil {
			h.logger.Warn().Err(err).Msg("page diff failed")
		}
	}

	if h.runs != nil {
		run := &storage.Run{
			ID:                resp.RunID,
			OldPath:           req.Options.OldName,
			NewPath:           req.Options.NewName,
			Strategy:          string(result.Strategy),
			ExemptBoilerplate: result.Exemptions,
			Empty:             result.Empty,
			Stats:             result.Stats,
			Duration:          time.Since(start),
		}
		if err := h.runs.Save(r.Context(), run); err != nil {
			h.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record comparison history")
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// RunHandler serves comparison history.
type RunHandler struct {
	logger *observability.Logger
	runs   RunStore
}

// NewRunHandler creates a new history handler.
func NewRunHandler(logger *observability.Logger, runs RunStore) *RunHandler {
	return &RunHandler{logger: logger.WithOperation("api.runs"), runs: runs}
}

// List handles GET /v1/runs.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", s)
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list runs failed")
		writeError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// Get handles GET /v1/runs/{runId}.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runId")
	run, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found", id)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", id).Msg("get run failed")
		writeError(w, http.StatusInternalServerError, "failed to get run", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
