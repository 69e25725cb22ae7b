package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-health/heron/internal/assessment"
	"github.com/opensource-health/heron/internal/catalog"
	"github.com/opensource-health/heron/internal/checkout"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/repository"
	"github.com/opensource-health/heron/internal/rules"
	"github.com/opensource-health/heron/internal/tracker"
	"github.com/opensource-health/heron/internal/worker"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	repo        domain.Repository
	cache       domain.Cache
	bus         domain.EventBus
	engine      *rules.Engine
	processor   *assessment.Processor
	tracker     *tracker.Service
	catalogFile string
	version     string
	now         func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies, version string) *Handler {
	return &Handler{
		repo:        deps.Repository,
		cache:       deps.Cache,
		bus:         deps.Bus,
		engine:      deps.Engine,
		processor:   deps.Processor,
		tracker:     deps.Tracker,
		catalogFile: deps.CatalogFile,
		version:     version,
		now:         time.Now,
	}
}

// AssessRequest is the request body for POST /assess/{domain}.
type AssessRequest struct {
	Observations domain.Observations `json:"observations"`
}

// Assess handles POST /assess/{domain}: one explicit observation set in,
// one assessment out.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := GetSession(ctx)
	domainID := domain.DomainID(chi.URLParam(r, "domain"))

	var req AssessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Observations == nil {
		writeError(w, http.StatusBadRequest, "observations object is required")
		return
	}

	a, err := h.processor.Process(ctx, &assessment.Input{
		UserID:       session.UserID,
		Domain:       domainID,
		Observations: req.Observations,
		TraceID:      GetTraceID(ctx),
		Source:       domain.SourceSubmission,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	if h.repo != nil {
		assessment.LinkPrevious(ctx, h.repo, a)
		if err := h.repo.SaveAssessment(ctx, session.UserID, a); err != nil {
			slog.Error("failed to save assessment", "assessment_id", a.ID, "error", err)
		}
	}
	if h.bus != nil {
		if err := worker.PublishAssessment(ctx, h.bus, a); err != nil {
			slog.Error("failed to publish assessment", "assessment_id", a.ID, "error", err)
		}
	}

	slog.Info("assessment completed",
		"assessment_id", a.ID,
		"user_id", session.UserID,
		"domain", a.Domain,
		"risk_level", a.RiskLevel,
		"score", a.Score,
	)
	writeJSON(w, http.StatusOK, a)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]string{}

	if h.repo != nil {
		checks["repository"] = "ok"
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["repository"] = err.Error()
		}
	}
	if h.cache != nil {
		checks["cache"] = "ok"
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["cache"] = err.Error()
		}
	}
	if h.bus != nil {
		checks["bus"] = "ok"
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["bus"] = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

// Ready reports whether domain packs are loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	count := h.engine.PacksCount()
	if count == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready": false,
			"packs": 0,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ready": true,
		"packs": count,
	})
}

// fail maps service errors to HTTP responses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, rules.ErrUnknownDomain),
		errors.Is(err, tracker.ErrNotTracked):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, tracker.ErrInvalidRecord),
		errors.Is(err, checkout.ErrInvalidRequest),
		errors.Is(err, catalog.ErrInvalidPack),
		errors.Is(err, catalog.ErrIncompleteCoverage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid JSON request body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
