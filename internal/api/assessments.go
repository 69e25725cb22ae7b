package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-health/heron/internal/checkout"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/report"
	"github.com/opensource-health/heron/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ListAssessments handles GET /assessments?domain=&since=&limit=.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.repo.ListAssessments(r.Context(), GetSession(r.Context()).UserID, filter)
	if err != nil {
		h.fail(w, err)
		return
	}

	out := make([]domain.AssessmentSummary, 0, len(list))
	for _, a := range list {
		out = append(out, a.Summary())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assessments": out,
		"count":       len(out),
	})
}

// GetAssessment handles GET /assessments/{id}.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := h.repo.GetAssessment(r.Context(), GetSession(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// AssessmentReport renders a stored assessment as an HTML document.
func (h *Handler) AssessmentReport(w http.ResponseWriter, r *http.Request) {
	a, err := h.repo.GetAssessment(r.Context(), GetSession(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	body, err := report.RenderHTML(a)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ExportAssessments returns the caller's assessment history as a workbook.
func (h *Handler) ExportAssessments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := GetSession(r.Context())
	list, err := h.repo.ListAssessments(r.Context(), session.UserID, filter)
	if err != nil {
		h.fail(w, err)
		return
	}

	body, err := report.WorkbookFromAssessments(list)
	if err != nil {
		h.fail(w, err)
		return
	}

	slog.Info("assessments exported", "user_id", session.UserID, "count", len(list))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="assessments.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// CheckoutDecision handles POST /checkout/decision.
func (h *Handler) CheckoutDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now().UTC()
	sub, err := h.repo.GetActiveSubscription(ctx, GetSession(ctx).UserID, now)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.fail(w, err)
		return
	}

	decision, err := checkout.Decide(sub, req, now)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// SubscriptionRequest is the body of POST /subscriptions.
type SubscriptionRequest struct {
	UserID            string    `json:"userId"`
	Plan              string    `json:"plan"`
	SessionsRemaining int       `json:"sessionsRemaining"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// CreateSubscription grants a prepaid counselling plan to a user.
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req SubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case req.UserID == "":
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	case req.Plan == "":
		writeError(w, http.StatusBadRequest, "plan is required")
		return
	case req.SessionsRemaining < 0:
		writeError(w, http.StatusBadRequest, "sessionsRemaining must not be negative")
		return
	case req.ExpiresAt.IsZero():
		writeError(w, http.StatusBadRequest, "expiresAt is required")
		return
	}

	sub := &domain.Subscription{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		Plan:              req.Plan,
		SessionsRemaining: req.SessionsRemaining,
		ExpiresAt:         req.ExpiresAt.UTC(),
		CreatedAt:         h.now().UTC(),
	}
	if err := h.repo.SaveSubscription(r.Context(), req.UserID, sub); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// parseFilter reads domain, since (RFC 3339 or YYYY-MM-DD) and limit.
func parseFilter(r *http.Request, defaultLimit int) (domain.AssessmentFilter, error) {
	q := r.URL.Query()
	filter := domain.AssessmentFilter{
		Domain: domain.DomainID(q.Get("domain")),
		Limit:  defaultLimit,
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			since, err = time.ParseInLocation(time.DateOnly, raw, time.UTC)
		}
		if err != nil {
			return filter, errors.New("since must be RFC 3339 or YYYY-MM-DD")
		}
		filter.Since = since.UTC()
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = min(limit, maxListLimit)
	}
	return filter, nil
}
