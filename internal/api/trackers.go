package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-health/heron/internal/derived"
	"github.com/opensource-health/heron/internal/domain"
)

// DoseStatusRequest is the body of PUT /trackers/doses/{id}/status.
type DoseStatusRequest struct {
	Status domain.DoseStatus `json:"status"`
}

// AdministeredRequest is the optional body of
// PUT /trackers/vaccines/{id}/administered.
type AdministeredRequest struct {
	AdministeredAt time.Time `json:"administeredAt"`
}

// TrackerAssessment recomputes, or serves from cache, the caller's
// assessment for a tracked domain.
func (h *Handler) TrackerAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	a, err := h.tracker.Assess(ctx, GetSession(ctx).UserID, domain.DomainID(chi.URLParam(r, "domain")), refresh)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// RecordMood handles POST /trackers/mood.
func (h *Handler) RecordMood(w http.ResponseWriter, r *http.Request) {
	var e domain.MoodEntry
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.tracker.RecordMood(r.Context(), GetSession(r.Context()).UserID, &e); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// RecordSleep handles POST /trackers/sleep.
func (h *Handler) RecordSleep(w http.ResponseWriter, r *http.Request) {
	var e domain.SleepEntry
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.tracker.RecordSleep(r.Context(), GetSession(r.Context()).UserID, &e); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ScheduleDose handles POST /trackers/doses.
func (h *Handler) ScheduleDose(w http.ResponseWriter, r *http.Request) {
	var d domain.DoseLog
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.tracker.ScheduleDose(r.Context(), GetSession(r.Context()).UserID, &d); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// SetDoseStatus handles PUT /trackers/doses/{id}/status.
func (h *Handler) SetDoseStatus(w http.ResponseWriter, r *http.Request) {
	var req DoseStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.tracker.SetDoseStatus(r.Context(), GetSession(r.Context()).UserID, id, req.Status); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": string(req.Status),
	})
}

// ScheduleVaccine handles POST /trackers/vaccines.
func (h *Handler) ScheduleVaccine(w http.ResponseWriter, r *http.Request) {
	var v domain.VaccineDose
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.tracker.ScheduleVaccine(r.Context(), GetSession(r.Context()).UserID, &v); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// MarkVaccineAdministered handles PUT /trackers/vaccines/{id}/administered.
// Without a body the dose is recorded as given now.
func (h *Handler) MarkVaccineAdministered(w http.ResponseWriter, r *http.Request) {
	var req AdministeredRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	id := chi.URLParam(r, "id")
	if err := h.tracker.MarkVaccineAdministered(r.Context(), GetSession(r.Context()).UserID, id, req.AdministeredAt); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           id,
		"administered": true,
	})
}

// CycleStatus handles GET /cycle/status. lastPeriodStart is a calendar
// date; lengths default to a 28 day cycle with a 5 day period.
func (h *Handler) CycleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := q.Get("lastPeriodStart")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "lastPeriodStart is required")
		return
	}
	start, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lastPeriodStart must be YYYY-MM-DD")
		return
	}

	cycleLength, err := intParam(q.Get("cycleLength"), derived.DefaultCycleLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cycleLength must be an integer")
		return
	}
	periodLength, err := intParam(q.Get("periodLength"), derived.DefaultPeriodLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, "periodLength must be an integer")
		return
	}

	writeJSON(w, http.StatusOK, derived.Status(start, h.now().UTC(), cycleLength, periodLength))
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
