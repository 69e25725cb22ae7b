package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-health/heron/internal/catalog"
	"github.com/opensource-health/heron/internal/domain"
)

// DomainSummary is the list view of a loaded domain pack.
type DomainSummary struct {
	ID         domain.DomainID   `json:"id"`
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	Rules      int               `json:"rules"`
	MaxScore   int               `json:"maxScore"`
	Thresholds domain.Thresholds `json:"thresholds"`
}

// ListDomains returns the loaded domain packs.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	packs := h.engine.Packs()
	out := make([]DomainSummary, 0, len(packs))
	for _, p := range packs {
		out = append(out, DomainSummary{
			ID:         p.ID,
			Name:       p.Name,
			Version:    p.Version,
			Rules:      len(p.Rules),
			MaxScore:   p.MaxScore(),
			Thresholds: p.Thresholds,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"domains": out,
		"count":   len(out),
	})
}

// GetDomain returns one loaded pack with its rule table and bundles.
func (h *Handler) GetDomain(w http.ResponseWriter, r *http.Request) {
	pack, err := h.engine.Pack(domain.DomainID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pack)
}

// PutDomain stores a pack override and reloads the engine.
func (h *Handler) PutDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.DomainID(chi.URLParam(r, "id"))

	var pack domain.DomainPack
	if err := decodeJSON(r, &pack); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if pack.ID == "" {
		pack.ID = id
	}
	if pack.ID != id {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("pack id %q does not match path %q", pack.ID, id))
		return
	}

	if err := catalog.Validate(&pack); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.engine.ValidatePack(&pack); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.SaveDomainPack(ctx, &pack); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.reload(r); err != nil {
		h.fail(w, err)
		return
	}

	slog.Info("domain pack updated",
		"domain", pack.ID,
		"version", pack.Version,
		"rules", len(pack.Rules),
		"user_id", GetSession(ctx).UserID,
	)
	writeJSON(w, http.StatusOK, pack)
}

// ReloadDomains re-reads built-in, file and stored packs into the engine.
func (h *Handler) ReloadDomains(w http.ResponseWriter, r *http.Request) {
	if err := h.reload(r); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"packs":  h.engine.PacksCount(),
	})
}

func (h *Handler) reload(r *http.Request) error {
	packs, err := catalog.Load(r.Context(), h.repo, h.catalogFile)
	if err != nil {
		return err
	}
	if err := h.engine.ReloadPacks(packs); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrInvalidPack, err)
	}
	return nil
}
