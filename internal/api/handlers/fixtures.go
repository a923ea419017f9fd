package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// CreateFixture handles POST /api/v2/fixtures (§6 EXPANSION "fixture CRUD").
func (h *Handlers) CreateFixture(w http.ResponseWriter, r *http.Request) {
	var f model.UnifiedFixture
	if err := decodeJSON(r, &f); err != nil {
		respondErr(w, err)
		return
	}
	h.Fixtures.Upsert(&f)
	respondData(w, http.StatusCreated, &f)
}

// ListFixtures handles GET /api/v2/fixtures.
func (h *Handlers) ListFixtures(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.Fixtures.List())
}

// GetFixture handles GET /api/v2/fixtures/{id}.
func (h *Handlers) GetFixture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := h.Fixtures.Get(id)
	if !ok {
		respondErr(w, model.NewError(model.ErrNotFound, "no fixture %q", id))
		return
	}
	respondData(w, http.StatusOK, f)
}

// UpdateFixture handles PUT /api/v2/fixtures/{id}.
func (h *Handlers) UpdateFixture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.Fixtures.Get(id); !ok {
		respondErr(w, model.NewError(model.ErrNotFound, "no fixture %q", id))
		return
	}
	var f model.UnifiedFixture
	if err := decodeJSON(r, &f); err != nil {
		respondErr(w, err)
		return
	}
	f.ID = id
	h.Fixtures.Upsert(&f)
	respondData(w, http.StatusOK, &f)
}

// DeleteFixture handles DELETE /api/v2/fixtures/{id}.
func (h *Handlers) DeleteFixture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.Fixtures.Delete(id) {
		respondErr(w, model.NewError(model.ErrNotFound, "no fixture %q", id))
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": id})
}
