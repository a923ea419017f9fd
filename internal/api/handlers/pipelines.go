package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// CreatePipeline handles POST /api/v2/pipelines (§6 EXPANSION "pipeline CRUD").
func (h *Handlers) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var p model.Pipeline
	if err := decodeJSON(r, &p); err != nil {
		respondErr(w, err)
		return
	}
	created := h.Pipelines.Upsert(&p)
	respondData(w, http.StatusCreated, created)
}

// ListPipelines handles GET /api/v2/pipelines.
func (h *Handlers) ListPipelines(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.Pipelines.List())
}

// GetPipeline handles GET /api/v2/pipelines/{id}.
func (h *Handlers) GetPipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.Pipelines.Get(id)
	if !ok {
		respondErr(w, model.NewError(model.ErrNotFound, "no pipeline %q", id))
		return
	}
	respondData(w, http.StatusOK, p)
}

// UpdatePipeline handles PUT /api/v2/pipelines/{id}.
func (h *Handlers) UpdatePipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.Pipelines.Get(id); !ok {
		respondErr(w, model.NewError(model.ErrNotFound, "no pipeline %q", id))
		return
	}
	var p model.Pipeline
	if err := decodeJSON(r, &p); err != nil {
		respondErr(w, err)
		return
	}
	p.ID = id
	updated := h.Pipelines.Upsert(&p)
	respondData(w, http.StatusOK, updated)
}

// DeletePipeline handles DELETE /api/v2/pipelines/{id}.
func (h *Handlers) DeletePipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.Pipelines.Delete(id) {
		respondErr(w, model.NewError(model.ErrNotFound, "no pipeline %q", id))
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": id})
}

// PipelineExecutions handles GET /api/v2/pipelines/{id}/executions (§6
// EXPANSION "pipeline execution history").
func (h *Handlers) PipelineExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.Pipelines.Get(id); !ok {
		respondErr(w, model.NewError(model.ErrNotFound, "no pipeline %q", id))
		return
	}
	respondData(w, http.StatusOK, h.Pipelines.Executions(id))
}
