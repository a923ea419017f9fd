package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockforge/mockforge-go/internal/scenario"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// UpsertStateMachine handles POST /api/v2/state-machines (§6).
func (h *Handlers) UpsertStateMachine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StateMachine model.StateMachine  `json:"state_machine"`
		VisualLayout *model.VisualLayout `json:"visual_layout,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	sm := body.StateMachine
	if body.VisualLayout != nil {
		sm.VisualLayout = body.VisualLayout
	}
	if err := h.Scenario.UpsertStateMachine(&sm); err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, &sm)
}

// ListStateMachines handles GET /api/v2/state-machines.
func (h *Handlers) ListStateMachines(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.Scenario.ListStateMachines())
}

// GetStateMachine handles GET /api/v2/state-machines/{resource_type}.
func (h *Handlers) GetStateMachine(w http.ResponseWriter, r *http.Request) {
	resourceType := chi.URLParam(r, "resourceType")
	sm, ok := h.Scenario.GetStateMachine(resourceType)
	if !ok {
		respondErr(w, model.NewError(model.ErrNotFound, "no state machine for resource_type %q", resourceType))
		return
	}
	respondData(w, http.StatusOK, sm)
}

// DeleteStateMachine handles DELETE /api/v2/state-machines/{resource_type}.
func (h *Handlers) DeleteStateMachine(w http.ResponseWriter, r *http.Request) {
	resourceType := chi.URLParam(r, "resourceType")
	if !h.Scenario.DeleteStateMachine(resourceType) {
		respondErr(w, model.NewError(model.ErrNotFound, "no state machine for resource_type %q", resourceType))
		return
	}
	respondData(w, http.StatusOK, map[string]string{"resource_type": resourceType})
}

// CreateInstance handles POST /api/v2/state-machines/instances.
func (h *Handlers) CreateInstance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ResourceID   string `json:"resource_id"`
		ResourceType string `json:"resource_type"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	inst, err := h.Scenario.CreateInstance(body.ResourceID, body.ResourceType)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusCreated, inst)
}

// TransitionInstance handles POST /api/v2/state-machines/instances/{resource_id}/transition.
func (h *Handlers) TransitionInstance(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceID")
	var body struct {
		ToState string                 `json:"to_state"`
		Context map[string]interface{} `json:"context,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	inst, err := h.Scenario.ExecuteTransition(resourceID, body.ToState, body.Context)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, inst)
}

// NextStates handles GET /api/v2/state-machines/instances/{resource_id}/next-states.
func (h *Handlers) NextStates(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceID")
	next, err := h.Scenario.GetNextStates(resourceID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"next_states": next})
}

// ExportStateMachines handles GET /api/v2/state-machines/export.
func (h *Handlers) ExportStateMachines(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.Scenario.ExportAll())
}

// ImportStateMachines handles POST /api/v2/state-machines/import.
func (h *Handlers) ImportStateMachines(w http.ResponseWriter, r *http.Request) {
	var manifest scenario.Manifest
	if err := decodeJSON(r, &manifest); err != nil {
		respondErr(w, err)
		return
	}
	if err := h.Scenario.ImportFromManifest(&manifest); err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int{"imported": len(manifest.StateMachines)})
}
