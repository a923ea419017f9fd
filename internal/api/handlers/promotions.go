package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// CreatePromotion handles POST /api/v2/promotions (§4.6, §6). The requesting
// user is carried in the X-Mockforge-User header, matching the teacher's
// header-based actor convention for endpoints not behind a full auth layer.
func (h *Handlers) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EntityType      model.PromotionEntityType `json:"entity_type"`
		EntityID        string                    `json:"entity_id"`
		EntityVersion   string                    `json:"entity_version"`
		WorkspaceID     string                    `json:"workspace_id"`
		FromEnvironment model.MockEnvironmentName `json:"from_environment"`
		ToEnvironment   model.MockEnvironmentName `json:"to_environment"`
		EntityTags      []string                  `json:"entity_tags,omitempty"`
		Comments        string                    `json:"comments,omitempty"`
		Metadata        map[string]string         `json:"metadata,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	requestedBy := r.Header.Get("X-Mockforge-User")
	if requestedBy == "" {
		badRequest(w, "X-Mockforge-User header is required")
		return
	}

	req := &model.PromotionRequest{
		EntityType:      body.EntityType,
		EntityID:        body.EntityID,
		EntityVersion:   body.EntityVersion,
		WorkspaceID:     body.WorkspaceID,
		FromEnvironment: body.FromEnvironment,
		ToEnvironment:   body.ToEnvironment,
		EntityTags:      body.EntityTags,
		Comments:        body.Comments,
		Metadata:        body.Metadata,
		RequestedBy:     requestedBy,
	}
	created := h.Promotion.Create(req)
	respondData(w, http.StatusCreated, created)
}

// UpdatePromotionStatus handles PUT /api/v2/promotions/{id}/status.
func (h *Handlers) UpdatePromotionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Status     model.PromotionStatus `json:"status"`
		ApprovedBy string                `json:"approved_by,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	approver := body.ApprovedBy
	if approver == "" {
		approver = r.Header.Get("X-Mockforge-User")
	}
	updated, err := h.Promotion.UpdateStatus(r.Context(), id, body.Status, approver)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, updated)
}

// GetPromotion handles GET /api/v2/promotions/{id}.
func (h *Handlers) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.Promotion.Get(id)
	if !ok {
		respondErr(w, model.NewError(model.ErrNotFound, "no promotion request %q", id))
		return
	}
	respondData(w, http.StatusOK, p)
}

// ListWorkspacePromotions handles GET /api/v2/promotions/workspace/{id}.
func (h *Handlers) ListWorkspacePromotions(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "id")
	status := model.PromotionStatus(r.URL.Query().Get("status"))
	offset, limit := pageParams(r)
	out := h.Promotion.ListWorkspacePromotions(workspaceID, status, offset, limit)
	respondData(w, http.StatusOK, out)
}

// ListPendingPromotions handles GET /api/v2/promotions/pending.
func (h *Handlers) ListPendingPromotions(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	out := h.Promotion.ListPendingPromotions(offset, limit)
	respondData(w, http.StatusOK, out)
}

// EntityPromotionHistory handles GET /api/v2/promotions/entity/{type}/{id}?workspace_id=.
func (h *Handlers) EntityPromotionHistory(w http.ResponseWriter, r *http.Request) {
	entityType := model.PromotionEntityType(chi.URLParam(r, "type"))
	entityID := chi.URLParam(r, "id")
	workspaceID := r.URL.Query().Get("workspace_id")
	out := h.Promotion.History(workspaceID, entityType, entityID)
	respondData(w, http.StatusOK, out)
}

func pageParams(r *http.Request) (offset, limit int) {
	limit = 50
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return offset, limit
}
