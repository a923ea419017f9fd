package handlers

import (
	"net/http"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// PublishEvent handles POST /api/v2/events (§6 EXPANSION "manual event
// publish"): lets an operator hand-fire a MockEvent to exercise pipeline
// triggers without waiting for the real lifecycle event.
func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var event model.PipelineEvent
	if err := decodeJSON(r, &event); err != nil {
		respondErr(w, err)
		return
	}
	if event.EventType == "" {
		badRequest(w, "event_type is required")
		return
	}
	h.Events.Publish(event)
	respondData(w, http.StatusAccepted, event)
}
