// Package handlers implements the management REST surface's per-resource
// HTTP handlers (§6): state machines, promotions, fixtures, pipelines, and
// manual event publish.
//
// Grounded on the teacher's internal/api/handlers.Handlers (dependency
// struct, New() constructor, respondJSON/respondError helpers), adapted from
// the teacher's bare-data/{"error":...} convention to the spec's standard
// envelope {success, data, error}.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/internal/events"
	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/pipeline"
	"github.com/mockforge/mockforge-go/internal/promotion"
	"github.com/mockforge/mockforge-go/internal/scenario"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// Handlers holds the core subsystems the REST surface dispatches into.
type Handlers struct {
	Scenario  *scenario.Engine
	Promotion *promotion.Service
	Fixtures  *fixture.Registry
	Pipelines *pipeline.Registry
	Events    *events.Bus
}

// New builds a Handlers wired to the given subsystems.
func New(scenarioEngine *scenario.Engine, promotionSvc *promotion.Service, fixtures *fixture.Registry, pipelines *pipeline.Registry, bus *events.Bus) *Handlers {
	return &Handlers{
		Scenario:  scenarioEngine,
		Promotion: promotionSvc,
		Fixtures:  fixtures,
		Pipelines: pipelines,
		Events:    bus,
	}
}

// envelope is the standard response shape for every route (§6).
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// respondErr translates a core error (or a plain error) into the envelope
// and the §7 HTTP-equivalent status code for its ErrorKind.
func respondErr(w http.ResponseWriter, err error) {
	status := httpStatusFor(model.KindOf(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()}); encErr != nil {
		log.Error().Err(encErr).Msg("failed to encode error response body")
	}
}

func badRequest(w http.ResponseWriter, message string) {
	respondErr(w, model.NewError(model.ErrValidation, "%s", message))
}

// httpStatusFor maps the five §7 error kinds to their REST status codes.
func httpStatusFor(kind model.ErrorKind) int {
	switch kind {
	case model.ErrValidation:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrConflict:
		return http.StatusConflict
	case model.ErrDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(into); err != nil {
		return model.NewError(model.ErrValidation, "invalid request body: %s", err.Error())
	}
	return nil
}
