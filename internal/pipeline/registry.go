// Package pipeline implements the event-driven Pipeline Engine (§4.4):
// a registry of Pipelines matched against incoming events, and an executor
// that runs each matched pipeline's steps in order against pluggable
// StepExecutors.
//
// Grounded on the teacher's internal/workflow (step loop, timeouts,
// continue-on-error) and internal/notify (channel-driver registry reused as
// the "notify" step's dispatch target); template rendering grounded on
// internal/resolver.go's {{var}} regex idiom.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// Registry stores Pipelines keyed by id and answers matches_event queries
// (§4.4 "Registry"). It also retains each pipeline's execution history for
// the §6 EXPANSION "GET /pipelines/{id}/executions" query.
type Registry struct {
	mu         sync.RWMutex
	pipelines  map[string]*model.Pipeline
	executions map[string][]*model.PipelineExecution // pipeline id -> history, newest last
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		pipelines:  make(map[string]*model.Pipeline),
		executions: make(map[string][]*model.PipelineExecution),
	}
}

// maxExecutionHistory bounds retained executions per pipeline.
const maxExecutionHistory = 200

// RecordExecution appends exec to its pipeline's history, trimming the
// oldest entries beyond maxExecutionHistory.
func (r *Registry) RecordExecution(exec *model.PipelineExecution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hist := append(r.executions[exec.PipelineID], exec)
	if len(hist) > maxExecutionHistory {
		hist = hist[len(hist)-maxExecutionHistory:]
	}
	r.executions[exec.PipelineID] = hist
}

// Executions returns the retained execution history for a pipeline, newest last.
func (r *Registry) Executions(pipelineID string) []*model.PipelineExecution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.PipelineExecution, len(r.executions[pipelineID]))
	copy(out, r.executions[pipelineID])
	return out
}

// Upsert adds or replaces a pipeline, assigning an id if absent.
func (r *Registry) Upsert(p *model.Pipeline) *model.Pipeline {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pipelines[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.pipelines[p.ID] = p
	return p
}

// Get returns a pipeline by id.
func (r *Registry) Get(id string) (*model.Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[id]
	return p, ok
}

// Delete removes a pipeline by id.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pipelines[id]; !ok {
		return false
	}
	delete(r.pipelines, id)
	return true
}

// List returns all registered pipelines.
func (r *Registry) List() []*model.Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	return out
}

// MatchingPipelines returns every pipeline whose matches_event(event)
// predicate is true (§4.4 "Registry").
func (r *Registry) MatchingPipelines(event model.PipelineEvent) []*model.Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Pipeline
	for _, p := range r.pipelines {
		if matchesEvent(p, event) {
			out = append(out, p)
		}
	}
	return out
}

func matchesEvent(p *model.Pipeline, event model.PipelineEvent) bool {
	def := p.Definition
	if !def.Enabled {
		return false
	}
	if p.WorkspaceID != "" && p.WorkspaceID != event.WorkspaceID {
		return false
	}
	if p.OrgID != "" && p.OrgID != event.OrgID {
		return false
	}

	for i := range def.Triggers {
		trigger := &def.Triggers[i]
		if trigger.Event != event.EventType {
			continue
		}
		if triggerFiltersMatch(trigger, event) {
			return true
		}
	}
	return false
}

// triggerFiltersMatch reports whether every filter on trigger matches event
// (§4.4 "some trigger's event matches AND all its filters match").
func triggerFiltersMatch(trigger *model.PipelineTrigger, event model.PipelineEvent) bool {
	for key, want := range trigger.Filters {
		switch key {
		case "workspace_id":
			if want != event.WorkspaceID {
				return false
			}
		case "org_id":
			if want != event.OrgID {
				return false
			}
		case "schema_type":
			got, _ := event.Payload["schema_type"].(string)
			if got != want {
				return false
			}
		default:
			got, ok := event.Payload[key]
			if !ok {
				return false
			}
			if asString(got) != want {
				return false
			}
		}
	}
	return true
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
