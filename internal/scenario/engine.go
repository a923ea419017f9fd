// Package scenario implements the Scenario State Machine Engine (§4.3): load
// and validate state machines from manifests, track live instances, and
// execute transitions with condition evaluation and bounded sub-scenario
// driving.
//
// Grounded on the teacher's workflow.Engine (step loop, single-engine-lock
// idiom) and original_source's state_machine.rs (StateInstance/history shape).
package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/internal/events"
	"github.com/mockforge/mockforge-go/internal/telemetry"
	"github.com/mockforge/mockforge-go/pkg/model"
)

var tracer = telemetry.Tracer("mockforge/scenario")

// maxSubScenarioIterations bounds the sub-instance driving loop (§4.3).
const maxSubScenarioIterations = 100

// Engine holds loaded state machines and live instances behind a single
// read-write lock (§4.3 "Concurrency"; §5).
type Engine struct {
	mu            sync.RWMutex
	stateMachines map[string]*model.StateMachine // resource_type -> machine
	instances     map[string]*model.StateInstance // resource_id -> instance
	bus           *events.Bus
}

// New creates an empty Engine. bus may be nil (lifecycle events dropped).
func New(bus *events.Bus) *Engine {
	return &Engine{
		stateMachines: make(map[string]*model.StateMachine),
		instances:     make(map[string]*model.StateInstance),
		bus:           bus,
	}
}

func (e *Engine) publish(eventType, resourceType string, extra map[string]interface{}) {
	if e.bus == nil {
		return
	}
	payload := map[string]interface{}{"resource_type": resourceType}
	for k, v := range extra {
		payload[k] = v
	}
	e.bus.Publish(model.PipelineEvent{EventType: eventType, Payload: payload})
}

// LoadFromManifest validates and stores every declared state machine,
// keyed by resource_type (§4.3 "Load & validate").
func (e *Engine) LoadFromManifest(m *Manifest) error {
	machines := make(map[string]*model.StateMachine, len(m.StateMachines))
	for i := range m.StateMachines {
		sm := m.StateMachines[i].toModel()
		if err := validateStateMachine(sm); err != nil {
			return fmt.Errorf("state_machines[%d]: %w", i, err)
		}
		machines[sm.ResourceType] = sm
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for rt, sm := range machines {
		e.stateMachines[rt] = sm
	}
	log.Info().Int("count", len(machines)).Msg("scenario manifest loaded")
	for rt := range machines {
		e.publish("state_machine_updated", rt, nil)
	}
	return nil
}

// UpsertStateMachine validates and stores a single state machine, replacing
// any existing machine of the same resource_type (§6 "POST /state-machines").
// Emits state_machine_updated.
func (e *Engine) UpsertStateMachine(sm *model.StateMachine) error {
	if err := validateStateMachine(sm); err != nil {
		return err
	}
	e.mu.Lock()
	e.stateMachines[sm.ResourceType] = sm
	e.mu.Unlock()
	e.publish("state_machine_updated", sm.ResourceType, nil)
	return nil
}

// GetStateMachine returns the loaded machine for resourceType.
func (e *Engine) GetStateMachine(resourceType string) (*model.StateMachine, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sm, ok := e.stateMachines[resourceType]
	return sm, ok
}

// ListStateMachines returns every loaded state machine.
func (e *Engine) ListStateMachines() []*model.StateMachine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*model.StateMachine, 0, len(e.stateMachines))
	for _, sm := range e.stateMachines {
		out = append(out, sm)
	}
	return out
}

// DeleteStateMachine removes the machine for resourceType. Emits
// state_machine_deleted.
func (e *Engine) DeleteStateMachine(resourceType string) bool {
	e.mu.Lock()
	_, ok := e.stateMachines[resourceType]
	if ok {
		delete(e.stateMachines, resourceType)
	}
	e.mu.Unlock()
	if ok {
		e.publish("state_machine_deleted", resourceType, nil)
	}
	return ok
}

// ImportFromManifest is an alias of LoadFromManifest for the round-trip
// query pair named in §4.3 ("export_all / import_from_manifest").
func (e *Engine) ImportFromManifest(m *Manifest) error {
	return e.LoadFromManifest(m)
}

// ExportAll returns every loaded state machine in manifest form.
func (e *Engine) ExportAll() *Manifest {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := &Manifest{}
	for _, sm := range e.stateMachines {
		out.StateMachines = append(out.StateMachines, fromModel(sm))
	}
	return out
}

func fromModel(sm *model.StateMachine) ManifestStateMachine {
	m := ManifestStateMachine{
		ResourceType: sm.ResourceType,
		States:       sm.States,
		InitialState: sm.InitialState,
		Tags:         sm.Tags,
	}
	for _, t := range sm.Transitions {
		m.Transitions = append(m.Transitions, ManifestTransition{
			FromState: t.FromState, ToState: t.ToState,
			ConditionExpression: t.ConditionExpression,
			SubScenarioRef:      t.SubScenarioRef,
			Probability:         t.Probability,
		})
	}
	for _, s := range sm.SubScenarios {
		m.SubScenarios = append(m.SubScenarios, ManifestSubScenario{
			ID:            s.ID,
			StateMachine:  fromModel(s.StateMachine),
			InputMapping:  s.InputMapping,
			OutputMapping: s.OutputMapping,
		})
	}
	return m
}

// CreateInstance creates a tracked instance at its state machine's initial
// state (§4.3 "Instance lifecycle").
func (e *Engine) CreateInstance(resourceID, resourceType string) (*model.StateInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sm, ok := e.stateMachines[resourceType]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "no state machine loaded for resource_type %q", resourceType)
	}
	inst := &model.StateInstance{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		CurrentState: sm.InitialState,
		StateData:    make(map[string]interface{}),
	}
	e.instances[resourceID] = inst
	e.publish("state_instance_created", resourceType, map[string]interface{}{"resource_id": resourceID, "current_state": inst.CurrentState})
	return inst.Clone(), nil
}

// DeleteInstance removes a tracked instance.
func (e *Engine) DeleteInstance(resourceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.instances[resourceID]; !ok {
		return false
	}
	delete(e.instances, resourceID)
	return true
}

// GetCurrentState returns the instance's current state.
func (e *Engine) GetCurrentState(resourceID string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.instances[resourceID]
	if !ok {
		return "", model.NewError(model.ErrNotFound, "no instance %q", resourceID)
	}
	return inst.CurrentState, nil
}

// GetNextStates returns the distinct to_state values reachable from the
// instance's current state (§4.3 "Queries").
func (e *Engine) GetNextStates(resourceID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	inst, ok := e.instances[resourceID]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "no instance %q", resourceID)
	}
	sm, ok := e.stateMachines[inst.ResourceType]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "no state machine for resource_type %q", inst.ResourceType)
	}

	seen := make(map[string]bool)
	var out []string
	for _, t := range sm.Transitions {
		if t.FromState == inst.CurrentState && !seen[t.ToState] {
			seen[t.ToState] = true
			out = append(out, t.ToState)
		}
	}
	return out, nil
}

// ListInstances returns a snapshot of all tracked instances.
func (e *Engine) ListInstances() []*model.StateInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*model.StateInstance, 0, len(e.instances))
	for _, inst := range e.instances {
		out = append(out, inst.Clone())
	}
	return out
}

// ExecuteTransition runs the five-step algorithm in §4.3: locate the
// transition, evaluate its condition, run any sub-scenario, then record
// history and advance current_state.
func (e *Engine) ExecuteTransition(resourceID, toState string, contextMap map[string]interface{}) (*model.StateInstance, error) {
	_, span := tracer.Start(context.Background(), "scenario.execute_transition")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[resourceID]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "no instance %q", resourceID)
	}
	sm, ok := e.stateMachines[inst.ResourceType]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "no state machine for resource_type %q", inst.ResourceType)
	}

	var transition *model.StateTransition
	for i := range sm.Transitions {
		t := &sm.Transitions[i]
		if t.FromState == inst.CurrentState && t.ToState == toState {
			transition = t
			break
		}
	}
	if transition == nil {
		return nil, model.NewError(model.ErrValidation,
			"no valid transition from %q to %q", inst.CurrentState, toState).WithCode("no_valid_transition")
	}

	ok, err := evalCondition(transition.ConditionExpression, contextMap, inst.StateData)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewError(model.ErrValidation, "condition not met for transition to %q", toState).
			WithCode("condition_not_met")
	}

	if transition.SubScenarioRef != "" {
		sub := sm.SubScenarioByID(transition.SubScenarioRef)
		if sub != nil {
			if outputs, subErr := e.runSubScenario(sub, inst.StateData); subErr != nil {
				log.Warn().Str("resource_id", resourceID).Str("sub_scenario", sub.ID).Err(subErr).
					Msg("sub-scenario execution failed; parent transition proceeds")
			} else {
				for k, v := range outputs {
					inst.StateData[k] = v
				}
			}
		}
	}

	now := time.Now().UTC()
	inst.StateHistory = append(inst.StateHistory, model.StateHistoryEntry{
		From: inst.CurrentState, To: toState, Timestamp: now,
		TransitionID: fmt.Sprintf("%s->%s", transition.FromState, transition.ToState),
	})
	inst.CurrentState = toState

	e.publish("state_transitioned", inst.ResourceType, map[string]interface{}{
		"resource_id": resourceID, "from": transition.FromState, "to": toState, "state_data": inst.StateData,
	})
	return inst.Clone(), nil
}

// runSubScenario drives an ephemeral nested instance to completion and
// returns its output-mapped data (§4.3 "Sub-scenario execution"). Caller
// must already hold e.mu.
func (e *Engine) runSubScenario(sub *model.SubScenario, parentData map[string]interface{}) (map[string]interface{}, error) {
	subInst := &model.StateInstance{
		ResourceID:   fmt.Sprintf("sub-%s-%s", sub.ID, uuid.New().String()),
		ResourceType: sub.StateMachine.ResourceType,
		CurrentState: sub.StateMachine.InitialState,
		StateData:    make(map[string]interface{}),
	}
	applyMapping(parentData, sub.InputMapping, subInst.StateData)

	for i := 0; i < maxSubScenarioIterations; i++ {
		var next *model.StateTransition
		for j := range sub.StateMachine.Transitions {
			t := &sub.StateMachine.Transitions[j]
			if t.FromState != subInst.CurrentState {
				continue
			}
			ok, err := evalCondition(t.ConditionExpression, nil, subInst.StateData)
			if err != nil || !ok {
				continue
			}
			next = t
			break
		}
		if next == nil {
			break // no outgoing transition passes: stop driving
		}
		subInst.StateHistory = append(subInst.StateHistory, model.StateHistoryEntry{
			From: next.FromState, To: next.ToState, Timestamp: time.Now().UTC(),
			TransitionID: fmt.Sprintf("%s->%s", next.FromState, next.ToState),
		})
		subInst.CurrentState = next.ToState
	}

	output := make(map[string]interface{})
	applyMapping(subInst.StateData, sub.OutputMapping, output)
	return output, nil
}
