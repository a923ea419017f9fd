package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// Manifest is the document shape for `load_from_manifest` (§4.3, §6),
// loadable both as a YAML file and as the body of the REST export/import
// round-trip.
type Manifest struct {
	StateMachines []ManifestStateMachine `yaml:"state_machines" json:"state_machines"`
}

// ManifestStateMachine mirrors model.StateMachine in the manifest's wire shape.
type ManifestStateMachine struct {
	ResourceType string                `yaml:"resource_type" json:"resource_type"`
	States       []string              `yaml:"states" json:"states"`
	InitialState string                `yaml:"initial_state" json:"initial_state"`
	Transitions  []ManifestTransition  `yaml:"transitions" json:"transitions"`
	SubScenarios []ManifestSubScenario `yaml:"sub_scenarios" json:"sub_scenarios,omitempty"`
	Tags         []string              `yaml:"tags" json:"tags,omitempty"`
}

// ManifestTransition mirrors model.StateTransition.
type ManifestTransition struct {
	FromState           string   `yaml:"from_state" json:"from_state"`
	ToState             string   `yaml:"to_state" json:"to_state"`
	ConditionExpression string   `yaml:"condition_expression" json:"condition_expression,omitempty"`
	SubScenarioRef      string   `yaml:"sub_scenario_ref" json:"sub_scenario_ref,omitempty"`
	Probability         *float64 `yaml:"probability" json:"probability,omitempty"`
}

// ManifestSubScenario mirrors model.SubScenario, nesting its own state machine.
type ManifestSubScenario struct {
	ID            string               `yaml:"id" json:"id"`
	StateMachine  ManifestStateMachine `yaml:"state_machine" json:"state_machine"`
	InputMapping  map[string]string    `yaml:"input_mapping" json:"input_mapping,omitempty"`
	OutputMapping map[string]string    `yaml:"output_mapping" json:"output_mapping,omitempty"`
}

// ParseManifest decodes a YAML scenario manifest.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, model.Wrap(model.ErrValidation, err, "invalid scenario manifest")
	}
	return &m, nil
}

func (m *ManifestStateMachine) toModel() *model.StateMachine {
	sm := &model.StateMachine{
		ResourceType: m.ResourceType,
		States:       m.States,
		InitialState: m.InitialState,
		Tags:         m.Tags,
	}
	for _, t := range m.Transitions {
		sm.Transitions = append(sm.Transitions, model.StateTransition{
			FromState:           t.FromState,
			ToState:             t.ToState,
			ConditionExpression: t.ConditionExpression,
			SubScenarioRef:      t.SubScenarioRef,
			Probability:         t.Probability,
		})
	}
	for _, s := range m.SubScenarios {
		sub := model.SubScenario{
			ID:            s.ID,
			StateMachine:  s.StateMachine.toModel(),
			InputMapping:  s.InputMapping,
			OutputMapping: s.OutputMapping,
		}
		sm.SubScenarios = append(sm.SubScenarios, sub)
	}
	return sm
}

// validateStateMachine checks the invariants from §3: initial_state and
// every transition endpoint must be a declared state; sub_scenario_ref must
// resolve; validation recurses into sub-scenario machines.
func validateStateMachine(sm *model.StateMachine) error {
	if sm.ResourceType == "" {
		return model.NewError(model.ErrValidation, "state machine missing resource_type").WithPath("resource_type")
	}
	if !sm.HasState(sm.InitialState) {
		return model.NewError(model.ErrValidation,
			"state machine %q: initial_state %q is not a declared state", sm.ResourceType, sm.InitialState).
			WithPath("initial_state")
	}
	for i, t := range sm.Transitions {
		if !sm.HasState(t.FromState) {
			return model.NewError(model.ErrValidation,
				"state machine %q: transition[%d].from_state %q is not a declared state", sm.ResourceType, i, t.FromState).
				WithPath(fmt.Sprintf("transitions[%d].from_state", i))
		}
		if !sm.HasState(t.ToState) {
			return model.NewError(model.ErrValidation,
				"state machine %q: transition[%d].to_state %q is not a declared state", sm.ResourceType, i, t.ToState).
				WithPath(fmt.Sprintf("transitions[%d].to_state", i))
		}
		if t.SubScenarioRef != "" && sm.SubScenarioByID(t.SubScenarioRef) == nil {
			return model.NewError(model.ErrValidation,
				"state machine %q: transition[%d].sub_scenario_ref %q does not resolve", sm.ResourceType, i, t.SubScenarioRef).
				WithPath(fmt.Sprintf("transitions[%d].sub_scenario_ref", i))
		}
	}
	for i := range sm.SubScenarios {
		if err := validateStateMachine(sm.SubScenarios[i].StateMachine); err != nil {
			return fmt.Errorf("sub_scenario[%d] (%s): %w", i, sm.SubScenarios[i].ID, err)
		}
	}
	return nil
}
