package scenario

import (
	"testing"

	"github.com/mockforge/mockforge-go/pkg/model"
)

func orderManifest() *Manifest {
	return &Manifest{
		StateMachines: []ManifestStateMachine{
			{
				ResourceType: "order",
				States:       []string{"created", "paid", "shipped"},
				InitialState: "created",
				Transitions: []ManifestTransition{
					{FromState: "created", ToState: "paid", ConditionExpression: "amount > 0"},
					{FromState: "paid", ToState: "shipped"},
				},
			},
		},
	}
}

func TestLoadFromManifestRejectsUnknownInitialState(t *testing.T) {
	e := New(nil)
	m := &Manifest{StateMachines: []ManifestStateMachine{
		{ResourceType: "bad", States: []string{"a"}, InitialState: "z"},
	}}
	if err := e.LoadFromManifest(m); err == nil {
		t.Fatal("expected validation error for unknown initial_state")
	}
}

func TestLoadFromManifestRejectsUnknownTransitionEndpoint(t *testing.T) {
	e := New(nil)
	m := &Manifest{StateMachines: []ManifestStateMachine{
		{
			ResourceType: "bad", States: []string{"a", "b"}, InitialState: "a",
			Transitions: []ManifestTransition{{FromState: "a", ToState: "ghost"}},
		},
	}}
	if err := e.LoadFromManifest(m); err == nil {
		t.Fatal("expected validation error for unknown transition endpoint")
	}
}

func TestCreateInstanceStartsAtInitialState(t *testing.T) {
	e := New(nil)
	if err := e.LoadFromManifest(orderManifest()); err != nil {
		t.Fatal(err)
	}
	inst, err := e.CreateInstance("ord-1", "order")
	if err != nil {
		t.Fatal(err)
	}
	if inst.CurrentState != "created" {
		t.Errorf("expected initial state created, got %s", inst.CurrentState)
	}
	if len(inst.StateHistory) != 0 {
		t.Errorf("expected empty history, got %d entries", len(inst.StateHistory))
	}
}

func TestExecuteTransitionConditionGated(t *testing.T) {
	e := New(nil)
	if err := e.LoadFromManifest(orderManifest()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateInstance("ord-1", "order"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.ExecuteTransition("ord-1", "paid", map[string]interface{}{"amount": 0}); err == nil {
		t.Fatal("expected condition_not_met error for amount=0")
	}

	inst, err := e.ExecuteTransition("ord-1", "paid", map[string]interface{}{"amount": 42})
	if err != nil {
		t.Fatalf("expected transition to succeed with amount>0: %v", err)
	}
	if inst.CurrentState != "paid" {
		t.Errorf("expected state paid, got %s", inst.CurrentState)
	}
	if len(inst.StateHistory) != 1 || inst.StateHistory[0].From != "created" || inst.StateHistory[0].To != "paid" {
		t.Errorf("unexpected history: %+v", inst.StateHistory)
	}
}

func TestExecuteTransitionNoValidTransition(t *testing.T) {
	e := New(nil)
	if err := e.LoadFromManifest(orderManifest()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateInstance("ord-1", "order"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ExecuteTransition("ord-1", "shipped", nil); err == nil {
		t.Fatal("expected no valid transition error (created -> shipped is not declared)")
	}
}

func TestGetNextStatesDistinct(t *testing.T) {
	e := New(nil)
	if err := e.LoadFromManifest(orderManifest()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateInstance("ord-1", "order"); err != nil {
		t.Fatal(err)
	}
	next, err := e.GetNextStates("ord-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(next) != 1 || next[0] != "paid" {
		t.Errorf("expected [paid], got %v", next)
	}
}

func TestSubScenarioOutputMapping(t *testing.T) {
	e := New(nil)
	m := &Manifest{
		StateMachines: []ManifestStateMachine{
			{
				ResourceType: "parent",
				States:       []string{"start", "done"},
				InitialState: "start",
				Transitions: []ManifestTransition{
					{FromState: "start", ToState: "done", SubScenarioRef: "provision"},
				},
				SubScenarios: []ManifestSubScenario{
					{
						ID: "provision",
						StateMachine: ManifestStateMachine{
							ResourceType: "provision",
							States:       []string{"pending", "ready"},
							InitialState: "pending",
							Transitions: []ManifestTransition{
								{FromState: "pending", ToState: "ready"},
							},
						},
						InputMapping:  map[string]string{"region": "target_region"},
						OutputMapping: map[string]string{"target_region": "provisioned_region"},
					},
				},
			},
		},
	}
	if err := e.LoadFromManifest(m); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateInstance("p1", "parent"); err != nil {
		t.Fatal(err)
	}

	e.mu.Lock()
	e.instances["p1"].StateData["region"] = "us-east"
	e.mu.Unlock()

	inst, err := e.ExecuteTransition("p1", "done", nil)
	if err != nil {
		t.Fatalf("expected transition to succeed: %v", err)
	}
	if inst.StateData["provisioned_region"] != "us-east" {
		t.Errorf("expected output_mapping to copy provisioned_region, got %+v", inst.StateData)
	}
}

func TestSubScenarioFailureDoesNotBlockParent(t *testing.T) {
	e := New(nil)
	m := &Manifest{
		StateMachines: []ManifestStateMachine{
			{
				ResourceType: "parent",
				States:       []string{"start", "done"},
				InitialState: "start",
				Transitions: []ManifestTransition{
					{FromState: "start", ToState: "done", SubScenarioRef: "sub"},
				},
				SubScenarios: []ManifestSubScenario{
					{
						ID: "sub",
						StateMachine: ManifestStateMachine{
							ResourceType: "sub",
							States:       []string{"x"},
							InitialState: "x",
						},
					},
				},
			},
		},
	}
	if err := e.LoadFromManifest(m); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateInstance("p1", "parent"); err != nil {
		t.Fatal(err)
	}
	inst, err := e.ExecuteTransition("p1", "done", nil)
	if err != nil {
		t.Fatalf("parent transition should succeed even with no-op sub-scenario: %v", err)
	}
	if inst.CurrentState != "done" {
		t.Errorf("expected state done, got %s", inst.CurrentState)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	e := New(nil)
	if err := e.LoadFromManifest(orderManifest()); err != nil {
		t.Fatal(err)
	}
	exported := e.ExportAll()

	e2 := New(nil)
	if err := e2.ImportFromManifest(exported); err != nil {
		t.Fatal(err)
	}
	if _, err := e2.CreateInstance("ord-2", "order"); err != nil {
		t.Fatalf("expected round-tripped machine to be usable: %v", err)
	}
}

func TestDeleteInstance(t *testing.T) {
	e := New(nil)
	if err := e.LoadFromManifest(orderManifest()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateInstance("ord-1", "order"); err != nil {
		t.Fatal(err)
	}
	if !e.DeleteInstance("ord-1") {
		t.Fatal("expected delete to succeed")
	}
	if _, err := e.GetCurrentState("ord-1"); err == nil {
		t.Fatal("expected not-found after delete")
	}
}

func TestConditionErrorOnBadExpression(t *testing.T) {
	e := New(nil)
	m := &Manifest{StateMachines: []ManifestStateMachine{
		{
			ResourceType: "x", States: []string{"a", "b"}, InitialState: "a",
			Transitions: []ManifestTransition{{FromState: "a", ToState: "b", ConditionExpression: "a +++ b"}},
		},
	}}
	if err := e.LoadFromManifest(m); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateInstance("i1", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ExecuteTransition("i1", "b", nil); err == nil {
		t.Fatal("expected condition error for malformed expression")
	} else if model.KindOf(err) != model.ErrValidation {
		t.Errorf("expected ValidationError kind, got %v", model.KindOf(err))
	}
}
