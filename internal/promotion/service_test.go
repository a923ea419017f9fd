package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func rules() model.ApprovalRules {
	return model.ApprovalRules{
		TagToEnvironment:        map[string]model.MockEnvironmentName{"payments": "prod"},
		RequireDistinctApprover: true,
	}
}

func TestNonScenarioEntityAlwaysRequiresApproval(t *testing.T) {
	svc := New(rules(), nil, nil)
	req := svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig, ToEnvironment: "staging"})
	if !req.RequiresApproval {
		t.Fatal("expected non-scenario entity to require approval")
	}
	if req.ApprovalRequiredReason != "approval required" {
		t.Errorf("unexpected reason: %s", req.ApprovalRequiredReason)
	}
}

func TestCriticalTagRequiresApproval(t *testing.T) {
	svc := New(rules(), nil, nil)
	req := svc.Create(&model.PromotionRequest{
		EntityType: model.EntityScenario, ToEnvironment: "staging",
		EntityTags: []string{"critical"},
	})
	if !req.RequiresApproval {
		t.Fatal("expected critical tag to require approval")
	}
}

func TestTaggedRouteToEnvironmentRequiresApproval(t *testing.T) {
	svc := New(rules(), nil, nil)
	req := svc.Create(&model.PromotionRequest{
		EntityType: model.EntityScenario, ToEnvironment: "prod",
		EntityTags: []string{"payments"},
	})
	if !req.RequiresApproval {
		t.Fatal("expected payments tag routed to prod to require approval")
	}
}

func TestScenarioWithoutTriggeringTagsDoesNotRequireApproval(t *testing.T) {
	svc := New(rules(), nil, nil)
	req := svc.Create(&model.PromotionRequest{
		EntityType: model.EntityScenario, ToEnvironment: "dev",
		EntityTags: []string{"ui"},
	})
	if req.RequiresApproval {
		t.Fatal("expected no approval required for untagged-for-approval scenario")
	}
}

func TestStatusTransitionValidation(t *testing.T) {
	svc := New(rules(), nil, nil)
	req := svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig, RequestedBy: "alice"})

	if _, err := svc.UpdateStatus(context.Background(), req.ID, model.PromotionCompleted, "bob"); err == nil {
		t.Fatal("expected Pending -> Completed to be rejected")
	}

	updated, err := svc.UpdateStatus(context.Background(), req.ID, model.PromotionApproved, "bob")
	if err != nil {
		t.Fatalf("expected Pending -> Approved to succeed: %v", err)
	}
	if updated.ApprovedBy != "bob" || updated.ApprovedAt == nil {
		t.Error("expected approver recorded")
	}

	if _, err := svc.UpdateStatus(context.Background(), req.ID, model.PromotionApproved, "bob"); err == nil {
		t.Fatal("expected Approved -> Approved to be rejected (not a valid transition)")
	}
}

func TestDistinctApproverEnforced(t *testing.T) {
	svc := New(rules(), nil, nil)
	req := svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig, RequestedBy: "alice"})
	if _, err := svc.UpdateStatus(context.Background(), req.ID, model.PromotionApproved, "alice"); err == nil {
		t.Fatal("expected self-approval to be rejected")
	}
}

type fakeGitOps struct {
	calls int
	fail  int
	url   string
}

func (f *fakeGitOps) Name() string { return "fake" }
func (f *fakeGitOps) CreatePullRequest(ctx context.Context, req contracts.GitOpsPRRequest) (string, error) {
	f.calls++
	if f.calls <= f.fail {
		return "", errors.New("transient failure")
	}
	return f.url, nil
}

func TestGitOpsPRCreatedOnCompletion(t *testing.T) {
	gitops := &fakeGitOps{url: "https://example.test/pr/1"}
	svc := New(rules(), gitops, func(ctx context.Context, req *model.PromotionRequest) ([]byte, error) {
		return []byte("serialized"), nil
	})
	req := svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig, RequestedBy: "alice"})
	if _, err := svc.UpdateStatus(context.Background(), req.ID, model.PromotionApproved, "bob"); err != nil {
		t.Fatal(err)
	}
	completed, err := svc.UpdateStatus(context.Background(), req.ID, model.PromotionCompleted, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if completed.GitOpsPRURL != gitops.url {
		t.Errorf("expected GitOpsPRURL set, got %q", completed.GitOpsPRURL)
	}
}

func TestGitOpsFailureMarksPromotionFailed(t *testing.T) {
	gitops := &fakeGitOps{fail: 100}
	svc := New(rules(), gitops, nil)
	req := svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig, RequestedBy: "alice"})
	if _, err := svc.UpdateStatus(context.Background(), req.ID, model.PromotionApproved, "bob"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := svc.UpdateStatus(ctx, req.ID, model.PromotionCompleted, "bob"); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(req.ID)
	if got.Status != model.PromotionFailed {
		t.Errorf("expected promotion marked Failed after GitOps exhaustion, got %s", got.Status)
	}
}

func TestHistoryIsTimeOrdered(t *testing.T) {
	svc := New(rules(), nil, nil)
	svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig, WorkspaceID: "ws1", EntityID: "e1"})
	svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig, WorkspaceID: "ws1", EntityID: "e1"})
	hist := svc.History("ws1", model.EntityConfig, "e1")
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[0].CreatedAt.After(hist[1].CreatedAt) {
		t.Error("expected ascending time order")
	}
}

func TestListPendingPromotionsPaging(t *testing.T) {
	svc := New(rules(), nil, nil)
	for i := 0; i < 5; i++ {
		svc.Create(&model.PromotionRequest{EntityType: model.EntityConfig})
	}
	page1 := svc.ListPendingPromotions(0, 2)
	if len(page1) != 2 {
		t.Fatalf("expected page size 2, got %d", len(page1))
	}
	all := svc.ListPendingPromotions(0, 0)
	if len(all) != 5 {
		t.Fatalf("expected all 5 with limit<=0, got %d", len(all))
	}
}
