// Package promotion implements the Promotion & Approval Workflow (§4.6):
// approval-rule evaluation, the Pending/Approved/Rejected/Completed/Failed
// status machine, optional GitOps PR creation, and history queries.
//
// Grounded on the teacher's internal/catalog (registry + lookup idiom,
// reused here for approval-rule tag lookups) and internal/retention/janitor.go
// (background goroutine pattern, reused for promotion-history pruning).
package promotion

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// Service tracks PromotionRequests, evaluates approval rules, and drives
// the status state machine (§4.6).
type Service struct {
	mu       sync.RWMutex
	requests map[string]*model.PromotionRequest
	rules    model.ApprovalRules

	gitops    contracts.GitOpsProvider
	serialize func(ctx context.Context, req *model.PromotionRequest) ([]byte, error)
}

// New creates a Service with the given approval rules. gitops may be nil
// (the optional hook in §4.6 is then a no-op).
func New(rules model.ApprovalRules, gitops contracts.GitOpsProvider, serialize func(ctx context.Context, req *model.PromotionRequest) ([]byte, error)) *Service {
	return &Service{
		requests:  make(map[string]*model.PromotionRequest),
		rules:     rules,
		gitops:    gitops,
		serialize: serialize,
	}
}

// Create validates approval requirements (if not already decided by the
// caller) and stores a new PromotionRequest in Pending status (§4.6).
func (s *Service) Create(req *model.PromotionRequest) *model.PromotionRequest {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Status = model.PromotionPending

	if !req.RequiresApproval {
		s.applyApprovalRules(req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return req
}

// applyApprovalRules implements §4.6's default-approval derivation.
func (s *Service) applyApprovalRules(req *model.PromotionRequest) {
	if req.EntityType != model.EntityScenario {
		req.RequiresApproval = true
		req.ApprovalRequiredReason = "approval required"
		return
	}

	for _, tag := range req.EntityTags {
		if tag == "critical" {
			req.RequiresApproval = true
			req.ApprovalRequiredReason = "tag critical requires approval"
			return
		}
		if env, ok := s.rules.TagToEnvironment[tag]; ok && env == req.ToEnvironment {
			req.RequiresApproval = true
			req.ApprovalRequiredReason = "tag " + tag + " requires approval for " + string(env)
			return
		}
		if env, ok := s.rules.TagToEnvironment[tag]; ok && env == model.MockEnvironmentName("prod") {
			req.RequiresApproval = true
			req.ApprovalRequiredReason = "tag " + tag + " routes to prod and requires approval"
			return
		}
	}
}

// Get returns a promotion request by id.
func (s *Service) Get(id string) (*model.PromotionRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	return r, ok
}

// UpdateStatus validates and applies a status transition, recording the
// approver and timestamp (§4.6 "State machine").
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus model.PromotionStatus, approverID string) (*model.PromotionRequest, error) {
	s.mu.Lock()
	req, ok := s.requests[id]
	if !ok {
		s.mu.Unlock()
		return nil, model.NewError(model.ErrNotFound, "no promotion request %q", id)
	}
	if err := validateTransition(req.Status, newStatus); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if (newStatus == model.PromotionApproved || newStatus == model.PromotionRejected) &&
		s.rules.RequireDistinctApprover && approverID == req.RequestedBy {
		s.mu.Unlock()
		return nil, model.NewError(model.ErrValidation, "approver must be distinct from requester").
			WithCode("approver_not_distinct")
	}

	now := time.Now().UTC()
	req.Status = newStatus
	req.UpdatedAt = now
	switch newStatus {
	case model.PromotionApproved, model.PromotionRejected:
		req.ApprovedBy = approverID
		req.ApprovedAt = &now
	case model.PromotionCompleted, model.PromotionFailed:
		req.CompletedAt = &now
	}
	s.mu.Unlock()

	if newStatus == model.PromotionCompleted && s.gitops != nil {
		s.createGitOpsPR(ctx, req)
	}
	return req, nil
}

func validateTransition(from, to model.PromotionStatus) error {
	allowed := map[model.PromotionStatus][]model.PromotionStatus{
		model.PromotionPending:  {model.PromotionApproved, model.PromotionRejected},
		model.PromotionApproved: {model.PromotionCompleted, model.PromotionFailed},
	}
	for _, candidate := range allowed[from] {
		if candidate == to {
			return nil
		}
	}
	return model.NewError(model.ErrValidation, "invalid promotion transition %s -> %s", from, to).
		WithCode("invalid_status_transition")
}

// createGitOpsPR serializes the promoted entity and opens a PR, retrying
// transient failures with exponential backoff (§4.6 "GitOps hook").
func (s *Service) createGitOpsPR(ctx context.Context, req *model.PromotionRequest) {
	var serialized []byte
	if s.serialize != nil {
		var err error
		serialized, err = s.serialize(ctx, req)
		if err != nil {
			s.markFailed(req.ID, "serialize for GitOps PR: "+err.Error())
			return
		}
	}

	prReq := contracts.GitOpsPRRequest{
		WorkspaceID:   req.WorkspaceID,
		EntityType:    string(req.EntityType),
		EntityID:      req.EntityID,
		EntityVersion: req.EntityVersion,
		ToEnvironment: string(req.ToEnvironment),
		Serialized:    serialized,
	}

	var url string
	op := func() error {
		var err error
		url, err = s.gitops.CreatePullRequest(ctx, prReq)
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		log.Warn().Err(err).Str("promotion_id", req.ID).Msg("GitOps PR creation failed")
		s.markFailed(req.ID, "GitOps PR creation failed: "+err.Error())
		return
	}

	s.mu.Lock()
	req.GitOpsPRURL = url
	s.mu.Unlock()
}

func (s *Service) markFailed(id, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.requests[id]; ok {
		now := time.Now().UTC()
		r.Status = model.PromotionFailed
		r.FailureReason = reason
		r.CompletedAt = &now
		r.UpdatedAt = now
	}
}

// History returns the time-ordered promotion history for an entity (§4.6
// "History").
func (s *Service) History(workspaceID string, entityType model.PromotionEntityType, entityID string) []*model.PromotionRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.PromotionRequest
	for _, r := range s.requests {
		if r.WorkspaceID == workspaceID && r.EntityType == entityType && r.EntityID == entityID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ListWorkspacePromotions returns promotions for a workspace, optionally
// filtered by status, newest first, paged by offset/limit.
func (s *Service) ListWorkspacePromotions(workspaceID string, status model.PromotionStatus, offset, limit int) []*model.PromotionRequest {
	s.mu.RLock()
	var filtered []*model.PromotionRequest
	for _, r := range s.requests {
		if r.WorkspaceID != workspaceID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		filtered = append(filtered, r)
	}
	s.mu.RUnlock()

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	return page(filtered, offset, limit)
}

// ListPendingPromotions returns every Pending promotion across all workspaces.
func (s *Service) ListPendingPromotions(offset, limit int) []*model.PromotionRequest {
	s.mu.RLock()
	var pending []*model.PromotionRequest
	for _, r := range s.requests {
		if r.Status == model.PromotionPending {
			pending = append(pending, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return page(pending, offset, limit)
}

func page(items []*model.PromotionRequest, offset, limit int) []*model.PromotionRequest {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
