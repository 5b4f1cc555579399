package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/policy"
)

// CreateItem adds a checklist item to a session.
func (s *Service) CreateItem(ctx context.Context, access Access, sessionID string, req domain.CreateItemRequest) (*domain.ChecklistItem, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.NewValidationError("title", "item title is required")
	}

	now := time.Now()
	item := &domain.ChecklistItem{
		ItemID:       "item_" + uuid.New().String()[:8],
		SessionID:    sessionID,
		Title:        title,
		Instructions: req.Instructions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Position != nil {
		item.Position = *req.Position
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

// GetItem returns an item in the caller's scope.
func (s *Service) GetItem(ctx context.Context, access Access, itemID string) (*domain.ChecklistItem, error) {
	item, _, err := s.loadItem(ctx, access, itemID)
	return item, err
}

// ListItems lists a session's items in order.
func (s *Service) ListItems(ctx context.Context, access Access, sessionID string) ([]domain.ChecklistItem, error) {
	if _, err := s.loadSession(ctx, access, sessionID); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	if items == nil {
		items = []domain.ChecklistItem{}
	}
	return items, nil
}

// UpdateItem edits item metadata.
func (s *Service) UpdateItem(ctx context.Context, access Access, itemID string, req domain.UpdateItemRequest) (*domain.ChecklistItem, error) {
	item, session, err := s.loadItem(ctx, access, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.NewValidationError("title", "item title is required")
		}
		item.Title = title
	}
	if req.Instructions != nil {
		item.Instructions = *req.Instructions
	}
	if req.Position != nil {
		item.Position = *req.Position
	}
	item.UpdatedAt = time.Now()
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// DeleteItem deletes an item with its steps, runs and comments.
func (s *Service) DeleteItem(ctx context.Context, access Access, itemID string) error {
	_, session, err := s.loadItem(ctx, access, itemID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return err
	}
	deleted, err := s.store.DeleteItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// ValidateStepInput checks the rules every step must satisfy.
func ValidateStepInput(in domain.StepInput) error {
	if !in.StepType.Valid() {
		return domain.NewValidationError("step_type", fmt.Sprintf("unknown step type %q", in.StepType))
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.NewValidationError("title", "step title is required")
	}
	if in.EstimatedDurationMinutes != nil && *in.EstimatedDurationMinutes < 0 {
		return domain.NewValidationError("estimated_duration_minutes", "must not be negative")
	}
	if in.NotesPrompt != "" && !in.NotesRequired {
		return domain.NewValidationError("notes_prompt", "a notes prompt needs notes_required")
	}
	if in.LinkURL != "" {
		u, err := url.Parse(in.LinkURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return domain.NewValidationError("link_url", "must be an http or https URL")
		}
	}
	return nil
}

func applyStepInput(step *domain.ChecklistItemStep, in domain.StepInput) {
	step.StepType = in.StepType
	step.Title = strings.TrimSpace(in.Title)
	step.Instructions = in.Instructions
	step.ExpectedResult = in.ExpectedResult
	step.LinkURL = in.LinkURL
	step.NotesRequired = in.NotesRequired
	step.NotesPrompt = in.NotesPrompt
	step.EstimatedDurationMinutes = in.EstimatedDurationMinutes
	if in.Position != nil {
		step.Position = *in.Position
	}
}

// CreateStep appends a step to an item.
func (s *Service) CreateStep(ctx context.Context, access Access, itemID string, in domain.StepInput) (*domain.ChecklistItemStep, error) {
	_, session, err := s.loadItem(ctx, access, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	if err := ValidateStepInput(in); err != nil {
		return nil, err
	}

	step := &domain.ChecklistItemStep{
		StepID:    "step_" + uuid.New().String()[:8],
		ItemID:    itemID,
		CreatedAt: time.Now(),
	}
	applyStepInput(step, in)
	if err := s.store.CreateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to create step: %w", err)
	}
	return step, nil
}

// ListSteps lists an item's steps in order.
func (s *Service) ListSteps(ctx context.Context, access Access, itemID string) ([]domain.ChecklistItemStep, error) {
	if _, _, err := s.loadItem(ctx, access, itemID); err != nil {
		return nil, err
	}
	steps, err := s.store.ListSteps(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	if steps == nil {
		steps = []domain.ChecklistItemStep{}
	}
	return steps, nil
}

// UpdateStep replaces a step's editable fields.
func (s *Service) UpdateStep(ctx context.Context, access Access, stepID string, in domain.StepInput) (*domain.ChecklistItemStep, error) {
	step, session, err := s.loadStep(ctx, access, stepID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	if err := ValidateStepInput(in); err != nil {
		return nil, err
	}
	if in.Position == nil {
		in.Position = &step.Position
	}
	applyStepInput(step, in)
	if err := s.store.UpdateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to update step: %w", err)
	}
	return step, nil
}

// DeleteStep deletes a step and its results.
func (s *Service) DeleteStep(ctx context.Context, access Access, stepID string) error {
	_, session, err := s.loadStep(ctx, access, stepID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return err
	}
	deleted, err := s.store.DeleteStep(ctx, stepID)
	if err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) loadStep(ctx context.Context, access Access, stepID string) (*domain.ChecklistItemStep, *domain.Session, error) {
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get step: %w", err)
	}
	if step == nil {
		return nil, nil, domain.ErrNotFound
	}
	_, session, err := s.loadItem(ctx, access, step.ItemID)
	if err != nil {
		return nil, nil, err
	}
	return step, session, nil
}
