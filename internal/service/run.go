package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/policy"
	store "github.com/xiaot623/uatdesk/internal/repository"
)

// StartRun opens a new run for an item, closing any active one, and
// materializes a pending result for every step.
func (s *Service) StartRun(ctx context.Context, access Access, itemID string) (*domain.ActiveRunResponse, error) {
	item, session, err := s.loadItem(ctx, access, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionStartRun, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}

	steps, err := s.store.ListSteps(ctx, item.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}

	var (
		run        *domain.TestRun
		results    []domain.TestStepResult
		superseded int
	)
	// A concurrent start can win the partial unique index between our close and
	// insert; the retry closes that run too.
	for attempt := 0; attempt < 2; attempt++ {
		run, results = newRun(item.ItemID, access.Actor.ID, steps)
		superseded, err = s.store.StartRun(ctx, run, results)
		if !errors.Is(err, store.ErrActiveRunConflict) {
			break
		}
		log.Printf("WARN: concurrent run start for item %s, retrying", item.ItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	s.recordEvent(ctx, session.SessionID, access.Actor, domain.EventTypeRunStarted, domain.RunStartedPayload{
		ItemID:         item.ItemID,
		RunID:          run.RunID,
		SupersededRuns: superseded,
	})
	return &domain.ActiveRunResponse{Run: run, Results: results}, nil
}

func newRun(itemID, startedBy string, steps []domain.ChecklistItemStep) (*domain.TestRun, []domain.TestStepResult) {
	now := time.Now()
	run := &domain.TestRun{
		RunID:     "run_" + uuid.New().String()[:8],
		ItemID:    itemID,
		Status:    domain.RunStatusActive,
		StartedBy: startedBy,
		CreatedAt: now,
	}
	results := make([]domain.TestStepResult, 0, len(steps))
	for _, step := range steps {
		results = append(results, domain.TestStepResult{
			ResultID:  "res_" + uuid.New().String()[:8],
			RunID:     run.RunID,
			StepID:    step.StepID,
			Status:    domain.StepResultStatusPending,
			UpdatedAt: now,
		})
	}
	return run, results
}

// GetActiveRun returns the most recently created run of an item and its
// results. Run is nil and Results empty when the item was never started.
func (s *Service) GetActiveRun(ctx context.Context, access Access, itemID string) (*domain.ActiveRunResponse, error) {
	item, _, err := s.loadItem(ctx, access, itemID)
	if err != nil {
		return nil, err
	}
	run, err := s.store.GetLatestRun(ctx, item.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active run: %w", err)
	}
	if run == nil {
		return &domain.ActiveRunResponse{Run: nil, Results: []domain.TestStepResult{}}, nil
	}
	results, err := s.store.ListStepResults(ctx, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step results: %w", err)
	}
	if results == nil {
		results = []domain.TestStepResult{}
	}
	return &domain.ActiveRunResponse{Run: run, Results: results}, nil
}

// ListRuns returns an item's run history, newest first.
func (s *Service) ListRuns(ctx context.Context, access Access, itemID string) ([]domain.TestRun, error) {
	if _, _, err := s.loadItem(ctx, access, itemID); err != nil {
		return nil, err
	}
	runs, err := s.store.ListRuns(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []domain.TestRun{}
	}
	return runs, nil
}

// CloseRun closes an active run without starting a new one.
func (s *Service) CloseRun(ctx context.Context, access Access, runID string) (*domain.TestRun, error) {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	_, session, err := s.loadItem(ctx, access, run.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}

	closed, err := s.store.CloseRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to close run: %w", err)
	}
	if closed {
		s.recordEvent(ctx, session.SessionID, access.Actor, domain.EventTypeRunClosed, domain.RunClosedPayload{ItemID: run.ItemID, RunID: runID})
	}
	return s.loadRun(ctx, runID)
}

func (s *Service) loadRun(ctx context.Context, runID string) (*domain.TestRun, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, domain.ErrNotFound
	}
	return run, nil
}

// UpdateStepResult records the outcome of one step in a run. Only the
// (run, step) row is written. Validation and authorization happen before any
// mutation.
func (s *Service) UpdateStepResult(ctx context.Context, access Access, runID, stepID string, req domain.StepResultUpdateRequest) (*domain.TestStepResult, error) {
	if !req.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("invalid status %q", req.Status))
	}

	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	_, session, err := s.loadItem(ctx, access, run.ItemID)
	if err != nil {
		return nil, err
	}
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	if step == nil || step.ItemID != run.ItemID {
		return nil, domain.ErrNotFound
	}

	current, err := s.store.GetStepResult(ctx, runID, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to get step result: %w", err)
	}
	currentStatus := domain.StepResultStatusPending
	if current != nil {
		currentStatus = current.Status
	}

	action := policy.ActionSubmitStepResult
	if req.Status == domain.StepResultStatusPending {
		action = policy.ActionReopenStep
	}
	if err := s.authorize(ctx, access, action, session, policy.ResourceInput{
		CurrentStatus: string(currentStatus),
		TargetStatus:  string(req.Status),
	}); err != nil {
		return nil, err
	}

	if run.Status != domain.RunStatusActive {
		return nil, domain.NewValidationError("run_id", "run is closed; start a new run")
	}
	if !step.StepType.AllowsStatus(req.Status) {
		return nil, domain.NewValidationError("status", fmt.Sprintf("%s steps cannot be marked %s", step.StepType, req.Status))
	}
	notes := strings.TrimSpace(req.Notes)
	if req.Status == domain.StepResultStatusFailed && notes == "" {
		return nil, domain.NewValidationError("notes", "notes are required when a step fails")
	}
	if req.Status.Completing() && step.NotesRequired && notes == "" {
		msg := "notes required before completing this step"
		if step.NotesPrompt != "" {
			msg += ": " + step.NotesPrompt
		}
		return nil, domain.NewValidationError("notes", msg)
	}

	updated, err := s.store.UpsertStepResult(ctx, &domain.TestStepResult{
		ResultID:  "res_" + uuid.New().String()[:8],
		RunID:     runID,
		StepID:    stepID,
		Status:    req.Status,
		Notes:     req.Notes,
		UpdatedBy: access.Actor.ID,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update step result: %w", err)
	}

	payload := domain.StepResultPayload{ItemID: run.ItemID, RunID: runID, StepID: stepID, Status: updated.Status}
	if summary, err := s.GetItemSummary(ctx, access, run.ItemID); err == nil {
		payload.ItemStatus = summary.Status
	} else {
		log.Printf("WARN: failed to derive item status for %s: %v", run.ItemID, err)
	}
	s.recordEvent(ctx, session.SessionID, access.Actor, domain.EventTypeStepResultUpdated, payload)
	return updated, nil
}

// GetItemSummary returns an item with its steps, active run, results and
// derived status.
func (s *Service) GetItemSummary(ctx context.Context, access Access, itemID string) (*domain.ItemSummary, error) {
	item, _, err := s.loadItem(ctx, access, itemID)
	if err != nil {
		return nil, err
	}
	return s.itemSummary(ctx, *item)
}

func (s *Service) itemSummary(ctx context.Context, item domain.ChecklistItem) (*domain.ItemSummary, error) {
	steps, err := s.store.ListSteps(ctx, item.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	run, err := s.store.GetLatestRun(ctx, item.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active run: %w", err)
	}
	var results []domain.TestStepResult
	if run != nil {
		results, err = s.store.ListStepResults(ctx, run.RunID)
		if err != nil {
			return nil, fmt.Errorf("failed to list step results: %w", err)
		}
	}
	summary := domain.NewItemSummary(item, steps, run, results)
	return &summary, nil
}
