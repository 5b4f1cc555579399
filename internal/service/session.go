package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/policy"
)

// CreateSession creates a draft session owned by the calling staff member.
func (s *Service) CreateSession(ctx context.Context, access Access, req domain.CreateSessionRequest) (*domain.Session, error) {
	if err := s.authorize(ctx, access, policy.ActionManageSession, nil, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "session name is required")
	}

	now := time.Now()
	session := &domain.Session{
		SessionID:   "sess_" + uuid.New().String()[:8],
		Name:        name,
		Description: req.Description,
		Status:      domain.SessionStatusDraft,
		OwnerID:     access.Actor.ID,
		OwnerName:   access.Actor.Name,
		OwnerEmail:  access.Actor.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.recordEvent(ctx, session.SessionID, access.Actor, domain.EventTypeSessionCreated, map[string]string{"name": session.Name})
	return session, nil
}

// GetSession returns a session in the caller's scope.
func (s *Service) GetSession(ctx context.Context, access Access, sessionID string) (*domain.Session, error) {
	return s.loadSession(ctx, access, sessionID)
}

// ListSessions lists sessions owned by ownerID, or all sessions when empty.
func (s *Service) ListSessions(ctx context.Context, access Access, ownerID string) ([]domain.Session, error) {
	if err := s.authorize(ctx, access, policy.ActionManageSession, nil, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	return sessions, nil
}

// UpdateSession edits session metadata and applies status transitions.
func (s *Service) UpdateSession(ctx context.Context, access Access, sessionID string, req domain.UpdateSessionRequest) (*domain.Session, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "session name is required")
		}
		session.Name = name
	}
	if req.Description != nil {
		session.Description = *req.Description
	}

	from := session.Status
	if req.Status != nil && *req.Status != session.Status {
		if !req.Status.Valid() {
			return nil, domain.NewValidationError("status", fmt.Sprintf("invalid session status %q", *req.Status))
		}
		if !session.Status.CanTransitionTo(*req.Status) {
			return nil, domain.NewValidationError("status", fmt.Sprintf("cannot move a %s session to %s", session.Status, *req.Status))
		}
		session.Status = *req.Status
	}

	session.UpdatedAt = time.Now()
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if session.Status != from {
		s.recordEvent(ctx, session.SessionID, access.Actor, domain.EventTypeSessionStatusChanged, domain.SessionStatusPayload{From: from, To: session.Status})
	}
	return session, nil
}

// DeleteSession deletes a session and everything it owns.
func (s *Service) DeleteSession(ctx context.Context, access Access, sessionID string) error {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return err
	}
	deleted, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// GetSessionSummary returns every item of the session with its derived status.
func (s *Service) GetSessionSummary(ctx context.Context, access Access, sessionID string) (*domain.SessionSummary, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemSummaries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.SessionSummary{Session: session, Items: items}, nil
}

func (s *Service) itemSummaries(ctx context.Context, sessionID string) ([]domain.ItemSummary, error) {
	items, err := s.store.ListItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	summaries := make([]domain.ItemSummary, 0, len(items))
	for _, item := range items {
		summary, err := s.itemSummary(ctx, item)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}
