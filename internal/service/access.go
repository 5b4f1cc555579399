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

// InternalActor resolves a staff member from the authenticated session headers.
func (s *Service) InternalActor(userID, name, email string) (domain.Actor, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	if name == "" {
		name = userID
	}
	return domain.Actor{Kind: domain.ActorKindInternal, ID: userID, Name: name, Email: email}, nil
}

// ResolvePortal maps a portal token to an actor and its session. Unknown,
// expired or mismatched tokens and draft sessions all yield ErrUnauthorized so
// callers cannot tell which part failed.
func (s *Service) ResolvePortal(ctx context.Context, portal domain.Portal, token string) (*domain.PortalContext, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	now := time.Now()
	pc := &domain.PortalContext{Portal: portal}
	var sessionID string

	switch portal {
	case domain.PortalReview, domain.PortalDeveloper:
		guest, err := s.store.GetGuestByToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to get guest: %w", err)
		}
		if guest == nil || guest.Expired(now) {
			return nil, domain.ErrUnauthorized
		}
		if portal == domain.PortalDeveloper && guest.Role != domain.GuestRoleDeveloper {
			return nil, domain.ErrUnauthorized
		}
		sessionID = guest.SessionID
		pc.Actor = domain.Actor{Kind: domain.ActorKindGuest, ID: guest.GuestID, Name: guest.Name, Email: guest.Email}
		pc.ReadOnly = portal == domain.PortalDeveloper || guest.ReadOnly

	case domain.PortalPM:
		collaborator, err := s.store.GetCollaboratorByToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to get collaborator: %w", err)
		}
		if collaborator == nil || collaborator.Expired(now) {
			return nil, domain.ErrUnauthorized
		}
		sessionID = collaborator.SessionID
		pc.Actor = domain.Actor{Kind: domain.ActorKindPMCollaborator, ID: collaborator.CollaboratorID, Name: collaborator.Name, Email: collaborator.Email}
		pc.ReadOnly = false

	default:
		return nil, domain.ErrUnauthorized
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.Status == domain.SessionStatusDraft {
		return nil, domain.ErrUnauthorized
	}
	pc.Session = session
	return pc, nil
}

func newToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreateGuest issues a guest token for a session.
func (s *Service) CreateGuest(ctx context.Context, access Access, sessionID string, req domain.CreateGuestRequest) (*domain.Guest, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "guest name is required")
	}
	role := req.Role
	if role == "" {
		role = domain.GuestRoleReviewer
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", fmt.Sprintf("unknown guest role %q", req.Role))
	}

	guest := &domain.Guest{
		GuestID:   "gst_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		Role:      role,
		Token:     newToken(),
		ReadOnly:  req.ReadOnly,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateGuest(ctx, guest); err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}
	return guest, nil
}

// ListGuests lists a session's guests.
func (s *Service) ListGuests(ctx context.Context, access Access, sessionID string) ([]domain.Guest, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	guests, err := s.store.ListGuests(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	if guests == nil {
		guests = []domain.Guest{}
	}
	return guests, nil
}

// DeleteGuest revokes a guest token.
func (s *Service) DeleteGuest(ctx context.Context, access Access, sessionID, guestID string) error {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return err
	}
	deleted, err := s.store.DeleteGuest(ctx, sessionID, guestID)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// CreateCollaborator issues a PM collaborator token for a session.
func (s *Service) CreateCollaborator(ctx context.Context, access Access, sessionID string, req domain.CreateCollaboratorRequest) (*domain.Collaborator, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "collaborator name is required")
	}

	collaborator := &domain.Collaborator{
		CollaboratorID: "col_" + uuid.New().String()[:8],
		SessionID:      sessionID,
		Name:           name,
		Email:          strings.TrimSpace(req.Email),
		Token:          newToken(),
		ExpiresAt:      req.ExpiresAt,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreateCollaborator(ctx, collaborator); err != nil {
		return nil, fmt.Errorf("failed to create collaborator: %w", err)
	}
	return collaborator, nil
}

// ListCollaborators lists a session's PM collaborators.
func (s *Service) ListCollaborators(ctx context.Context, access Access, sessionID string) ([]domain.Collaborator, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}
	collaborators, err := s.store.ListCollaborators(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	if collaborators == nil {
		collaborators = []domain.Collaborator{}
	}
	return collaborators, nil
}

// DeleteCollaborator revokes a collaborator token.
func (s *Service) DeleteCollaborator(ctx context.Context, access Access, sessionID, collaboratorID string) error {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, access, policy.ActionManageSession, session, policy.ResourceInput{}); err != nil {
		return err
	}
	deleted, err := s.store.DeleteCollaborator(ctx, sessionID, collaboratorID)
	if err != nil {
		return fmt.Errorf("failed to delete collaborator: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
