// Package service implements the UAT test run engine on top of the store.
package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/notify"
	"github.com/xiaot623/uatdesk/internal/policy"
	store "github.com/xiaot623/uatdesk/internal/repository"
)

// Publisher fans session events out to live subscribers.
type Publisher interface {
	Publish(sessionID string, event domain.SessionEvent)
}

type Service struct {
	store        store.Store
	policyEngine *policy.Engine
	notifier     *notify.Dispatcher
	publisher    Publisher
}

// New creates the service. notifier and publisher may be nil.
func New(store store.Store, policyEngine *policy.Engine, notifier *notify.Dispatcher, publisher Publisher) *Service {
	return &Service{
		store:        store,
		policyEngine: policyEngine,
		notifier:     notifier,
		publisher:    publisher,
	}
}

// Access describes who performs an operation and under which constraints.
type Access struct {
	Actor domain.Actor
	// ReadOnly is the portal's read-only flag.
	ReadOnly bool
	// SessionID confines portal actors to one session. Internal access leaves it empty.
	SessionID string
}

// InternalAccess builds access for a staff member.
func InternalAccess(actor domain.Actor) Access {
	return Access{Actor: actor}
}

// PortalAccess builds access from a resolved portal token.
func PortalAccess(pc *domain.PortalContext) Access {
	return Access{Actor: pc.Actor, ReadOnly: pc.ReadOnly, SessionID: pc.Session.SessionID}
}

// authorize evaluates the capability policy and returns a *domain.ForbiddenError
// on deny.
func (s *Service) authorize(ctx context.Context, access Access, action string, session *domain.Session, resource policy.ResourceInput) error {
	switch access.Actor.Kind {
	case domain.ActorKindInternal, domain.ActorKindPMCollaborator, domain.ActorKindGuest:
	case domain.ActorKindUnknown:
		return &domain.ForbiddenError{Reason: "unknown actor"}
	default:
		return &domain.ForbiddenError{Reason: "unknown actor"}
	}

	input := policy.Input{
		Action:   action,
		Actor:    policy.ActorInput{Kind: access.Actor.Kind.String(), ID: access.Actor.ID},
		ReadOnly: access.ReadOnly,
		Resource: resource,
	}
	if session != nil {
		input.SessionStatus = string(session.Status)
	}

	decision, err := s.policyEngine.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}
	if !decision.Allow {
		return &domain.ForbiddenError{Reason: decision.Reason()}
	}
	return nil
}

// loadSession returns the session if it exists and is in the caller's scope.
func (s *Service) loadSession(ctx context.Context, access Access, sessionID string) (*domain.Session, error) {
	if access.SessionID != "" && access.SessionID != sessionID {
		return nil, domain.ErrNotFound
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

// loadItem returns the item and its session, scoped like loadSession.
func (s *Service) loadItem(ctx context.Context, access Access, itemID string) (*domain.ChecklistItem, *domain.Session, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, nil, domain.ErrNotFound
	}
	session, err := s.loadSession(ctx, access, item.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return item, session, nil
}
