package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/notify"
	"github.com/xiaot623/uatdesk/internal/policy"
)

// SendSessionUpdate emails the session status to the owner, guests and
// collaborators. Delivery problems come back in the result; only lookup and
// authorization failures are returned as errors.
func (s *Service) SendSessionUpdate(ctx context.Context, access Access, sessionID, customDomain string) (*domain.NotificationResult, error) {
	session, err := s.loadSession(ctx, access, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, access, policy.ActionSendNotification, session, policy.ResourceInput{}); err != nil {
		return nil, err
	}

	if s.notifier == nil {
		res := &domain.NotificationResult{Success: false, SentTo: []string{}, Error: notify.ErrNotConfigured.Error()}
		s.recordEvent(ctx, sessionID, access.Actor, domain.EventTypeNotificationFailed, domain.NotificationPayload{Error: res.Error})
		return res, nil
	}

	items, err := s.itemSummaries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	guests, err := s.store.ListGuests(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	collaborators, err := s.store.ListCollaborators(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}

	res := s.notifier.Send(ctx, notify.Update{
		Session:       session,
		Items:         items,
		Guests:        guests,
		Collaborators: collaborators,
		CustomDomain:  customDomain,
	})

	if res.Success {
		s.recordEvent(ctx, sessionID, access.Actor, domain.EventTypeNotificationSent, domain.NotificationPayload{SentTo: res.SentTo})
	} else {
		s.recordEvent(ctx, sessionID, access.Actor, domain.EventTypeNotificationFailed, domain.NotificationPayload{Error: res.Error})
	}
	return &res, nil
}
