package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/uatdesk/internal/domain"
)

// recordEvent stores a session event and publishes it to live subscribers.
// Failures are logged; events never fail the mutation that produced them.
func (s *Service) recordEvent(ctx context.Context, sessionID string, actor domain.Actor, eventType domain.EventType, payload interface{}) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WARN: failed to marshal %s payload: %v", eventType, err)
		return
	}

	event := &domain.SessionEvent{
		EventID:   "evt_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Ts:        time.Now().UnixMilli(),
		Type:      eventType,
		ActorType: actor.Kind.String(),
		ActorID:   actor.ID,
		Payload:   payloadBytes,
	}

	if err := s.store.CreateEvent(ctx, event); err != nil {
		log.Printf("WARN: failed to record %s event for session %s: %v", eventType, sessionID, err)
		return
	}

	if s.publisher != nil {
		s.publisher.Publish(sessionID, *event)
	}
}

// ListEvents returns session events after afterTs (ms), oldest first.
func (s *Service) ListEvents(ctx context.Context, access Access, sessionID string, afterTs int64, limit int) ([]domain.SessionEvent, error) {
	if _, err := s.loadSession(ctx, access, sessionID); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, sessionID, afterTs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if events == nil {
		events = []domain.SessionEvent{}
	}
	return events, nil
}
