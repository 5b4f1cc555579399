package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/service"
)

// Result lists what Apply created.
type Result struct {
	Session       *domain.Session       `json:"session"`
	Items         int                   `json:"items"`
	Steps         int                   `json:"steps"`
	Guests        []domain.Guest        `json:"guests"`
	Collaborators []domain.Collaborator `json:"collaborators"`
}

// InvalidDocumentError wraps the problems found before anything was written.
type InvalidDocumentError struct {
	Problems []*ValidationError
}

func (e *InvalidDocumentError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return "invalid checklist: " + strings.Join(msgs, "; ")
}

// Apply validates doc and creates its session, items, steps and links through
// the service, so the same authorization and events apply as for API writes.
// The session is activated last when the document asks for it.
func Apply(ctx context.Context, svc *service.Service, access service.Access, doc *Document) (*Result, error) {
	if problems := Validate(doc); len(problems) > 0 {
		return nil, &InvalidDocumentError{Problems: problems}
	}

	session, err := svc.CreateSession(ctx, access, domain.CreateSessionRequest{
		Name:        doc.Session.Name,
		Description: doc.Session.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	res := &Result{Session: session, Guests: []domain.Guest{}, Collaborators: []domain.Collaborator{}}

	for i, spec := range doc.Items {
		position := i
		item, err := svc.CreateItem(ctx, access, session.SessionID, domain.CreateItemRequest{
			Title:        spec.Title,
			Instructions: spec.Instructions,
			Position:     &position,
		})
		if err != nil {
			return res, fmt.Errorf("failed to create item %q: %w", spec.Title, err)
		}
		res.Items++

		for j, stepSpec := range spec.Steps {
			in := stepSpec.StepInput()
			stepPosition := j
			in.Position = &stepPosition
			if _, err := svc.CreateStep(ctx, access, item.ItemID, in); err != nil {
				return res, fmt.Errorf("failed to create step %q: %w", stepSpec.Title, err)
			}
			res.Steps++
		}
	}

	for _, g := range doc.Guests {
		guest, err := svc.CreateGuest(ctx, access, session.SessionID, domain.CreateGuestRequest{
			Name:     g.Name,
			Email:    g.Email,
			Role:     domain.GuestRole(g.Role),
			ReadOnly: g.ReadOnly,
		})
		if err != nil {
			return res, fmt.Errorf("failed to create guest %q: %w", g.Name, err)
		}
		res.Guests = append(res.Guests, *guest)
	}

	for _, c := range doc.Collaborators {
		collaborator, err := svc.CreateCollaborator(ctx, access, session.SessionID, domain.CreateCollaboratorRequest{
			Name:  c.Name,
			Email: c.Email,
		})
		if err != nil {
			return res, fmt.Errorf("failed to create collaborator %q: %w", c.Name, err)
		}
		res.Collaborators = append(res.Collaborators, *collaborator)
	}

	if domain.SessionStatus(doc.Session.Status) == domain.SessionStatusActive {
		active := domain.SessionStatusActive
		session, err = svc.UpdateSession(ctx, access, session.SessionID, domain.UpdateSessionRequest{Status: &active})
		if err != nil {
			return res, fmt.Errorf("failed to activate session: %w", err)
		}
		res.Session = session
	}
	return res, nil
}
