package domain

import (
	"encoding/json"
	"time"
)

// Session is a UAT session owned by an internal user.
type Session struct {
	SessionID   string        `json:"session_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      SessionStatus `json:"status"`
	OwnerID     string        `json:"owner_id"`
	OwnerName   string        `json:"owner_name,omitempty"`
	OwnerEmail  string        `json:"owner_email,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ChecklistItem is a single testable assertion within a session.
type ChecklistItem struct {
	ItemID       string    `json:"item_id"`
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	Instructions string    `json:"instructions,omitempty"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChecklistItemStep is an ordered sub-task of an item.
type ChecklistItemStep struct {
	StepID                   string    `json:"step_id"`
	ItemID                   string    `json:"item_id"`
	StepType                 StepType  `json:"step_type"`
	Title                    string    `json:"title"`
	Instructions             string    `json:"instructions,omitempty"`
	ExpectedResult           string    `json:"expected_result,omitempty"`
	LinkURL                  string    `json:"link_url,omitempty"`
	NotesRequired            bool      `json:"notes_required"`
	NotesPrompt              string    `json:"notes_prompt,omitempty"`
	EstimatedDurationMinutes *int      `json:"estimated_duration_minutes,omitempty"`
	Position                 int       `json:"position"`
	CreatedAt                time.Time `json:"created_at"`
}

// TestRun is one attempt at executing all steps of an item.
type TestRun struct {
	RunID     string     `json:"run_id"`
	ItemID    string     `json:"item_id"`
	Status    RunStatus  `json:"status"`
	StartedBy string     `json:"started_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// TestStepResult is the per-run, per-step outcome record.
type TestStepResult struct {
	ResultID  string           `json:"result_id"`
	RunID     string           `json:"run_id"`
	StepID    string           `json:"step_id"`
	Status    StepResultStatus `json:"status"`
	Notes     string           `json:"notes,omitempty"`
	UpdatedBy string           `json:"updated_by,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ItemComment is a threaded discussion entry attached to an item.
type ItemComment struct {
	CommentID  string    `json:"comment_id"`
	ItemID     string    `json:"item_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	AuthorType ActorKind `json:"author_type"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Edited reports whether the comment body was changed after posting.
func (c ItemComment) Edited() bool {
	return !c.UpdatedAt.Equal(c.CreatedAt)
}

// Guest is a token-bearing reviewer or developer scoped to one session.
type Guest struct {
	GuestID   string     `json:"guest_id"`
	SessionID string     `json:"session_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Role      GuestRole  `json:"role"`
	Token     string     `json:"token,omitempty"`
	ReadOnly  bool       `json:"read_only"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the guest token has expired at now.
func (g Guest) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// Collaborator is a PM given token access to one session.
type Collaborator struct {
	CollaboratorID string     `json:"collaborator_id"`
	SessionID      string     `json:"session_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	Token          string     `json:"token,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Expired reports whether the collaborator token has expired at now.
func (c Collaborator) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// SessionEvent is an audit trail entry for a session, also pushed to subscribers.
type SessionEvent struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	ActorType string          `json:"actor_type,omitempty"`
	ActorID   string          `json:"actor_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
