package domain

import "time"

// CreateSessionRequest represents the request to create a session.
type CreateSessionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateSessionRequest edits session metadata or status.
type UpdateSessionRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *SessionStatus `json:"status,omitempty"`
}

// CreateItemRequest represents the request to add a checklist item.
type CreateItemRequest struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions,omitempty"`
	Position     *int   `json:"position,omitempty"`
}

// UpdateItemRequest edits item metadata.
type UpdateItemRequest struct {
	Title        *string `json:"title,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
	Position     *int    `json:"position,omitempty"`
}

// StepInput is the editable part of a step.
type StepInput struct {
	StepType                 StepType `json:"step_type"`
	Title                    string   `json:"title"`
	Instructions             string   `json:"instructions,omitempty"`
	ExpectedResult           string   `json:"expected_result,omitempty"`
	LinkURL                  string   `json:"link_url,omitempty"`
	NotesRequired            bool     `json:"notes_required,omitempty"`
	NotesPrompt              string   `json:"notes_prompt,omitempty"`
	EstimatedDurationMinutes *int     `json:"estimated_duration_minutes,omitempty"`
	Position                 *int     `json:"position,omitempty"`
}

// CreateGuestRequest issues a guest token.
type CreateGuestRequest struct {
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Role      GuestRole  `json:"role,omitempty"`
	ReadOnly  bool       `json:"read_only,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateCollaboratorRequest issues a PM collaborator token.
type CreateCollaboratorRequest struct {
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// StepResultUpdateRequest is the PATCH body for a step result.
type StepResultUpdateRequest struct {
	Status StepResultStatus `json:"status"`
	Notes  string           `json:"notes,omitempty"`
}

// CommentRequest is the body for creating or editing a comment.
type CommentRequest struct {
	Body     string `json:"body"`
	ParentID string `json:"parent_id,omitempty"`
}

// NotifyRequest triggers a session update email.
type NotifyRequest struct {
	CustomDomain string `json:"custom_domain,omitempty"`
}

// ActiveRunResponse is returned by the active-run accessor. Run is null when the
// item has not been started.
type ActiveRunResponse struct {
	Run     *TestRun         `json:"run"`
	Results []TestStepResult `json:"results"`
}

// NotificationResult reports the outcome of a best-effort notification send.
type NotificationResult struct {
	Success bool     `json:"success"`
	SentTo  []string `json:"sent_to"`
	Error   string   `json:"error,omitempty"`
}
