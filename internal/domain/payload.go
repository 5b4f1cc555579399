package domain

// RunStartedPayload is the payload for run_started events.
type RunStartedPayload struct {
	ItemID         string `json:"item_id"`
	RunID          string `json:"run_id"`
	SupersededRuns int    `json:"superseded_runs"`
}

// RunClosedPayload is the payload for run_closed events.
type RunClosedPayload struct {
	ItemID string `json:"item_id"`
	RunID  string `json:"run_id"`
}

// StepResultPayload is the payload for step_result_updated events.
type StepResultPayload struct {
	ItemID     string           `json:"item_id"`
	RunID      string           `json:"run_id"`
	StepID     string           `json:"step_id"`
	Status     StepResultStatus `json:"status"`
	ItemStatus ItemStatus       `json:"item_status"`
}

// CommentPayload is the payload for comment events.
type CommentPayload struct {
	ItemID    string `json:"item_id"`
	CommentID string `json:"comment_id"`
	ParentID  string `json:"parent_id,omitempty"`
}

// SessionStatusPayload is the payload for session_status_changed events.
type SessionStatusPayload struct {
	From SessionStatus `json:"from"`
	To   SessionStatus `json:"to"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	SentTo []string `json:"sent_to,omitempty"`
	Error  string   `json:"error,omitempty"`
}
