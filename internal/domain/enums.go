// Package domain defines the core domain models for UAT sessions and test runs.
package domain

// SessionStatus represents the lifecycle state of a UAT session.
type SessionStatus string

const (
	SessionStatusDraft  SessionStatus = "draft"
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusDraft, SessionStatusActive, SessionStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a session may move from s to next.
// Closed sessions can be reopened; nothing returns to draft.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusDraft:
		return next == SessionStatusActive || next == SessionStatusClosed
	case SessionStatusActive:
		return next == SessionStatusClosed
	case SessionStatusClosed:
		return next == SessionStatusActive
	}
	return false
}

// StepType represents the kind of a checklist item step.
type StepType string

const (
	StepTypeTest  StepType = "test"
	StepTypeDelay StepType = "delay"
	StepTypeInfo  StepType = "info"
)

// Valid reports whether t is a known step type.
func (t StepType) Valid() bool {
	switch t {
	case StepTypeTest, StepTypeDelay, StepTypeInfo:
		return true
	}
	return false
}

// AllowsStatus reports whether a result with the given status is meaningful
// for a step of this type. Pending is always allowed so a result can be reopened.
func (t StepType) AllowsStatus(status StepResultStatus) bool {
	if status == StepResultStatusPending {
		return true
	}
	switch t {
	case StepTypeTest:
		return status == StepResultStatusPassed || status == StepResultStatusFailed
	case StepTypeDelay, StepTypeInfo:
		return status == StepResultStatusAcknowledged
	}
	return false
}

// RunStatus represents the status of a test run.
type RunStatus string

const (
	RunStatusActive RunStatus = "active"
	RunStatusClosed RunStatus = "closed"
)

// StepResultStatus represents the outcome of a single step within a run.
type StepResultStatus string

const (
	StepResultStatusPending      StepResultStatus = "pending"
	StepResultStatusPassed       StepResultStatus = "passed"
	StepResultStatusFailed       StepResultStatus = "failed"
	StepResultStatusAcknowledged StepResultStatus = "acknowledged"
)

// Valid reports whether s is a known step result status.
func (s StepResultStatus) Valid() bool {
	switch s {
	case StepResultStatusPending, StepResultStatusPassed, StepResultStatusFailed, StepResultStatusAcknowledged:
		return true
	}
	return false
}

// Terminal reports whether s completes a step.
func (s StepResultStatus) Terminal() bool {
	return s == StepResultStatusPassed || s == StepResultStatusFailed || s == StepResultStatusAcknowledged
}

// Completing reports whether s is a successful completion (passed or acknowledged).
func (s StepResultStatus) Completing() bool {
	return s == StepResultStatusPassed || s == StepResultStatusAcknowledged
}

// ItemStatus is the derived status of a checklist item.
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusPartial ItemStatus = "partial"
	ItemStatusPassed  ItemStatus = "passed"
	ItemStatusFailed  ItemStatus = "failed"
)

// GuestRole distinguishes reviewers from developers holding a guest token.
type GuestRole string

const (
	GuestRoleReviewer  GuestRole = "reviewer"
	GuestRoleDeveloper GuestRole = "developer"
)

// Valid reports whether r is a known guest role.
func (r GuestRole) Valid() bool {
	return r == GuestRoleReviewer || r == GuestRoleDeveloper
}

// EventType represents the type of a session event.
type EventType string

const (
	EventTypeSessionCreated       EventType = "session_created"
	EventTypeSessionStatusChanged EventType = "session_status_changed"
	EventTypeRunStarted           EventType = "run_started"
	EventTypeRunClosed            EventType = "run_closed"
	EventTypeStepResultUpdated    EventType = "step_result_updated"
	EventTypeCommentCreated       EventType = "comment_created"
	EventTypeCommentEdited        EventType = "comment_edited"
	EventTypeNotificationSent     EventType = "notification_sent"
	EventTypeNotificationFailed   EventType = "notification_failed"
)
