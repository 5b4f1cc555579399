// Package store defines the storage interface and its SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/xiaot623/uatdesk/internal/domain"
)

// ErrActiveRunConflict is returned when another active run for the same item was
// inserted concurrently.
var ErrActiveRunConflict = errors.New("item already has an active run")

// Store defines the interface for data persistence.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context, ownerID string) ([]domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// Checklist item operations
	CreateItem(ctx context.Context, item *domain.ChecklistItem) error
	GetItem(ctx context.Context, itemID string) (*domain.ChecklistItem, error)
	ListItems(ctx context.Context, sessionID string) ([]domain.ChecklistItem, error)
	UpdateItem(ctx context.Context, item *domain.ChecklistItem) error
	DeleteItem(ctx context.Context, itemID string) (bool, error)

	// Step operations
	CreateStep(ctx context.Context, step *domain.ChecklistItemStep) error
	GetStep(ctx context.Context, stepID string) (*domain.ChecklistItemStep, error)
	ListSteps(ctx context.Context, itemID string) ([]domain.ChecklistItemStep, error)
	UpdateStep(ctx context.Context, step *domain.ChecklistItemStep) error
	DeleteStep(ctx context.Context, stepID string) (bool, error)

	// Run operations
	StartRun(ctx context.Context, run *domain.TestRun, results []domain.TestStepResult) (int, error)
	GetRun(ctx context.Context, runID string) (*domain.TestRun, error)
	GetLatestRun(ctx context.Context, itemID string) (*domain.TestRun, error)
	ListRuns(ctx context.Context, itemID string) ([]domain.TestRun, error)
	CloseRun(ctx context.Context, runID string) (bool, error)

	// Step result operations
	ListStepResults(ctx context.Context, runID string) ([]domain.TestStepResult, error)
	GetStepResult(ctx context.Context, runID, stepID string) (*domain.TestStepResult, error)
	UpsertStepResult(ctx context.Context, result *domain.TestStepResult) (*domain.TestStepResult, error)

	// Comment operations
	CreateComment(ctx context.Context, comment *domain.ItemComment) error
	GetComment(ctx context.Context, commentID string) (*domain.ItemComment, error)
	ListComments(ctx context.Context, itemID string) ([]domain.ItemComment, error)
	UpdateCommentBody(ctx context.Context, commentID, body string, updatedAt time.Time) error

	// Guest and collaborator operations
	CreateGuest(ctx context.Context, guest *domain.Guest) error
	GetGuestByToken(ctx context.Context, token string) (*domain.Guest, error)
	ListGuests(ctx context.Context, sessionID string) ([]domain.Guest, error)
	DeleteGuest(ctx context.Context, sessionID, guestID string) (bool, error)
	CreateCollaborator(ctx context.Context, collaborator *domain.Collaborator) error
	GetCollaboratorByToken(ctx context.Context, token string) (*domain.Collaborator, error)
	ListCollaborators(ctx context.Context, sessionID string) ([]domain.Collaborator, error)
	DeleteCollaborator(ctx context.Context, sessionID, collaboratorID string) (bool, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.SessionEvent) error
	ListEvents(ctx context.Context, sessionID string, afterTs int64, limit int) ([]domain.SessionEvent, error)

	// Lifecycle
	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
