package store

import (
	"context"
	"testing"
	"time"

	"github.com/xiaot623/uatdesk/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func seedItem(t *testing.T, ctx context.Context, store *SQLiteStore, stepIDs ...string) {
	t.Helper()
	now := time.Now()
	if err := store.CreateSession(ctx, &domain.Session{SessionID: "s1", Name: "Checkout", Status: domain.SessionStatusActive, OwnerID: "u1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.CreateItem(ctx, &domain.ChecklistItem{ItemID: "i1", SessionID: "s1", Title: "Pay", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	for _, id := range stepIDs {
		if err := store.CreateStep(ctx, &domain.ChecklistItemStep{StepID: id, ItemID: "i1", StepType: domain.StepTypeTest, Title: id, CreatedAt: now}); err != nil {
			t.Fatalf("CreateStep failed: %v", err)
		}
	}
}

func pendingResults(runID string, stepIDs ...string) []domain.TestStepResult {
	out := make([]domain.TestStepResult, len(stepIDs))
	for i, id := range stepIDs {
		out[i] = domain.TestStepResult{ResultID: runID + "_" + id, RunID: runID, StepID: id, Status: domain.StepResultStatusPending, UpdatedAt: time.Now()}
	}
	return out
}

func TestSQLiteStoreSessionAndItems(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedItem(t, ctx, store, "st1", "st2")

	session, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session == nil || session.OwnerID != "u1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	missing, err := store.GetSession(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil session, got %+v (%v)", missing, err)
	}

	steps, err := store.ListSteps(ctx, "i1")
	if err != nil {
		t.Fatalf("ListSteps failed: %v", err)
	}
	if len(steps) != 2 || steps[0].Position != 1 || steps[1].Position != 2 {
		t.Fatalf("unexpected steps: %+v", steps)
	}
}

func TestSQLiteStoreStartRunSupersedesActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedItem(t, ctx, store, "st1", "st2")

	first := &domain.TestRun{RunID: "r1", ItemID: "i1", Status: domain.RunStatusActive, CreatedAt: time.Now()}
	superseded, err := store.StartRun(ctx, first, pendingResults("r1", "st1", "st2"))
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if superseded != 0 {
		t.Fatalf("expected 0 superseded, got %d", superseded)
	}

	second := &domain.TestRun{RunID: "r2", ItemID: "i1", Status: domain.RunStatusActive, CreatedAt: time.Now()}
	superseded, err = store.StartRun(ctx, second, pendingResults("r2", "st1", "st2"))
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if superseded != 1 {
		t.Fatalf("expected 1 superseded, got %d", superseded)
	}

	latest, err := store.GetLatestRun(ctx, "i1")
	if err != nil {
		t.Fatalf("GetLatestRun failed: %v", err)
	}
	if latest == nil || latest.RunID != "r2" {
		t.Fatalf("expected r2 to be latest, got %+v", latest)
	}

	old, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if old.Status != domain.RunStatusClosed || old.ClosedAt == nil {
		t.Fatalf("expected r1 closed, got %+v", old)
	}
}

func TestSQLiteStoreRejectsSecondActiveRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedItem(t, ctx, store, "st1")

	if _, err := store.StartRun(ctx, &domain.TestRun{RunID: "r1", ItemID: "i1", Status: domain.RunStatusActive, CreatedAt: time.Now()}, nil); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	// Bypass StartRun's close step to simulate a racing insert.
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO uat_test_runs (run_id, item_id, status, created_at) VALUES (?, ?, ?, ?)`,
		"r2", "i1", domain.RunStatusActive, time.Now())
	if !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestSQLiteStoreUpsertStepResultTouchesOnlyOneRow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedItem(t, ctx, store, "st1", "st2")
	if _, err := store.StartRun(ctx, &domain.TestRun{RunID: "r1", ItemID: "i1", Status: domain.RunStatusActive, CreatedAt: time.Now()}, pendingResults("r1", "st1", "st2")); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	got, err := store.UpsertStepResult(ctx, &domain.TestStepResult{
		ResultID:  "ignored_on_conflict",
		RunID:     "r1",
		StepID:    "st1",
		Status:    domain.StepResultStatusFailed,
		Notes:     "button missing",
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("UpsertStepResult failed: %v", err)
	}
	if got.ResultID != "r1_st1" || got.Status != domain.StepResultStatusFailed || got.Notes != "button missing" {
		t.Fatalf("unexpected result: %+v", got)
	}

	results, err := store.ListStepResults(ctx, "r1")
	if err != nil {
		t.Fatalf("ListStepResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].StepID != "st2" || results[1].Status != domain.StepResultStatusPending {
		t.Fatalf("unrelated step changed: %+v", results[1])
	}
}

func TestSQLiteStoreDeleteItemCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedItem(t, ctx, store, "st1")
	if _, err := store.StartRun(ctx, &domain.TestRun{RunID: "r1", ItemID: "i1", Status: domain.RunStatusActive, CreatedAt: time.Now()}, pendingResults("r1", "st1")); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	now := time.Now()
	if err := store.CreateComment(ctx, &domain.ItemComment{CommentID: "c1", ItemID: "i1", AuthorType: domain.ActorKindGuest, AuthorID: "g1", AuthorName: "Gus", Body: "hi", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	deleted, err := store.DeleteItem(ctx, "i1")
	if err != nil || !deleted {
		t.Fatalf("DeleteItem failed: %v (deleted=%v)", err, deleted)
	}

	if run, _ := store.GetRun(ctx, "r1"); run != nil {
		t.Fatalf("expected run to be deleted")
	}
	if step, _ := store.GetStep(ctx, "st1"); step != nil {
		t.Fatalf("expected step to be deleted")
	}
	if c, _ := store.GetComment(ctx, "c1"); c != nil {
		t.Fatalf("expected comment to be deleted")
	}
}

func TestSQLiteStoreCommentsAndTokens(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedItem(t, ctx, store)
	now := time.Now()
	if err := store.CreateComment(ctx, &domain.ItemComment{CommentID: "c1", ItemID: "i1", AuthorType: domain.ActorKindPMCollaborator, AuthorID: "p1", AuthorName: "Pam", Body: "first", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if err := store.UpdateCommentBody(ctx, "c1", "edited", now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateCommentBody failed: %v", err)
	}
	c, err := store.GetComment(ctx, "c1")
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if c.Body != "edited" || !c.Edited() || c.AuthorType != domain.ActorKindPMCollaborator {
		t.Fatalf("unexpected comment: %+v", c)
	}

	expires := now.Add(time.Hour)
	if err := store.CreateGuest(ctx, &domain.Guest{GuestID: "g1", SessionID: "s1", Name: "Gus", Role: domain.GuestRoleDeveloper, Token: "tok", ExpiresAt: &expires, CreatedAt: now}); err != nil {
		t.Fatalf("CreateGuest failed: %v", err)
	}
	g, err := store.GetGuestByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("GetGuestByToken failed: %v", err)
	}
	if g == nil || g.Role != domain.GuestRoleDeveloper || g.ExpiresAt == nil {
		t.Fatalf("unexpected guest: %+v", g)
	}
	if g, _ := store.GetGuestByToken(ctx, "other"); g != nil {
		t.Fatalf("expected no guest for unknown token")
	}
}
