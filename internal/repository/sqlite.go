package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/uatdesk/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys so item/run/comment deletes cascade.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS uat_sessions (
			session_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			owner_id TEXT NOT NULL,
			owner_name TEXT,
			owner_email TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uat_sessions_owner ON uat_sessions(owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS uat_checklist_items (
			item_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			instructions TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES uat_sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uat_items_session ON uat_checklist_items(session_id, position)`,
		`CREATE TABLE IF NOT EXISTS uat_checklist_item_steps (
			step_id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			step_type TEXT NOT NULL,
			title TEXT NOT NULL,
			instructions TEXT,
			expected_result TEXT,
			link_url TEXT,
			notes_required INTEGER NOT NULL DEFAULT 0,
			notes_prompt TEXT,
			estimated_duration_minutes INTEGER,
			position INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (item_id) REFERENCES uat_checklist_items(item_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uat_steps_item ON uat_checklist_item_steps(item_id, position)`,
		`CREATE TABLE IF NOT EXISTS uat_test_runs (
			run_id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_by TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			closed_at DATETIME,
			FOREIGN KEY (item_id) REFERENCES uat_checklist_items(item_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uat_runs_item ON uat_test_runs(item_id, created_at)`,
		// At most one active run per item.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_uat_runs_one_active ON uat_test_runs(item_id) WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS uat_test_step_results (
			result_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			notes TEXT,
			updated_by TEXT,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (run_id, step_id),
			FOREIGN KEY (run_id) REFERENCES uat_test_runs(run_id) ON DELETE CASCADE,
			FOREIGN KEY (step_id) REFERENCES uat_checklist_item_steps(step_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS uat_item_comments (
			comment_id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			parent_id TEXT,
			author_type TEXT NOT NULL,
			author_id TEXT NOT NULL,
			author_name TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (item_id) REFERENCES uat_checklist_items(item_id) ON DELETE CASCADE,
			FOREIGN KEY (parent_id) REFERENCES uat_item_comments(comment_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uat_comments_item ON uat_item_comments(item_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS uat_guests (
			guest_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			role TEXT NOT NULL DEFAULT 'reviewer',
			token TEXT NOT NULL UNIQUE,
			read_only INTEGER NOT NULL DEFAULT 0,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES uat_sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS uat_session_collaborators (
			collaborator_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			token TEXT NOT NULL UNIQUE,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES uat_sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS uat_events (
			event_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			actor_type TEXT,
			actor_id TEXT,
			payload TEXT,
			FOREIGN KEY (session_id) REFERENCES uat_sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uat_events_session ON uat_events(session_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const sessionColumns = `session_id, name, description, status, owner_id, owner_name, owner_email, created_at, updated_at`

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var description, ownerName, ownerEmail sql.NullString
	if err := row.Scan(&session.SessionID, &session.Name, &description, &session.Status, &session.OwnerID,
		&ownerName, &ownerEmail, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	session.Description = description.String
	session.OwnerName = ownerName.String
	session.OwnerEmail = ownerEmail.String
	return &session, nil
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.Name, nullString(session.Description), session.Status, session.OwnerID,
		nullString(session.OwnerName), nullString(session.OwnerEmail), session.CreatedAt, session.UpdatedAt)
	return err
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM uat_sessions WHERE session_id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions lists sessions, optionally filtered by owner.
func (s *SQLiteStore) ListSessions(ctx context.Context, ownerID string) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM uat_sessions`
	var args []interface{}
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// UpdateSession updates session metadata and status.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE uat_sessions SET name = ?, description = ?, status = ?, owner_name = ?, owner_email = ?, updated_at = ? WHERE session_id = ?`,
		session.Name, nullString(session.Description), session.Status, nullString(session.OwnerName),
		nullString(session.OwnerEmail), session.UpdatedAt, session.SessionID)
	return err
}

// DeleteSession deletes a session and, through cascades, everything it owns.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	return s.deleteWhere(ctx, `DELETE FROM uat_sessions WHERE session_id = ?`, sessionID)
}

const itemColumns = `item_id, session_id, title, instructions, position, created_at, updated_at`

func scanItem(row rowScanner) (*domain.ChecklistItem, error) {
	var item domain.ChecklistItem
	var instructions sql.NullString
	if err := row.Scan(&item.ItemID, &item.SessionID, &item.Title, &instructions, &item.Position,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Instructions = instructions.String
	return &item, nil
}

// CreateItem creates a checklist item. A zero position appends the item.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *domain.ChecklistItem) error {
	if item.Position <= 0 {
		next, err := s.nextPosition(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM uat_checklist_items WHERE session_id = ?`, item.SessionID)
		if err != nil {
			return err
		}
		item.Position = next
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_checklist_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.SessionID, item.Title, nullString(item.Instructions), item.Position, item.CreatedAt, item.UpdatedAt)
	return err
}

// GetItem retrieves an item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, itemID string) (*domain.ChecklistItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM uat_checklist_items WHERE item_id = ?`, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems lists the items of a session in order.
func (s *SQLiteStore) ListItems(ctx context.Context, sessionID string) ([]domain.ChecklistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM uat_checklist_items WHERE session_id = ? ORDER BY position ASC, created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ChecklistItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates item metadata.
func (s *SQLiteStore) UpdateItem(ctx context.Context, item *domain.ChecklistItem) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE uat_checklist_items SET title = ?, instructions = ?, position = ?, updated_at = ? WHERE item_id = ?`,
		item.Title, nullString(item.Instructions), item.Position, item.UpdatedAt, item.ItemID)
	return err
}

// DeleteItem deletes an item together with its steps, runs, results and comments.
func (s *SQLiteStore) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	return s.deleteWhere(ctx, `DELETE FROM uat_checklist_items WHERE item_id = ?`, itemID)
}

const stepColumns = `step_id, item_id, step_type, title, instructions, expected_result, link_url, notes_required, notes_prompt, estimated_duration_minutes, position, created_at`

func scanStep(row rowScanner) (*domain.ChecklistItemStep, error) {
	var step domain.ChecklistItemStep
	var instructions, expected, link, prompt sql.NullString
	var duration sql.NullInt64
	if err := row.Scan(&step.StepID, &step.ItemID, &step.StepType, &step.Title, &instructions, &expected, &link,
		&step.NotesRequired, &prompt, &duration, &step.Position, &step.CreatedAt); err != nil {
		return nil, err
	}
	step.Instructions = instructions.String
	step.ExpectedResult = expected.String
	step.LinkURL = link.String
	step.NotesPrompt = prompt.String
	if duration.Valid {
		minutes := int(duration.Int64)
		step.EstimatedDurationMinutes = &minutes
	}
	return &step, nil
}

// CreateStep creates a step. A zero position appends the step.
func (s *SQLiteStore) CreateStep(ctx context.Context, step *domain.ChecklistItemStep) error {
	if step.Position <= 0 {
		next, err := s.nextPosition(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM uat_checklist_item_steps WHERE item_id = ?`, step.ItemID)
		if err != nil {
			return err
		}
		step.Position = next
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_checklist_item_steps (`+stepColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.StepID, step.ItemID, step.StepType, step.Title, nullString(step.Instructions), nullString(step.ExpectedResult),
		nullString(step.LinkURL), step.NotesRequired, nullString(step.NotesPrompt), nullInt(step.EstimatedDurationMinutes),
		step.Position, step.CreatedAt)
	return err
}

// GetStep retrieves a step by ID.
func (s *SQLiteStore) GetStep(ctx context.Context, stepID string) (*domain.ChecklistItemStep, error) {
	step, err := scanStep(s.db.QueryRowContext(ctx,
		`SELECT `+stepColumns+` FROM uat_checklist_item_steps WHERE step_id = ?`, stepID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return step, nil
}

// ListSteps lists the steps of an item in order.
func (s *SQLiteStore) ListSteps(ctx context.Context, itemID string) ([]domain.ChecklistItemStep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stepColumns+` FROM uat_checklist_item_steps WHERE item_id = ? ORDER BY position ASC, created_at ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.ChecklistItemStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *step)
	}
	return steps, rows.Err()
}

// UpdateStep updates a step in place.
func (s *SQLiteStore) UpdateStep(ctx context.Context, step *domain.ChecklistItemStep) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE uat_checklist_item_steps SET step_type = ?, title = ?, instructions = ?, expected_result = ?, link_url = ?,
		 notes_required = ?, notes_prompt = ?, estimated_duration_minutes = ?, position = ? WHERE step_id = ?`,
		step.StepType, step.Title, nullString(step.Instructions), nullString(step.ExpectedResult), nullString(step.LinkURL),
		step.NotesRequired, nullString(step.NotesPrompt), nullInt(step.EstimatedDurationMinutes), step.Position, step.StepID)
	return err
}

// DeleteStep deletes a step and its results.
func (s *SQLiteStore) DeleteStep(ctx context.Context, stepID string) (bool, error) {
	return s.deleteWhere(ctx, `DELETE FROM uat_checklist_item_steps WHERE step_id = ?`, stepID)
}

const runColumns = `run_id, item_id, status, started_by, created_at, closed_at`

func scanRun(row rowScanner) (*domain.TestRun, error) {
	var run domain.TestRun
	var startedBy sql.NullString
	var closedAt sql.NullTime
	if err := row.Scan(&run.RunID, &run.ItemID, &run.Status, &startedBy, &run.CreatedAt, &closedAt); err != nil {
		return nil, err
	}
	run.StartedBy = startedBy.String
	if closedAt.Valid {
		run.ClosedAt = &closedAt.Time
	}
	return &run, nil
}

// StartRun closes any active run of the item and inserts run together with its
// initial results in one transaction. It returns how many runs were superseded.
func (s *SQLiteStore) StartRun(ctx context.Context, run *domain.TestRun, results []domain.TestStepResult) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE uat_test_runs SET status = ?, closed_at = ? WHERE item_id = ? AND status = ?`,
		domain.RunStatusClosed, run.CreatedAt, run.ItemID, domain.RunStatusActive)
	if err != nil {
		return 0, err
	}
	superseded, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO uat_test_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ItemID, run.Status, nullString(run.StartedBy), run.CreatedAt, run.ClosedAt); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrActiveRunConflict
		}
		return 0, err
	}

	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO uat_test_step_results (result_id, run_id, step_id, status, notes, updated_by, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ResultID, r.RunID, r.StepID, r.Status, nullString(r.Notes), nullString(r.UpdatedBy), r.UpdatedAt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrActiveRunConflict
		}
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return int(superseded), nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.TestRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM uat_test_runs WHERE run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetLatestRun retrieves the most recently created run of an item.
func (s *SQLiteStore) GetLatestRun(ctx context.Context, itemID string) (*domain.TestRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM uat_test_runs WHERE item_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns lists every run of an item, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, itemID string) ([]domain.TestRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM uat_test_runs WHERE item_id = ? ORDER BY created_at DESC, rowid DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.TestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CloseRun marks an active run as closed.
func (s *SQLiteStore) CloseRun(ctx context.Context, runID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE uat_test_runs SET status = ?, closed_at = ? WHERE run_id = ? AND status = ?`,
		domain.RunStatusClosed, time.Now(), runID, domain.RunStatusActive)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

const resultColumns = `result_id, run_id, step_id, status, notes, updated_by, updated_at`

func scanResult(row rowScanner) (*domain.TestStepResult, error) {
	var r domain.TestStepResult
	var notes, updatedBy sql.NullString
	if err := row.Scan(&r.ResultID, &r.RunID, &r.StepID, &r.Status, &notes, &updatedBy, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Notes = notes.String
	r.UpdatedBy = updatedBy.String
	return &r, nil
}

// ListStepResults lists the results of a run in step order.
func (s *SQLiteStore) ListStepResults(ctx context.Context, runID string) ([]domain.TestStepResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.result_id, r.run_id, r.step_id, r.status, r.notes, r.updated_by, r.updated_at
		 FROM uat_test_step_results r
		 JOIN uat_checklist_item_steps st ON st.step_id = r.step_id
		 WHERE r.run_id = ?
		 ORDER BY st.position ASC, st.created_at ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.TestStepResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// GetStepResult retrieves the result row keyed by (runID, stepID).
func (s *SQLiteStore) GetStepResult(ctx context.Context, runID, stepID string) (*domain.TestStepResult, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM uat_test_step_results WHERE run_id = ? AND step_id = ?`, runID, stepID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpsertStepResult inserts or replaces the (run_id, step_id) row and returns the
// stored row. No other rows are touched.
func (s *SQLiteStore) UpsertStepResult(ctx context.Context, result *domain.TestStepResult) (*domain.TestStepResult, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_test_step_results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, step_id) DO UPDATE SET
			status = excluded.status,
			notes = excluded.notes,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		result.ResultID, result.RunID, result.StepID, result.Status, nullString(result.Notes),
		nullString(result.UpdatedBy), result.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s.GetStepResult(ctx, result.RunID, result.StepID)
}

const commentColumns = `comment_id, item_id, parent_id, author_type, author_id, author_name, body, created_at, updated_at`

func scanComment(row rowScanner) (*domain.ItemComment, error) {
	var c domain.ItemComment
	var parentID sql.NullString
	var authorType string
	if err := row.Scan(&c.CommentID, &c.ItemID, &parentID, &authorType, &c.AuthorID, &c.AuthorName, &c.Body,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	kind, err := domain.ParseActorKind(authorType)
	if err != nil {
		return nil, err
	}
	c.AuthorType = kind
	c.ParentID = parentID.String
	return &c, nil
}

// CreateComment creates a comment.
func (s *SQLiteStore) CreateComment(ctx context.Context, comment *domain.ItemComment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_item_comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.CommentID, comment.ItemID, nullString(comment.ParentID), comment.AuthorType.String(), comment.AuthorID,
		comment.AuthorName, comment.Body, comment.CreatedAt, comment.UpdatedAt)
	return err
}

// GetComment retrieves a comment by ID.
func (s *SQLiteStore) GetComment(ctx context.Context, commentID string) (*domain.ItemComment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM uat_item_comments WHERE comment_id = ?`, commentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments lists the comments of an item in creation order.
func (s *SQLiteStore) ListComments(ctx context.Context, itemID string) ([]domain.ItemComment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM uat_item_comments WHERE item_id = ? ORDER BY created_at ASC, rowid ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.ItemComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// UpdateCommentBody replaces a comment body in place.
func (s *SQLiteStore) UpdateCommentBody(ctx context.Context, commentID, body string, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE uat_item_comments SET body = ?, updated_at = ? WHERE comment_id = ?`,
		body, updatedAt, commentID)
	return err
}

const guestColumns = `guest_id, session_id, name, email, role, token, read_only, expires_at, created_at`

func scanGuest(row rowScanner) (*domain.Guest, error) {
	var g domain.Guest
	var email sql.NullString
	var expiresAt sql.NullTime
	if err := row.Scan(&g.GuestID, &g.SessionID, &g.Name, &email, &g.Role, &g.Token, &g.ReadOnly, &expiresAt, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.Email = email.String
	if expiresAt.Valid {
		g.ExpiresAt = &expiresAt.Time
	}
	return &g, nil
}

// CreateGuest creates a guest token holder.
func (s *SQLiteStore) CreateGuest(ctx context.Context, guest *domain.Guest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_guests (`+guestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		guest.GuestID, guest.SessionID, guest.Name, nullString(guest.Email), guest.Role, guest.Token, guest.ReadOnly,
		nullTime(guest.ExpiresAt), guest.CreatedAt)
	return err
}

// GetGuestByToken retrieves a guest by token.
func (s *SQLiteStore) GetGuestByToken(ctx context.Context, token string) (*domain.Guest, error) {
	g, err := scanGuest(s.db.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM uat_guests WHERE token = ?`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListGuests lists the guests of a session.
func (s *SQLiteStore) ListGuests(ctx context.Context, sessionID string) ([]domain.Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+guestColumns+` FROM uat_guests WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guests []domain.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *g)
	}
	return guests, rows.Err()
}

// DeleteGuest revokes a guest token.
func (s *SQLiteStore) DeleteGuest(ctx context.Context, sessionID, guestID string) (bool, error) {
	return s.deleteWhere(ctx, `DELETE FROM uat_guests WHERE session_id = ? AND guest_id = ?`, sessionID, guestID)
}

const collaboratorColumns = `collaborator_id, session_id, name, email, token, expires_at, created_at`

func scanCollaborator(row rowScanner) (*domain.Collaborator, error) {
	var c domain.Collaborator
	var email sql.NullString
	var expiresAt sql.NullTime
	if err := row.Scan(&c.CollaboratorID, &c.SessionID, &c.Name, &email, &c.Token, &expiresAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Email = email.String
	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	return &c, nil
}

// CreateCollaborator creates a PM collaborator token holder.
func (s *SQLiteStore) CreateCollaborator(ctx context.Context, collaborator *domain.Collaborator) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_session_collaborators (`+collaboratorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		collaborator.CollaboratorID, collaborator.SessionID, collaborator.Name, nullString(collaborator.Email),
		collaborator.Token, nullTime(collaborator.ExpiresAt), collaborator.CreatedAt)
	return err
}

// GetCollaboratorByToken retrieves a collaborator by token.
func (s *SQLiteStore) GetCollaboratorByToken(ctx context.Context, token string) (*domain.Collaborator, error) {
	c, err := scanCollaborator(s.db.QueryRowContext(ctx,
		`SELECT `+collaboratorColumns+` FROM uat_session_collaborators WHERE token = ?`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCollaborators lists the collaborators of a session.
func (s *SQLiteStore) ListCollaborators(ctx context.Context, sessionID string) ([]domain.Collaborator, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+collaboratorColumns+` FROM uat_session_collaborators WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collaborators []domain.Collaborator
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		collaborators = append(collaborators, *c)
	}
	return collaborators, rows.Err()
}

// DeleteCollaborator revokes a collaborator token.
func (s *SQLiteStore) DeleteCollaborator(ctx context.Context, sessionID, collaboratorID string) (bool, error) {
	return s.deleteWhere(ctx, `DELETE FROM uat_session_collaborators WHERE session_id = ? AND collaborator_id = ?`, sessionID, collaboratorID)
}

// CreateEvent creates a new session event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.SessionEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uat_events (event_id, session_id, ts, type, actor_type, actor_id, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.SessionID, event.Ts, event.Type, nullString(event.ActorType), nullString(event.ActorID),
		nullStringBytes(event.Payload))
	return err
}

// ListEvents retrieves events for a session.
func (s *SQLiteStore) ListEvents(ctx context.Context, sessionID string, afterTs int64, limit int) ([]domain.SessionEvent, error) {
	query := `SELECT event_id, session_id, ts, type, actor_type, actor_id, payload FROM uat_events WHERE session_id = ?`
	args := []interface{}{sessionID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.SessionEvent
	for rows.Next() {
		var event domain.SessionEvent
		var actorType, actorID, payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.SessionID, &event.Ts, &event.Type, &actorType, &actorID, &payload); err != nil {
			return nil, err
		}
		event.ActorType = actorType.String
		event.ActorID = actorID.String
		if payload.Valid {
			event.Payload = []byte(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) nextPosition(ctx context.Context, query string, parentID string) (int, error) {
	var next int
	if err := s.db.QueryRowContext(ctx, query, parentID).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *SQLiteStore) deleteWhere(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
