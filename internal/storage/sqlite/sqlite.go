// Package sqlite implements the task store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/hearthhq/intake/internal/types"
)

// SQLiteStore implements the TaskStore interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite task store at the given path
func New(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// FindBySourceID returns the task matching (userID, source, sourceID), or
// (nil, nil) if none exists. If the source delivered the same identifier
// more than once before the engine's guarantee held, the oldest row wins.
func (s *SQLiteStore) FindBySourceID(ctx context.Context, userID, source, sourceID string) (*types.PersistedTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, due_date, context, priority,
		       source, source_id, confidence, status, created_at
		FROM tasks
		WHERE user_id = ? AND source = ? AND source_id = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, userID, source, sourceID)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task by source id: %w", err)
	}
	return task, nil
}

// FindAllBySource returns every task the user has from the given source,
// oldest first.
func (s *SQLiteStore) FindAllBySource(ctx context.Context, userID, source string) ([]*types.PersistedTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, due_date, context, priority,
		       source, source_id, confidence, status, created_at
		FROM tasks
		WHERE user_id = ? AND source = ?
		ORDER BY created_at ASC
	`, userID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by source: %w", err)
	}
	defer rows.Close()

	var tasks []*types.PersistedTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}
	return tasks, nil
}

// Insert persists an accepted draft, assigning ID, CreatedAt, and the
// initial pending status.
func (s *SQLiteStore) Insert(ctx context.Context, userID string, draft *types.TaskDraft) (*types.PersistedTask, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}

	task := &types.PersistedTask{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		Context:     draft.Context,
		Priority:    draft.Priority,
		Source:      draft.Source,
		SourceID:    draft.SourceID,
		Confidence:  draft.Confidence,
		Status:      types.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	var dueDate *string
	if task.DueDate != nil {
		formatted := task.DueDate.UTC().Format(time.RFC3339)
		dueDate = &formatted
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, due_date, context,
		                   priority, source, source_id, confidence, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.UserID, task.Title, task.Description, dueDate,
		string(task.Context), task.Priority, task.Source, task.SourceID,
		task.Confidence, string(task.Status), task.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return task, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for scanTask
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*types.PersistedTask, error) {
	var task types.PersistedTask
	var context, status, createdAt string
	var dueDate, sourceID sql.NullString

	err := sc.Scan(&task.ID, &task.UserID, &task.Title, &task.Description,
		&dueDate, &context, &task.Priority, &task.Source, &sourceID,
		&task.Confidence, &status, &createdAt)
	if err != nil {
		return nil, err
	}

	task.Context = types.TaskContext(context)
	task.Status = types.Status(status)

	if sourceID.Valid {
		task.SourceID = &sourceID.String
	}
	if dueDate.Valid {
		due, err := time.Parse(time.RFC3339, dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse due date %q: %w", dueDate.String, err)
		}
		task.DueDate = &due
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	task.CreatedAt = created

	return &task, nil
}
