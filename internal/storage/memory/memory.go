// Package memory implements the task store as an in-process collection.
//
// It exists for tests and for embedding scenarios where no database is
// wanted. Unlike the SQLite backend it keeps everything in one mutex-guarded
// slice, so it is also the simplest reference for the store contract.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearthhq/intake/internal/storage"
	"github.com/hearthhq/intake/internal/types"
)

// Store implements storage.TaskStore in memory
type Store struct {
	mu    sync.Mutex
	tasks []*types.PersistedTask

	readErr  error
	writeErr error
}

// Compile-time check that Store implements TaskStore
var _ storage.TaskStore = (*Store)(nil)

// New creates an empty in-memory task store
func New() *Store {
	return &Store{}
}

// FailReads makes every subsequent query return err. Pass nil to restore
// normal behavior. Used to exercise read-failure handling in callers.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailWrites makes every subsequent insert return err. Pass nil to restore
// normal behavior.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FindBySourceID returns the oldest task matching (userID, source, sourceID),
// or (nil, nil) on a miss.
func (s *Store) FindBySourceID(ctx context.Context, userID, source, sourceID string) (*types.PersistedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	for _, task := range s.tasks {
		if task.UserID == userID && task.Source == source &&
			task.SourceID != nil && *task.SourceID == sourceID {
			return copyTask(task), nil
		}
	}
	return nil, nil
}

// FindAllBySource returns the user's tasks from the given source in
// insertion order.
func (s *Store) FindAllBySource(ctx context.Context, userID, source string) ([]*types.PersistedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []*types.PersistedTask
	for _, task := range s.tasks {
		if task.UserID == userID && task.Source == source {
			out = append(out, copyTask(task))
		}
	}
	return out, nil
}

// Insert persists an accepted draft, assigning ID and CreatedAt
func (s *Store) Insert(ctx context.Context, userID string, draft *types.TaskDraft) (*types.PersistedTask, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return nil, s.writeErr
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
	s.tasks = append(s.tasks, task)
	return copyTask(task), nil
}

// Len reports how many tasks are stored, across all users
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close is a no-op for the in-memory store
func (s *Store) Close() error {
	return nil
}

// copyTask returns a shallow copy so callers cannot mutate stored state
func copyTask(t *types.PersistedTask) *types.PersistedTask {
	dup := *t
	return &dup
}
