package storage

import (
	"context"

	"github.com/hearthhq/intake/internal/storage/sqlite"
	"github.com/hearthhq/intake/internal/types"
)

// TaskStore defines the persistence boundary for the intake pipeline.
// All queries are scoped to a user; the backing technology is not
// prescribed beyond this interface.
//
// FindBySourceID returns (nil, nil) when no task matches: a miss is not an
// error. Backends are expected to index (user_id, source, source_id) so the
// lookup is cheap. Note that uniqueness of that triple is enforced by the
// deduplication engine's read-then-write sequencing, not by the store.
type TaskStore interface {
	// FindBySourceID looks up the task a source system already delivered,
	// identified by its origin identifier (email message id, calendar
	// event id, webhook item id).
	FindBySourceID(ctx context.Context, userID, source, sourceID string) (*types.PersistedTask, error)

	// FindAllBySource returns every task the user has from the given
	// source, used for content-similarity comparison.
	FindAllBySource(ctx context.Context, userID, source string) ([]*types.PersistedTask, error)

	// Insert persists an accepted draft for the user, assigning ID,
	// CreatedAt, and the initial pending status.
	Insert(ctx context.Context, userID string, draft *types.TaskDraft) (*types.PersistedTask, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".intake/tasks.db"
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".intake/tasks.db",
	}
}

// NewStorage creates a new SQLite task store
// The ctx parameter is currently unused but kept for API consistency
func NewStorage(ctx context.Context, cfg *Config) (TaskStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".intake/tasks.db"
	}
	return sqlite.New(cfg.Path)
}
