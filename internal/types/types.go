package types

import (
	"fmt"
	"strings"
	"time"
)

// TaskDraft is an unpersisted candidate task produced by a source extractor.
// Drafts are consumed exactly once by the deduplication engine and either
// become a PersistedTask or are discarded.
type TaskDraft struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Context     TaskContext `json:"context"`
	Priority    int         `json:"priority"`
	Source      string      `json:"source"`
	SourceID    *string     `json:"source_id,omitempty"`

	// Confidence reflects how the draft was produced: 1.0 for structured
	// extraction, lower for heuristic or raw-note fallbacks. The engine
	// processes low-confidence drafts normally.
	Confidence float64 `json:"confidence,omitempty"`
}

// Validate checks if the draft has valid field values
func (d *TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(d.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(d.Title))
	}
	if d.Priority < 1 || d.Priority > 5 {
		return fmt.Errorf("priority must be between 1 and 5 (got %d)", d.Priority)
	}
	if !d.Context.IsValid() {
		return fmt.Errorf("invalid context: %s", d.Context)
	}
	if d.Source == "" {
		return fmt.Errorf("source is required")
	}
	if d.SourceID != nil && *d.SourceID == "" {
		return fmt.Errorf("source_id cannot be empty when set")
	}
	if d.Confidence < 0.0 || d.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.2f)", d.Confidence)
	}
	return nil
}

// DefaultPriority is the priority assigned when a source supplies none
const DefaultPriority = 3

// NewDraft creates a draft with the field defaults applied
func NewDraft(title, source string) *TaskDraft {
	return &TaskDraft{
		Title:      strings.TrimSpace(title),
		Context:    ContextWork,
		Priority:   DefaultPriority,
		Source:     source,
		Confidence: 1.0,
	}
}

// PersistedTask is a TaskDraft that passed the duplicate check and was
// written through the task store. ID and CreatedAt are store-assigned.
type PersistedTask struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Context     TaskContext `json:"context"`
	Priority    int         `json:"priority"`
	Source      string      `json:"source"`
	SourceID    *string     `json:"source_id,omitempty"`
	Confidence  float64     `json:"confidence,omitempty"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Validate checks if the persisted task has valid field values
func (t *PersistedTask) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	return t.Draft().Validate()
}

// Draft returns the draft-level view of the task, used when comparing a
// candidate against existing tasks.
func (t *PersistedTask) Draft() *TaskDraft {
	return &TaskDraft{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Context:     t.Context,
		Priority:    t.Priority,
		Source:      t.Source,
		SourceID:    t.SourceID,
		Confidence:  t.Confidence,
	}
}

// Status represents the lifecycle state of a persisted task. Transitions
// beyond the initial pending state are owned by the calling application.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TaskContext categorizes which sphere of life a task belongs to
type TaskContext string

const (
	ContextWork     TaskContext = "work"
	ContextPersonal TaskContext = "personal"
	ContextFamily   TaskContext = "family"
	ContextLearning TaskContext = "learning"
)

// IsValid checks if the context value is valid
func (c TaskContext) IsValid() bool {
	switch c {
	case ContextWork, ContextPersonal, ContextFamily, ContextLearning:
		return true
	}
	return false
}

// ParseContext maps free-form context strings (including extractor output)
// to a TaskContext, defaulting to work for anything unrecognized.
func ParseContext(s string) TaskContext {
	switch TaskContext(strings.ToLower(strings.TrimSpace(s))) {
	case ContextPersonal:
		return ContextPersonal
	case ContextFamily:
		return ContextFamily
	case ContextLearning:
		return ContextLearning
	default:
		return ContextWork
	}
}

// Well-known source names. Webhook sources use their origin tag directly
// (e.g. "n8n"), so Source stays a string rather than a closed enum.
const (
	SourceEmail    = "email"
	SourceCalendar = "calendar"
)
