package deduplication

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hearthhq/intake/internal/similarity"
	"github.com/hearthhq/intake/internal/storage"
	"github.com/hearthhq/intake/internal/types"
)

// Engine decides, for one draft against one user's existing tasks, whether
// the draft is a duplicate, and persists the drafts it accepts.
type Engine struct {
	store  storage.TaskStore
	config Config
}

// NewEngine creates a deduplication engine backed by the given task store.
// Returns an error if the store is nil or the config is invalid.
func NewEngine(store storage.TaskStore, config Config) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{store: store, config: config}, nil
}

// CheckDuplicate checks one draft against the user's existing tasks plus the
// given in-batch overlay. The overlay holds tasks accepted earlier in the
// same batch so they are visible before any store round-trip; pass nil when
// checking a lone draft.
//
// A store read failure is returned as an error: the caller cannot know the
// duplicate status and must not persist the draft.
func (e *Engine) CheckDuplicate(ctx context.Context, userID string, draft *types.TaskDraft, overlay []*types.PersistedTask) (*Decision, error) {
	if draft == nil {
		return nil, fmt.Errorf("draft cannot be nil")
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}

	compared := 0

	// Source identity first: an origin-system identifier match is a
	// duplicate regardless of content.
	if draft.SourceID != nil {
		for _, task := range overlay {
			if task.Source != draft.Source || task.SourceID == nil {
				continue
			}
			compared++
			if *task.SourceID == *draft.SourceID {
				return &Decision{
					IsDuplicate:   true,
					DuplicateOf:   task.ID,
					Rule:          RuleSourceID,
					ComparedCount: compared,
				}, nil
			}
		}

		existing, err := e.store.FindBySourceID(ctx, userID, draft.Source, *draft.SourceID)
		if err != nil {
			return nil, fmt.Errorf("source id lookup failed: %w", err)
		}
		compared++
		if existing != nil {
			return &Decision{
				IsDuplicate:   true,
				DuplicateOf:   existing.ID,
				Rule:          RuleSourceID,
				ComparedCount: compared,
			}, nil
		}
	}

	// Content pass: compare against every task from the same source. An
	// identifier miss does not skip this - the same task can arrive with
	// different identifiers (forwarded email, recreated event).
	stored, err := e.store.FindAllBySource(ctx, userID, draft.Source)
	if err != nil {
		return nil, fmt.Errorf("source listing failed: %w", err)
	}

	candidates := make([]*types.PersistedTask, 0, len(stored)+len(overlay))
	candidates = append(candidates, stored...)
	for _, task := range overlay {
		if task.Source == draft.Source {
			candidates = append(candidates, task)
		}
	}
	if e.config.MaxCandidates > 0 && len(candidates) > e.config.MaxCandidates {
		candidates = candidates[len(candidates)-e.config.MaxCandidates:]
	}

	draftTitle := similarity.Normalize(draft.Title)

	for _, task := range candidates {
		compared++

		if similarity.Normalize(task.Title) == draftTitle {
			return &Decision{
				IsDuplicate:      true,
				DuplicateOf:      task.ID,
				Rule:             RuleExactTitle,
				TitleScore:       1.0,
				DescriptionScore: similarity.Jaccard(task.Description, draft.Description),
				ComparedCount:    compared,
			}, nil
		}

		titleScore := similarity.Jaccard(task.Title, draft.Title)
		if titleScore <= e.config.TitleThreshold {
			continue
		}
		descScore := similarity.Jaccard(task.Description, draft.Description)
		if descScore > e.config.DescriptionThreshold {
			return &Decision{
				IsDuplicate:      true,
				DuplicateOf:      task.ID,
				Rule:             RuleFuzzy,
				TitleScore:       titleScore,
				DescriptionScore: descScore,
				ComparedCount:    compared,
			}, nil
		}
	}

	return &Decision{IsDuplicate: false, ComparedCount: compared}, nil
}

// ShouldAccept checks one draft and persists it when it is not a duplicate.
// Returns (task, decision, nil) on acceptance, (nil, decision, nil) when the
// draft is a duplicate, and (nil, nil, err) when the duplicate status could
// not be determined or the insert failed.
func (e *Engine) ShouldAccept(ctx context.Context, userID string, draft *types.TaskDraft) (*types.PersistedTask, *Decision, error) {
	decision, err := e.CheckDuplicate(ctx, userID, draft, nil)
	if err != nil {
		return nil, nil, err
	}
	if decision.IsDuplicate {
		log.Printf("[DEDUP] Rejecting draft %q for user %s: duplicate of %s (rule=%s)",
			draft.Title, userID, decision.DuplicateOf, decision.Rule)
		return nil, decision, nil
	}

	task, err := e.store.Insert(ctx, userID, draft)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to persist accepted draft: %w", err)
	}
	return task, decision, nil
}

// ProcessBatch processes one user's drafts sequentially in input order.
// Tasks accepted earlier in the batch are visible to later drafts through
// the in-batch overlay, so near-identical drafts in one call cannot both be
// persisted. Drafts whose store read or write fails are counted in
// ErrorCount and skipped without retry.
func (e *Engine) ProcessBatch(ctx context.Context, userID string, drafts []*types.TaskDraft) (*BatchResult, error) {
	startTime := time.Now()

	for i, draft := range drafts {
		if draft == nil {
			return nil, fmt.Errorf("draft at index %d is nil", i)
		}
	}

	result := &BatchResult{
		Accepted:  []*types.PersistedTask{},
		Decisions: make(map[int]*Decision),
	}
	overlay := []*types.PersistedTask{}

	for i, draft := range drafts {
		decision, err := e.CheckDuplicate(ctx, userID, draft, overlay)
		if err != nil {
			// Duplicate status unknown: skip persistence rather than
			// risk storing the same task twice.
			log.Printf("[DEDUP] Check failed for draft %d (%q), skipping: %v", i, draft.Title, err)
			result.Stats.ErrorCount++
			continue
		}
		result.Decisions[i] = decision
		result.Stats.ComparisonsMade += decision.ComparedCount

		if decision.IsDuplicate {
			log.Printf("[DEDUP] Draft %d (%q) is duplicate of %s (rule=%s)",
				i, draft.Title, decision.DuplicateOf, decision.Rule)
			result.Stats.DuplicateCount++
			continue
		}

		task, err := e.store.Insert(ctx, userID, draft)
		if err != nil {
			log.Printf("[DEDUP] Insert failed for draft %d (%q): %v", i, draft.Title, err)
			result.Stats.ErrorCount++
			continue
		}
		result.Accepted = append(result.Accepted, task)
		overlay = append(overlay, task)
	}

	result.Stats.TotalDrafts = len(drafts)
	result.Stats.AcceptedCount = len(result.Accepted)
	result.Stats.ProcessingTimeMs = time.Since(startTime).Milliseconds()

	return result, nil
}
