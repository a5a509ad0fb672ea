package deduplication

import (
	"context"
	"errors"
	"testing"

	"github.com/hearthhq/intake/internal/storage/memory"
	"github.com/hearthhq/intake/internal/types"
)

func strPtr(s string) *string { return &s }

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	engine, err := NewEngine(store, DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine, store
}

func draftWithSourceID(title, source, sourceID string) *types.TaskDraft {
	d := types.NewDraft(title, source)
	d.SourceID = strPtr(sourceID)
	return d
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(nil, DefaultConfig()); err == nil {
		t.Error("expected error for nil store")
	}

	bad := DefaultConfig()
	bad.TitleThreshold = 1.5
	if _, err := NewEngine(memory.New(), bad); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestCheckDuplicateFailsFastOnInvalidDraft(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CheckDuplicate(ctx, "user-1", nil, nil); err == nil {
		t.Error("expected error for nil draft")
	}

	invalid := &types.TaskDraft{Title: "  ", Context: types.ContextWork, Priority: 3, Source: types.SourceEmail}
	if _, err := engine.CheckDuplicate(ctx, "user-1", invalid, nil); err == nil {
		t.Error("expected error for empty title")
	}
}

// Accepting the same source-identified draft twice must yield accept then
// reject: the first call persists, the second finds the identifier.
func TestSourceIDIdempotence(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	draft := draftWithSourceID("Call vet back", types.SourceEmail, "msg123")

	task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
	if err != nil {
		t.Fatalf("first accept failed: %v", err)
	}
	if task == nil || decision.IsDuplicate {
		t.Fatal("first call should accept the draft")
	}

	task2, decision2, err := engine.ShouldAccept(ctx, "user-1", draft)
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if task2 != nil || !decision2.IsDuplicate {
		t.Fatal("second call should reject the draft as duplicate")
	}
	if decision2.Rule != RuleSourceID {
		t.Errorf("expected rule %s, got %s", RuleSourceID, decision2.Rule)
	}
	if decision2.DuplicateOf != task.ID {
		t.Errorf("expected duplicate_of %s, got %s", task.ID, decision2.DuplicateOf)
	}
}

// A source identifier match rejects regardless of how different the
// content is.
func TestSourceIDMatchIgnoresContent(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, _, err := engine.ShouldAccept(ctx, "user-1",
		draftWithSourceID("Call vet back", types.SourceEmail, "msg123")); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	different := draftWithSourceID("Completely unrelated wording", types.SourceEmail, "msg123")
	different.Description = "nothing in common with the original"

	task, decision, err := engine.ShouldAccept(ctx, "user-1", different)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task != nil || !decision.IsDuplicate || decision.Rule != RuleSourceID {
		t.Errorf("expected source_id rejection, got task=%v decision=%+v", task, decision)
	}
}

// The exact-title rule fires independent of description.
func TestExactTitleIndependentOfDescription(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	seed := types.NewDraft("call vet back", types.SourceEmail)
	seed.Description = "ask about Rosie's meds"
	if _, _, err := engine.ShouldAccept(ctx, "user-1", seed); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	draft := types.NewDraft("  Call Vet Back ", types.SourceEmail)
	draft.Description = "totally different words about something else entirely"

	task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task != nil || !decision.IsDuplicate {
		t.Fatal("expected exact-title rejection")
	}
	if decision.Rule != RuleExactTitle {
		t.Errorf("expected rule %s, got %s", RuleExactTitle, decision.Rule)
	}
	if decision.TitleScore != 1.0 {
		t.Errorf("expected title score 1.0, got %f", decision.TitleScore)
	}
}

// The fuzzy rule needs BOTH similarities above threshold.
func TestFuzzyRequiresBothThresholds(t *testing.T) {
	ctx := context.Background()

	// Title similarity 9/11 ≈ 0.818 in both cases; only the description
	// similarity differs.
	seedTitle := "a b c d e f g h i j"
	draftTitle := "a b c d e f g h i k"

	t.Run("description below threshold is accepted", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		seed := types.NewDraft(seedTitle, types.SourceEmail)
		seed.Description = "p q r s t u v w x y"
		if _, _, err := engine.ShouldAccept(ctx, "user-1", seed); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}

		draft := types.NewDraft(draftTitle, types.SourceEmail)
		draft.Description = "p q r s t u v w z0 z1" // 8/12 ≈ 0.667

		task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if task == nil || decision.IsDuplicate {
			t.Error("expected acceptance when description similarity is below threshold")
		}
	})

	t.Run("both above threshold is rejected", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		seed := types.NewDraft(seedTitle, types.SourceEmail)
		seed.Description = "p q r s t u v w x y"
		if _, _, err := engine.ShouldAccept(ctx, "user-1", seed); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}

		draft := types.NewDraft(draftTitle, types.SourceEmail)
		draft.Description = "p q r s t u v w x z" // 9/11 ≈ 0.818

		task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if task != nil || !decision.IsDuplicate {
			t.Fatal("expected fuzzy rejection")
		}
		if decision.Rule != RuleFuzzy {
			t.Errorf("expected rule %s, got %s", RuleFuzzy, decision.Rule)
		}
	})
}

// Thresholds are strict: exactly 0.8 title similarity is not a match, and
// exactly 0.7 description similarity is not a match.
func TestFuzzyThresholdBoundary(t *testing.T) {
	ctx := context.Background()

	t.Run("title similarity exactly at threshold", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		// 4/5 = 0.8 exactly
		seed := types.NewDraft("a b c d", types.SourceEmail)
		seed.Description = "same description words here"
		if _, _, err := engine.ShouldAccept(ctx, "user-1", seed); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}

		draft := types.NewDraft("a b c d e", types.SourceEmail)
		draft.Description = "same description words here"

		task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if task == nil || decision.IsDuplicate {
			t.Error("title similarity of exactly 0.8 must not match")
		}
	})

	t.Run("description similarity exactly at threshold", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		// Title 5/6 ≈ 0.833 (above), description 7/10 = 0.7 exactly
		seed := types.NewDraft("a b c d e", types.SourceEmail)
		seed.Description = "w1 w2 w3 w4 w5 w6 w7 a1"
		if _, _, err := engine.ShouldAccept(ctx, "user-1", seed); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}

		draft := types.NewDraft("a b c d e f", types.SourceEmail)
		draft.Description = "w1 w2 w3 w4 w5 w6 w7 b1 b2"

		task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if task == nil || decision.IsDuplicate {
			t.Error("description similarity of exactly 0.7 must not match")
		}
	})
}

// Blank fields never produce a fuzzy match: empty description scores 0.
func TestEmptyDescriptionNeverFuzzyMatches(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	seed := types.NewDraft("a b c d e f g h i j", types.SourceEmail)
	if _, _, err := engine.ShouldAccept(ctx, "user-1", seed); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	draft := types.NewDraft("a b c d e f g h i k", types.SourceEmail)

	task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task == nil || decision.IsDuplicate {
		t.Error("blank descriptions must not fuzzy-match even with similar titles")
	}
}

// A draft is never flagged against a task from a different source, even
// with identical titles and identifier values.
func TestCrossSourceIsolation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, _, err := engine.ShouldAccept(ctx, "user-1",
		draftWithSourceID("Call vet back", types.SourceEmail, "shared-id")); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	draft := draftWithSourceID("Call vet back", types.SourceCalendar, "shared-id")

	task, decision, err := engine.ShouldAccept(ctx, "user-1", draft)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task == nil || decision.IsDuplicate {
		t.Error("calendar draft must not match an email task")
	}
}

// Tasks belong to their user: another user's identical task is invisible.
func TestCrossUserIsolation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, _, err := engine.ShouldAccept(ctx, "user-1",
		draftWithSourceID("Call vet back", types.SourceEmail, "msg123")); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	task, decision, err := engine.ShouldAccept(ctx, "user-2",
		draftWithSourceID("Call vet back", types.SourceEmail, "msg123"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task == nil || decision.IsDuplicate {
		t.Error("another user's task must not count as a duplicate")
	}
}

// Two near-identical drafts in one batch produce exactly one accepted task.
func TestBatchSelfDedup(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	drafts := []*types.TaskDraft{
		types.NewDraft("Pick up the dry cleaning", types.SourceEmail),
		types.NewDraft("pick up the dry cleaning", types.SourceEmail),
	}

	result, err := engine.ProcessBatch(ctx, "user-1", drafts)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Errorf("expected 1 accepted, got %d", len(result.Accepted))
	}
	if result.Stats.DuplicateCount != 1 {
		t.Errorf("expected 1 duplicate, got %d", result.Stats.DuplicateCount)
	}
	if result.Stats.ErrorCount != 0 {
		t.Errorf("expected 0 errors, got %d", result.Stats.ErrorCount)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored task, got %d", store.Len())
	}
	if err := result.Validate(); err != nil {
		t.Errorf("result should validate: %v", err)
	}
}

// Two drafts sharing a source identifier in one batch: the second is caught
// by the in-batch overlay before any content comparison.
func TestBatchSelfDedupBySourceID(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	drafts := []*types.TaskDraft{
		draftWithSourceID("Call the vet", types.SourceEmail, "msg123"),
		draftWithSourceID("Call vet back", types.SourceEmail, "msg123"),
	}

	result, err := engine.ProcessBatch(ctx, "user-1", drafts)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(result.Accepted) != 1 || result.Stats.DuplicateCount != 1 {
		t.Fatalf("expected 1 accepted and 1 duplicate, got %d and %d",
			len(result.Accepted), result.Stats.DuplicateCount)
	}
	if result.Decisions[1].Rule != RuleSourceID {
		t.Errorf("expected rule %s, got %s", RuleSourceID, result.Decisions[1].Rule)
	}
}

// Batch order matters: the first of a duplicate pair wins.
func TestBatchKeepsFirstOccurrence(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	first := types.NewDraft("Renew the passports", types.SourceEmail)
	second := types.NewDraft("renew the passports", types.SourceEmail)

	result, err := engine.ProcessBatch(ctx, "user-1", []*types.TaskDraft{first, second})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(result.Accepted))
	}
	if result.Accepted[0].Title != "Renew the passports" {
		t.Errorf("expected the first draft to win, got %q", result.Accepted[0].Title)
	}
	if result.Decisions[1].DuplicateOf != result.Accepted[0].ID {
		t.Errorf("expected second draft to point at the first acceptance")
	}
}

// When the store cannot be read, the engine must not persist: duplicate
// status is unknown.
func TestReadFailureConservativelyRejects(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	store.FailReads(errors.New("store unavailable"))

	drafts := []*types.TaskDraft{types.NewDraft("Call vet back", types.SourceEmail)}
	result, err := engine.ProcessBatch(ctx, "user-1", drafts)
	if err != nil {
		t.Fatalf("batch itself should not fail: %v", err)
	}
	if len(result.Accepted) != 0 {
		t.Error("nothing should be accepted when reads fail")
	}
	if result.Stats.ErrorCount != 1 {
		t.Errorf("expected 1 error, got %d", result.Stats.ErrorCount)
	}
	if store.Len() != 0 {
		t.Error("nothing should be persisted when reads fail")
	}

	// ShouldAccept surfaces the same condition as an error
	_, _, err = engine.ShouldAccept(ctx, "user-1", types.NewDraft("Another task", types.SourceEmail))
	if err == nil {
		t.Error("expected error from ShouldAccept when reads fail")
	}
}

// A write failure after a clean decision is surfaced through ErrorCount
// and the draft is not retried.
func TestWriteFailureCountsAsError(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	store.FailWrites(errors.New("disk full"))

	result, err := engine.ProcessBatch(ctx, "user-1",
		[]*types.TaskDraft{types.NewDraft("Call vet back", types.SourceEmail)})
	if err != nil {
		t.Fatalf("batch itself should not fail: %v", err)
	}
	if result.Stats.ErrorCount != 1 || len(result.Accepted) != 0 {
		t.Errorf("expected 1 error and 0 accepted, got %d and %d",
			result.Stats.ErrorCount, len(result.Accepted))
	}
	if err := result.Validate(); err != nil {
		t.Errorf("result should validate: %v", err)
	}
}

func TestEmptyBatch(t *testing.T) {
	engine, _ := newTestEngine(t)

	result, err := engine.ProcessBatch(context.Background(), "user-1", nil)
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if result.Stats.TotalDrafts != 0 || len(result.Accepted) != 0 {
		t.Error("empty batch should produce an empty result")
	}
	if err := result.Validate(); err != nil {
		t.Errorf("result should validate: %v", err)
	}
}

// End-to-end walk through the three arrival cases: identifier match,
// normalized exact title, and low-overlap content.
func TestMixedArrivalScenario(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	seed := draftWithSourceID("Call vet back", types.SourceEmail, "msg123")
	if _, _, err := engine.ShouldAccept(ctx, "user-1", seed); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	// Same message ID, different title: rejected on identity
	first := draftWithSourceID("Call the vet", types.SourceEmail, "msg123")
	task, decision, err := engine.ShouldAccept(ctx, "user-1", first)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task != nil || decision.Rule != RuleSourceID {
		t.Errorf("expected source_id rejection, got %+v", decision)
	}

	// No identifier, normalized-equal title: rejected on exact title
	second := types.NewDraft("call vet back", types.SourceEmail)
	task, decision, err = engine.ShouldAccept(ctx, "user-1", second)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task != nil || decision.Rule != RuleExactTitle {
		t.Errorf("expected exact_title rejection, got %+v", decision)
	}

	// Low token overlap: accepted
	third := types.NewDraft("Schedule vet visit", types.SourceEmail)
	third.Description = "need appointment"
	task, decision, err = engine.ShouldAccept(ctx, "user-1", third)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task == nil || decision.IsDuplicate {
		t.Errorf("expected acceptance, got %+v", decision)
	}
}

// MaxCandidates keeps the most recent tasks when the comparison set is
// capped.
func TestMaxCandidatesCapsComparisons(t *testing.T) {
	store := memory.New()
	cfg := DefaultConfig()
	cfg.MaxCandidates = 1
	engine, err := NewEngine(store, cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	ctx := context.Background()

	if _, _, err := engine.ShouldAccept(ctx, "user-1", types.NewDraft("old matching title", types.SourceEmail)); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
	if _, _, err := engine.ShouldAccept(ctx, "user-1", types.NewDraft("recent unrelated entry", types.SourceEmail)); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	// Matches only the oldest task, which the cap excludes
	task, decision, err := engine.ShouldAccept(ctx, "user-1", types.NewDraft("Old Matching Title", types.SourceEmail))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if task == nil || decision.IsDuplicate {
		t.Error("capped comparison set should have missed the old task")
	}
	if decision.ComparedCount != 1 {
		t.Errorf("expected 1 comparison, got %d", decision.ComparedCount)
	}
}
