package deduplication

import (
	"fmt"

	"github.com/hearthhq/intake/internal/types"
)

// MatchRule identifies which check flagged a draft as a duplicate
type MatchRule string

const (
	// RuleSourceID means the origin system already delivered this item:
	// (userID, source, sourceID) matched an existing task.
	RuleSourceID MatchRule = "source_id"

	// RuleExactTitle means the normalized titles were character-equal
	RuleExactTitle MatchRule = "exact_title"

	// RuleFuzzy means both title and description similarity exceeded
	// their thresholds
	RuleFuzzy MatchRule = "fuzzy"

	// RuleNone means no check matched (the draft is not a duplicate)
	RuleNone MatchRule = ""
)

// IsValid checks if the match rule value is valid
func (r MatchRule) IsValid() bool {
	switch r {
	case RuleSourceID, RuleExactTitle, RuleFuzzy, RuleNone:
		return true
	}
	return false
}

// Decision represents the result of checking a single draft for duplicates
type Decision struct {
	// IsDuplicate is true if the draft matched an existing task
	IsDuplicate bool `json:"is_duplicate"`

	// DuplicateOf is the ID of the existing task this draft duplicates.
	// Only set when IsDuplicate is true.
	DuplicateOf string `json:"duplicate_of,omitempty"`

	// Rule records which check fired. RuleNone when not a duplicate.
	Rule MatchRule `json:"rule,omitempty"`

	// TitleScore and DescriptionScore are the Jaccard similarities against
	// the matched task. Only meaningful for RuleExactTitle and RuleFuzzy;
	// a source-identifier match never computes content similarity.
	TitleScore       float64 `json:"title_score,omitempty"`
	DescriptionScore float64 `json:"description_score,omitempty"`

	// ComparedCount is the number of existing tasks compared against,
	// useful for diagnostics and understanding search scope.
	ComparedCount int `json:"compared_count"`
}

// Validate checks if the decision has valid values
func (d *Decision) Validate() error {
	if !d.Rule.IsValid() {
		return fmt.Errorf("invalid rule: %s", d.Rule)
	}
	if d.IsDuplicate && d.DuplicateOf == "" {
		return fmt.Errorf("duplicate_of must be set when is_duplicate is true")
	}
	if !d.IsDuplicate && d.DuplicateOf != "" {
		return fmt.Errorf("duplicate_of should not be set when is_duplicate is false")
	}
	if d.IsDuplicate && d.Rule == RuleNone {
		return fmt.Errorf("rule must be set when is_duplicate is true")
	}
	if !d.IsDuplicate && d.Rule != RuleNone {
		return fmt.Errorf("rule should not be set when is_duplicate is false")
	}
	if d.TitleScore < 0.0 || d.TitleScore > 1.0 {
		return fmt.Errorf("title_score must be between 0.0 and 1.0 (got %.2f)", d.TitleScore)
	}
	if d.DescriptionScore < 0.0 || d.DescriptionScore > 1.0 {
		return fmt.Errorf("description_score must be between 0.0 and 1.0 (got %.2f)", d.DescriptionScore)
	}
	if d.ComparedCount < 0 {
		return fmt.Errorf("compared_count cannot be negative (got %d)", d.ComparedCount)
	}
	return nil
}

// BatchResult represents the outcome of processing one user's drafts
type BatchResult struct {
	// Accepted are the tasks persisted during this batch, in input order
	Accepted []*types.PersistedTask `json:"accepted"`

	// Decisions maps draft index to the duplicate decision made for it.
	// Drafts that errored before a decision could be made are absent.
	Decisions map[int]*Decision `json:"decisions,omitempty"`

	// Stats summarizes the batch for the caller's sync report
	Stats BatchStats `json:"stats"`
}

// BatchStats provides counters about one batch
type BatchStats struct {
	// TotalDrafts is the number of drafts submitted
	TotalDrafts int `json:"total_drafts"`

	// AcceptedCount is the number of drafts persisted
	AcceptedCount int `json:"accepted_count"`

	// DuplicateCount is the number of drafts rejected as duplicates
	DuplicateCount int `json:"duplicate_count"`

	// ErrorCount is the number of drafts skipped because a store read or
	// write failed. These drafts were not persisted and not retried.
	ErrorCount int `json:"error_count"`

	// ComparisonsMade is the total number of task-to-task comparisons
	ComparisonsMade int `json:"comparisons_made"`

	// ProcessingTimeMs is the time taken for the batch in milliseconds
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// Validate checks if the batch result is internally consistent
func (r *BatchResult) Validate() error {
	if r.Stats.AcceptedCount != len(r.Accepted) {
		return fmt.Errorf("stats.accepted_count (%d) does not match accepted length (%d)",
			r.Stats.AcceptedCount, len(r.Accepted))
	}
	total := r.Stats.AcceptedCount + r.Stats.DuplicateCount + r.Stats.ErrorCount
	if r.Stats.TotalDrafts != total {
		return fmt.Errorf("stats.total_drafts (%d) does not match accepted + duplicates + errors (%d)",
			r.Stats.TotalDrafts, total)
	}
	if r.Stats.ErrorCount < 0 || r.Stats.DuplicateCount < 0 {
		return fmt.Errorf("counters cannot be negative")
	}
	for idx, decision := range r.Decisions {
		if idx < 0 || idx >= r.Stats.TotalDrafts {
			return fmt.Errorf("decisions contains invalid index %d (total: %d)",
				idx, r.Stats.TotalDrafts)
		}
		if err := decision.Validate(); err != nil {
			return fmt.Errorf("invalid decision at index %d: %w", idx, err)
		}
	}
	return nil
}
