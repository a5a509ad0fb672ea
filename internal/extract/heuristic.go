package extract

import (
	"context"
	"strings"
	"time"

	"github.com/hearthhq/intake/internal/types"
)

// Keyword tables for the deterministic fallback. Matched against the
// lowercased input with simple substring checks; no network, no state.
var (
	urgentKeywords    = []string{"urgent", "asap", "immediately", "right away", "overdue"}
	importantKeywords = []string{"important", "don't forget", "reminder", "deadline"}

	contextKeywords = map[types.TaskContext][]string{
		types.ContextFamily:   {"family", "kids", "school", "doctor", "dentist", "pediatric"},
		types.ContextPersonal: {"grocery", "groceries", "gym", "birthday", "haircut", "errand"},
		types.ContextLearning: {"course", "study", "class", "homework", "tutorial", "lesson"},
	}
)

// heuristicStrategy is the deterministic keyword fallback used when the
// text-understanding call fails. It produces exactly one draft from the
// input text with priority, context, and due date inferred from keyword
// scans. It fails only on blank input.
func heuristicStrategy(source string, sourceID *string) strategy {
	return strategy{
		name: "heuristic",
		run: func(ctx context.Context, ec Context, text string) ([]*types.TaskDraft, error) {
			title := firstLine(text)
			if title == "" {
				return nil, nil
			}

			draft := types.NewDraft(truncate(title, 120), source)
			draft.Description = truncate(text, 2000)
			draft.SourceID = sourceID
			draft.Confidence = ConfidenceHeuristic

			lower := strings.ToLower(text)
			draft.Priority = scanPriority(lower)
			draft.Context = scanContext(lower, ec.Members)
			draft.DueDate = scanDueDate(lower, ec.Now)

			return []*types.TaskDraft{draft}, nil
		},
	}
}

func scanPriority(lower string) int {
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return 1
		}
	}
	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			return 2
		}
	}
	return types.DefaultPriority
}

// scanContext checks domain keywords first, then member-name mentions
// (a named household member implies a family task).
func scanContext(lower string, members []string) types.TaskContext {
	for _, tc := range []types.TaskContext{types.ContextFamily, types.ContextPersonal, types.ContextLearning} {
		for _, kw := range contextKeywords[tc] {
			if strings.Contains(lower, kw) {
				return tc
			}
		}
	}
	for _, member := range members {
		if member != "" && strings.Contains(lower, strings.ToLower(member)) {
			return types.ContextFamily
		}
	}
	return types.ContextWork
}

// scanDueDate resolves the handful of relative phrases the heuristic
// understands against the provided clock. Dates are midnight UTC.
func scanDueDate(lower string, now time.Time) *time.Time {
	day := func(offset int) *time.Time {
		d := now.UTC().AddDate(0, 0, offset)
		t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return &t
	}

	switch {
	case strings.Contains(lower, "today"):
		return day(0)
	case strings.Contains(lower, "tomorrow"):
		return day(1)
	case strings.Contains(lower, "next week"):
		return day(7)
	}
	return nil
}

// firstLine returns the first non-blank line of text, trimmed.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// lowerAll joins and lowercases the given fragments for keyword scans.
func lowerAll(parts ...string) string {
	return strings.ToLower(strings.Join(parts, " "))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
