package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hearthhq/intake/internal/ai"
	"github.com/hearthhq/intake/internal/types"
)

const extractionMaxTokens = 1024

// aiTask is the wire shape the text-understanding call is asked for:
// a JSON array of these objects.
type aiTask struct {
	Title       string `json:"title"`
	Priority    int    `json:"priority"`
	DueDate     string `json:"dueDate"` // ISO date or "None"
	Context     string `json:"context"`
	Description string `json:"description"`
}

// buildExtractionPrompt asks for actionable tasks in the structured
// JSON shape the parser expects. Current time and member names are
// included so the model can resolve relative dates and infer context
// from name mentions.
func buildExtractionPrompt(ec Context, sourceKind, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract actionable tasks from the following %s content.\n\n", sourceKind)
	fmt.Fprintf(&b, "Current date: %s\n", ec.Now.Format("2006-01-02"))
	if len(ec.Members) > 0 {
		fmt.Fprintf(&b, "Household members: %s\n", strings.Join(ec.Members, ", "))
	}
	b.WriteString(`
Respond with ONLY a JSON array (no prose). Each element:
{"title": string, "priority": 1-5, "dueDate": "YYYY-MM-DD" or "None", "context": "work"|"personal"|"family"|"learning", "description": string}

Return [] if there are no actionable tasks.

Content:
`)
	b.WriteString(text)
	return b.String()
}

// aiStrategy calls the text-understanding service and parses its
// response with the resilient JSON parser. Any call or parse failure is
// a strategy failure, left for the next strategy in the chain.
func aiStrategy(completer Completer, source, sourceKind string, sourceID *string) strategy {
	return strategy{
		name: "ai",
		run: func(ctx context.Context, ec Context, text string) ([]*types.TaskDraft, error) {
			if completer == nil {
				return nil, fmt.Errorf("no completer configured")
			}

			prompt := buildExtractionPrompt(ec, sourceKind, text)
			response, err := completer.Complete(ctx, prompt, sourceKind+"_extraction", extractionMaxTokens)
			if err != nil {
				return nil, fmt.Errorf("text-understanding call failed: %w", err)
			}

			parsed := ai.Parse[[]aiTask](response, ai.ParseOptions{Context: sourceKind + "-extraction"})
			if !parsed.Success {
				return nil, fmt.Errorf("unparseable response: %s", parsed.Error)
			}

			drafts := make([]*types.TaskDraft, 0, len(parsed.Data))
			for _, item := range parsed.Data {
				if strings.TrimSpace(item.Title) == "" {
					continue
				}
				draft := types.NewDraft(item.Title, source)
				draft.Description = item.Description
				draft.Confidence = ConfidenceAI
				if item.Priority >= 1 && item.Priority <= 5 {
					draft.Priority = item.Priority
				}
				if tc := types.ParseContext(item.Context); tc.IsValid() {
					draft.Context = tc
				}
				draft.DueDate = parseDueDate(item.DueDate)
				drafts = append(drafts, draft)
			}
			applySourceID(drafts, sourceID)
			return drafts, nil
		},
	}
}

// applySourceID attaches the origin identifier to the drafts. A single
// draft gets the raw ID; when one payload yields several drafts each
// gets an index-suffixed ID so the engine doesn't collapse distinct
// tasks under the identity rule. The suffix is stable only while the
// model returns tasks in the same order, a known limitation.
func applySourceID(drafts []*types.TaskDraft, sourceID *string) {
	if sourceID == nil {
		return
	}
	if len(drafts) == 1 {
		drafts[0].SourceID = sourceID
		return
	}
	for i, draft := range drafts {
		id := fmt.Sprintf("%s#%d", *sourceID, i)
		draft.SourceID = &id
	}
}

// parseDueDate accepts an ISO date, an RFC3339 timestamp, or the
// literal "None". Anything else is dropped rather than guessed at.
func parseDueDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "null") {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = t.UTC()
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}
