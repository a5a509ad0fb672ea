package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/hearthhq/intake/internal/ai"
	"github.com/hearthhq/intake/internal/types"
)

// WebhookExtractor maps items from an external workflow system's
// webhook payload into drafts. Payloads are JSON but come from systems
// we don't control, so parsing goes through the resilient parser and a
// malformed payload degrades to a raw note instead of an error.
type WebhookExtractor struct {
	// Origin tags the drafts' Source so tasks from different workflow
	// systems stay isolated from each other during deduplication.
	Origin string
}

func NewWebhookExtractor(origin string) (*WebhookExtractor, error) {
	if strings.TrimSpace(origin) == "" {
		return nil, fmt.Errorf("webhook extractor: origin tag is required")
	}
	return &WebhookExtractor{Origin: origin}, nil
}

func (e *WebhookExtractor) Name() string { return "webhook:" + e.Origin }

// webhookItem is the shape each payload element is expected to carry.
// Only Title is required; the external ID feeds SourceID when present.
type webhookItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	DueDate     string `json:"dueDate"`
	Context     string `json:"context"`
}

// Extract expects a []byte JSON payload: either an array of items or a
// single item object.
func (e *WebhookExtractor) Extract(ctx context.Context, ec Context, payload any) ([]*types.TaskDraft, error) {
	raw, ok := payload.([]byte)
	if !ok {
		if s, sok := payload.(string); sok {
			raw = []byte(s)
		} else {
			return nil, wrongPayload(e.Name(), payload)
		}
	}

	items := e.parseItems(string(raw))
	if items == nil {
		// Unparseable payload falls through to the note chain so the
		// input is surfaced as an unprocessed low-confidence draft.
		return runChain(ctx, ec, e.Name(), string(raw), []strategy{noteStrategy(e.Origin, nil)}), nil
	}

	drafts := make([]*types.TaskDraft, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		draft := types.NewDraft(item.Title, e.Origin)
		draft.Description = item.Description
		draft.Confidence = ConfidenceAI
		if item.ID != "" {
			id := item.ID
			draft.SourceID = &id
		}
		if item.Priority >= 1 && item.Priority <= 5 {
			draft.Priority = item.Priority
		}
		if tc := types.ParseContext(item.Context); tc.IsValid() {
			draft.Context = tc
		}
		draft.DueDate = parseDueDate(item.DueDate)
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// parseItems accepts an array of items or a bare item object; returns
// nil when neither shape parses.
func (e *WebhookExtractor) parseItems(raw string) []webhookItem {
	opts := ai.ParseOptions{Context: e.Name()}
	if parsed := ai.Parse[[]webhookItem](raw, opts); parsed.Success {
		return parsed.Data
	}
	if parsed := ai.Parse[webhookItem](raw, opts); parsed.Success && parsed.Data.Title != "" {
		return []webhookItem{parsed.Data}
	}
	return nil
}
