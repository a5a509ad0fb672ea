package extract

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/hearthhq/intake/internal/types"
)

// CalendarExtractor turns a Google Calendar event into a single task
// draft. Events are already structured, so no text-understanding call
// is needed: the mapping is deterministic and full-confidence.
type CalendarExtractor struct{}

func NewCalendarExtractor() *CalendarExtractor {
	return &CalendarExtractor{}
}

func (e *CalendarExtractor) Name() string { return "calendar" }

// Extract expects a *calendar.Event payload. The event ID becomes the
// draft SourceID; the event start becomes the due date. Cancelled
// events and events without a summary produce no drafts.
func (e *CalendarExtractor) Extract(ctx context.Context, ec Context, payload any) ([]*types.TaskDraft, error) {
	event, ok := payload.(*calendar.Event)
	if !ok {
		return nil, wrongPayload(e.Name(), payload)
	}
	if event == nil || event.Id == "" {
		return nil, fmt.Errorf("calendar extractor: event has no id")
	}
	if event.Status == "cancelled" || event.Summary == "" {
		return nil, nil
	}

	sourceID := event.Id
	draft := types.NewDraft(truncate(event.Summary, 120), types.SourceCalendar)
	draft.Description = truncate(event.Description, 2000)
	draft.SourceID = &sourceID
	draft.Confidence = ConfidenceAI
	draft.Context = scanContext(lowerAll(event.Summary, event.Description), ec.Members)
	draft.DueDate = eventStart(event)

	return []*types.TaskDraft{draft}, nil
}

// eventStart resolves the event start time: timed events carry an
// RFC3339 DateTime, all-day events carry a bare date.
func eventStart(event *calendar.Event) *time.Time {
	if event.Start == nil {
		return nil
	}
	if event.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if event.Start.Date != "" {
		if t, err := time.Parse("2006-01-02", event.Start.Date); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
