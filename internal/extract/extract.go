// Package extract turns raw source material (emails, calendar events,
// webhook payloads) into candidate task drafts.
//
// Extractors never deduplicate and never persist; they only produce
// drafts for the deduplication engine to judge. Extractors that rely on
// a text-understanding call recover from its failure locally through an
// ordered strategy chain (AI, then a deterministic keyword heuristic,
// then a raw-text note draft) so that an AI outage degrades extraction
// quality instead of failing the batch.
package extract

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hearthhq/intake/internal/types"
)

// Confidence levels assigned by each extraction strategy.
const (
	ConfidenceAI        = 1.0
	ConfidenceHeuristic = 0.5
	ConfidenceNote      = 0.2
)

// Context carries the lightweight ambient inputs extractors need:
// the current time (for relative due dates) and the known member names
// (for assignment/context inference).
type Context struct {
	Now     time.Time
	UserID  string
	Members []string
}

// Completer is the slice of the AI client extractors need. ai.Client
// satisfies it; tests use stubs.
type Completer interface {
	Complete(ctx context.Context, prompt string, operation string, maxTokens int) (string, error)
}

// Extractor converts one raw source payload into zero or more drafts.
// The payload type is extractor-specific; a mismatched payload is an
// error, not a panic.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, ec Context, payload any) ([]*types.TaskDraft, error)
}

// strategy is one step of an extraction chain: it either produces
// drafts or fails, in which case the chain moves on.
type strategy struct {
	name string
	run  func(ctx context.Context, ec Context, text string) ([]*types.TaskDraft, error)
}

// runChain tries strategies in order and returns the first successful
// result. Failures are logged and swallowed; if every strategy fails
// the chain returns zero drafts.
func runChain(ctx context.Context, ec Context, extractor, text string, strategies []strategy) []*types.TaskDraft {
	for _, s := range strategies {
		drafts, err := s.run(ctx, ec, text)
		if err != nil {
			log.Printf("[EXTRACT] %s: strategy %s failed, trying next: %v", extractor, s.name, err)
			continue
		}
		if len(drafts) > 0 {
			log.Printf("[EXTRACT] %s: strategy %s produced %d draft(s)", extractor, s.name, len(drafts))
		}
		return drafts
	}
	log.Printf("[EXTRACT] %s: all strategies failed, dropping input", extractor)
	return nil
}

// noteStrategy is the terminal fallback: a single low-confidence draft
// tagging the raw input as unprocessed. It never fails.
func noteStrategy(source string, sourceID *string) strategy {
	return strategy{
		name: "note",
		run: func(ctx context.Context, ec Context, text string) ([]*types.TaskDraft, error) {
			title := firstLine(text)
			if title == "" {
				return nil, nil
			}
			draft := types.NewDraft("Review: "+truncate(title, 120), source)
			draft.Description = truncate(text, 2000)
			draft.SourceID = sourceID
			draft.Confidence = ConfidenceNote
			return []*types.TaskDraft{draft}, nil
		},
	}
}

func wrongPayload(name string, payload any) error {
	return fmt.Errorf("%s extractor: unsupported payload type %T", name, payload)
}
