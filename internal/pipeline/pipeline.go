// Package pipeline wires extractors to the deduplication engine:
// extract, validate, then batch-process. It is the only package that
// sees both sides; extractors stay persistence-free and the engine
// stays source-format-free.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hearthhq/intake/internal/deduplication"
	"github.com/hearthhq/intake/internal/extract"
	"github.com/hearthhq/intake/internal/types"
)

// Pipeline runs raw source payloads through extraction and
// deduplication for one installation.
type Pipeline struct {
	engine *deduplication.Engine
}

func New(engine *deduplication.Engine) (*Pipeline, error) {
	if engine == nil {
		return nil, fmt.Errorf("pipeline requires a deduplication engine")
	}
	return &Pipeline{engine: engine}, nil
}

// Ingest extracts drafts from one payload and feeds them to the
// deduplication engine as a single batch. Invalid drafts are dropped
// with a log line before they reach the engine; extraction failures
// other than a malformed payload are already recovered inside the
// extractor, so an error here means the payload itself was unusable.
func (p *Pipeline) Ingest(ctx context.Context, ec extract.Context, extractor extract.Extractor, payload any) (*deduplication.BatchResult, error) {
	if extractor == nil {
		return nil, fmt.Errorf("ingest requires an extractor")
	}

	drafts, err := extractor.Extract(ctx, ec, payload)
	if err != nil {
		return nil, fmt.Errorf("extraction failed for %s: %w", extractor.Name(), err)
	}

	valid := drafts[:0]
	for _, draft := range drafts {
		if verr := draft.Validate(); verr != nil {
			log.Printf("[PIPELINE] dropping invalid draft from %s for user %s: %v",
				extractor.Name(), ec.UserID, verr)
			continue
		}
		valid = append(valid, draft)
	}

	return p.engine.ProcessBatch(ctx, ec.UserID, valid)
}

// Batch is one unit of ingestion work: a payload for a user through a
// specific extractor.
type Batch struct {
	Context   extract.Context
	Extractor extract.Extractor
	Payload   any
}

// IngestAll processes batches for multiple users. Batches for different
// users run concurrently; a single user's batches stay sequential in
// input order so the in-batch identity check is never raced. Returns
// per-user results keyed by user ID; the first hard failure cancels the
// remaining work.
func (p *Pipeline) IngestAll(ctx context.Context, batches []Batch) (map[string][]*deduplication.BatchResult, error) {
	perUser := make(map[string][]Batch)
	order := make([]string, 0)
	for _, b := range batches {
		if _, seen := perUser[b.Context.UserID]; !seen {
			order = append(order, b.Context.UserID)
		}
		perUser[b.Context.UserID] = append(perUser[b.Context.UserID], b)
	}

	results := make(map[string][]*deduplication.BatchResult, len(order))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, userID := range order {
		userBatches := perUser[userID]
		g.Go(func() error {
			userResults := make([]*deduplication.BatchResult, 0, len(userBatches))
			for _, b := range userBatches {
				result, err := p.Ingest(gctx, b.Context, b.Extractor, b.Payload)
				if err != nil {
					return fmt.Errorf("user %s: %w", userID, err)
				}
				userResults = append(userResults, result)
			}
			mu.Lock()
			results[userID] = userResults
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Accepted flattens the accepted tasks across a user's results.
func Accepted(results []*deduplication.BatchResult) []*types.PersistedTask {
	var tasks []*types.PersistedTask
	for _, r := range results {
		tasks = append(tasks, r.Accepted...)
	}
	return tasks
}
