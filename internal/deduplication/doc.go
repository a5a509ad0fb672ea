// Package deduplication decides whether an incoming task draft duplicates a
// task the user already has, and persists accepted drafts.
//
// # Overview
//
// Task drafts arrive from several extractors (email, calendar, workflow
// webhooks) that can all describe the same underlying task. The engine
// prevents the same task from being stored twice by checking each draft
// against the user's existing tasks before it is written.
//
// # Algorithm
//
// Checks run in order and short-circuit on the first match:
//
//  1. Source identity: if the draft carries a SourceID, look up
//     (userID, source, sourceID) in the store. A hit is a duplicate no
//     matter how different the content is - the origin system already
//     delivered this item once.
//  2. Exact title: normalized (lowercased, trimmed) titles that are
//     character-equal are duplicates, independent of description.
//  3. Fuzzy content: Jaccard token similarity computed separately for title
//     and description. Both must strictly exceed their thresholds
//     (defaults 0.8 title, 0.7 description) to count as a duplicate. An
//     empty side scores 0 and can never match.
//
// Content comparison only ever considers tasks from the same source as the
// draft. A calendar draft is never matched against an email task, even when
// titles or identifier values collide.
//
// # Batching
//
// ProcessBatch handles one user's drafts sequentially in input order. Each
// accepted draft joins an in-batch overlay that later drafts are compared
// against, so two near-identical drafts in one call produce exactly one
// accepted task. The overlay is per-call state, never shared across calls
// or users.
//
// # Error handling
//
// A store read failure means duplicate status cannot be determined; the
// engine conservatively skips persistence and reports the draft in
// ErrorCount rather than risking a duplicate. Write failures after a clean
// decision are also surfaced through ErrorCount; the engine performs no
// retries - retry policy belongs to the caller.
//
// # Known limitations
//
// The similarity metric is plain token overlap: no stemming, no synonyms.
// "Call the vet" and "Phone the veterinarian" will not match. Separately,
// two installations processing batches for the same user concurrently can
// race the read-then-write identity check; within one installation the
// per-batch sequencing makes that impossible.
package deduplication
