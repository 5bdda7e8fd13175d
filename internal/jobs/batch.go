package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Options parameterize one job invocation. Not serialized directly: wire
// formats carry the delay in milliseconds and convert at the boundary.
type Options struct {
	Limit       int
	Delay       time.Duration
	ResetCursor bool
}

// Result is the structured outcome of one job invocation.
type Result struct {
	Processed int  `json:"processed"`
	Updated   int  `json:"updated"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Completed bool `json:"completed,omitempty"`
}

func (r *Result) add(other Result) {
	r.Processed += other.Processed
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Completed = other.Completed
}

// batchSpec is a checkpointed batch job: a candidate filter plus a per-item
// processor, run under the shared lease engine.
type batchSpec struct {
	id       ID
	eligible func(b *model.Bookmark) bool
	process  func(ctx context.Context, b *model.Bookmark) (updated bool, err error)
}

// runBatch executes one checkpointed batch under the job's lease.
//
// The candidate list is the full eligible set ordered by (updatedAt, id)
// ascending; the run resumes strictly after the stored cursor, processes up
// to opts.Limit items, persists the cursor every SubBatchSize items, and on
// completion clears the cursor iff the candidate set is exhausted.
// Individual item failures are counted, not fatal.
func (c *Coordinator) runBatch(ctx context.Context, spec batchSpec, opts Options) (Result, error) {
	lease, err := c.Acquire(ctx, spec.id)
	if err != nil {
		return Result{}, err
	}

	res, runErr := c.runLeased(ctx, lease, spec, opts)
	c.Release(ctx, lease, runErr)
	return res, runErr
}

func (c *Coordinator) runLeased(ctx context.Context, lease *model.JobLease, spec batchSpec, opts Options) (Result, error) {
	var res Result

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	if opts.ResetCursor {
		lease.ClearCursor()
	}
	lease.LastError = ""

	all, err := c.store.Scan(ctx)
	if err != nil {
		return res, fmt.Errorf("scan candidates: %w", err)
	}
	candidates := all[:0:0]
	for _, b := range all {
		if spec.eligible(b) {
			candidates = append(candidates, b)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].UpdatedAt.Equal(candidates[j].UpdatedAt) {
			return candidates[i].UpdatedAt.Before(candidates[j].UpdatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	// Resume strictly after the stored cursor, by the same ordering.
	start := 0
	if lease.HasCursor() {
		start = sort.Search(len(candidates), func(i int) bool {
			b := candidates[i]
			if !b.UpdatedAt.Equal(lease.CursorUpdatedAt) {
				return b.UpdatedAt.After(lease.CursorUpdatedAt)
			}
			return b.ID > lease.CursorID
		})
	}

	end := start + limit
	if end > len(candidates) {
		end = len(candidates)
	}
	batch := candidates[start:end]

	var failures int
	var firstFailure error
	for i, b := range batch {
		// The cursor records the candidate's ordering key at scan time;
		// processing may bump UpdatedAt.
		cursorAt, cursorID := b.UpdatedAt, b.ID

		updated, perr := spec.process(ctx, b)
		res.Processed++
		switch {
		case perr != nil:
			res.Failed++
			failures++
			if firstFailure == nil {
				firstFailure = perr
			}
			c.log.Warn("job item failed", "job", spec.id, "id", b.ID, "error", perr)
		case updated:
			res.Updated++
		default:
			res.Skipped++
		}

		lease.CursorUpdatedAt = cursorAt
		lease.CursorID = cursorID

		last := i == len(batch)-1
		if !last && (i+1)%SubBatchSize == 0 {
			if err := c.Checkpoint(ctx, lease); err != nil {
				return res, err
			}
			if opts.Delay > 0 {
				select {
				case <-time.After(opts.Delay):
				case <-ctx.Done():
					return res, ctx.Err()
				}
			}
		}
	}

	if end >= len(candidates) {
		// Caught up: the next invocation starts from the beginning.
		lease.ClearCursor()
		res.Completed = true
	}

	if failures > 0 {
		lease.LastError = fmt.Sprintf("%d item(s) failed; first: %v", failures, firstFailure)
	}
	return res, nil
}
