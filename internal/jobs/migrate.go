package jobs

import (
	"context"
	"fmt"
)

// maxMigratePasses bounds the supervising loop against a job that never
// reports completion.
const maxMigratePasses = 1000

// ReclassifyAll is the supervising loop for the one-shot full
// reclassification: it repeatedly invokes the batched reclassify job until a
// pass reports zero processed or completion, then marks the migration
// permanently done so it never re-runs.
func (r *Runner) ReclassifyAll(ctx context.Context, opts Options) (Result, error) {
	var total Result

	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return total, fmt.Errorf("load settings: %w", err)
	}
	if settings.ReclassifyDone {
		total.Completed = true
		return total, nil
	}

	opts.ResetCursor = false
	for pass := 0; pass < maxMigratePasses; pass++ {
		res, err := r.Reclassify(ctx, opts)
		if err != nil {
			// ErrNotAcquired included: another run is already migrating.
			return total, err
		}
		total.add(res)
		if res.Processed == 0 || res.Completed {
			break
		}
	}

	settings.ReclassifyDone = true
	settings.UpdatedAt = r.now()
	if err := r.store.PutSettings(ctx, settings); err != nil {
		return total, fmt.Errorf("mark migration done: %w", err)
	}
	total.Completed = true
	r.log.Info("reclassify migration finished",
		"processed", total.Processed, "updated", total.Updated, "failed", total.Failed)
	return total, nil
}
