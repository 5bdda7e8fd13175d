package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkhoard/linkhoard/internal/classify"
	"github.com/linkhoard/linkhoard/internal/embeddings"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/store"
)

// RemoteDeleter propagates a permanent local deletion to the remote backend,
// best effort.
type RemoteDeleter interface {
	DeleteRemote(ctx context.Context, dedupeKey string)
}

// SyncFunc runs one reconciliation pass and reports how many records moved
// in each direction.
type SyncFunc func(ctx context.Context) (pushed, pulled int, err error)

// Runner composes the four background jobs over the shared coordinator.
// Any collaborator may be nil; the corresponding job then degrades (backfill
// without an embedder processes nothing, cleanup without a deleter skips
// remote propagation).
type Runner struct {
	coord      *Coordinator
	store      store.Store
	embedder   embeddings.Embedder
	classifier classify.Classifier
	deleter    RemoteDeleter
	syncFn     SyncFunc
	log        *slog.Logger
	now        func() time.Time
}

// NewRunner creates a runner over the given coordinator and collaborators.
func NewRunner(coord *Coordinator, st store.Store, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		coord: coord,
		store: st,
		log:   log,
		now:   time.Now,
	}
}

// WithEmbedder sets the embedding provider used by the backfill job.
func (r *Runner) WithEmbedder(e embeddings.Embedder) *Runner {
	r.embedder = e
	return r
}

// WithClassifier sets the classification provider used by the reclassify job.
func (r *Runner) WithClassifier(c classify.Classifier) *Runner {
	r.classifier = c
	return r
}

// WithRemote sets the sync pass and the remote delete hook.
func (r *Runner) WithRemote(syncFn SyncFunc, deleter RemoteDeleter) *Runner {
	r.syncFn = syncFn
	r.deleter = deleter
	return r
}

// needsEmbedding reports whether a record's embedding is missing or stale
// relative to its searchable content or the configured model.
func needsEmbedding(b *model.Bookmark, embModel string) bool {
	if len(b.Embedding) == 0 {
		return true
	}
	if embModel != "" && b.EmbeddingModel != embModel {
		return true
	}
	return b.EmbeddedAt == nil || b.EmbeddedAt.Before(b.UpdatedAt)
}

// Backfill recomputes missing or stale embeddings over a bounded,
// checkpointed batch.
func (r *Runner) Backfill(ctx context.Context, opts Options) (Result, error) {
	embModel := ""
	if r.embedder != nil {
		embModel = r.embedder.Model()
	}
	spec := batchSpec{
		id: Backfill,
		eligible: func(b *model.Bookmark) bool {
			if r.embedder == nil {
				return false
			}
			if b.Status == model.StatusTrashed || model.PrivacyExcluded(b.URL) || b.SearchText == "" {
				return false
			}
			return needsEmbedding(b, embModel)
		},
		process: func(ctx context.Context, b *model.Bookmark) (bool, error) {
			embedCtx, cancel := context.WithTimeout(ctx, embeddings.DefaultTimeout)
			defer cancel()

			vec, err := r.embedder.Embed(embedCtx, b.SearchText)
			if err != nil {
				return false, fmt.Errorf("embed %s: %w", b.ID, err)
			}
			now := r.now()
			b.Embedding = vec
			b.EmbeddingModel = embModel
			b.EmbeddedAt = &now
			// Embedding bookkeeping does not dirty the record for sync and
			// does not bump UpdatedAt.
			if err := r.store.Put(ctx, b); err != nil {
				return false, fmt.Errorf("save %s: %w", b.ID, err)
			}
			return true, nil
		},
	}
	return r.coord.runBatch(ctx, spec, opts)
}

// Reclassify assigns categories and tags to unclassified or errored records
// over a bounded, checkpointed batch.
func (r *Runner) Reclassify(ctx context.Context, opts Options) (Result, error) {
	classifier := r.classifier
	if classifier == nil {
		classifier = classify.RuleClassifier{}
	}
	rules, err := r.store.ListRules(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list rules: %w", err)
	}

	spec := batchSpec{
		id: Reclassify,
		eligible: func(b *model.Bookmark) bool {
			if b.Status == model.StatusTrashed {
				return false
			}
			switch b.Status {
			case model.StatusInbox, model.StatusAnalyzing, model.StatusError:
				return true
			}
			return b.Category == ""
		},
		process: func(ctx context.Context, b *model.Bookmark) (bool, error) {
			classifyCtx, cancel := context.WithTimeout(ctx, classify.DefaultTimeout)
			res, cerr := classifier.Classify(classifyCtx, b, rules)
			cancel()
			if cerr != nil {
				b.Status = model.StatusError
				b.Touch(r.now())
				if perr := r.store.Put(ctx, b); perr != nil {
					r.log.Warn("reclassify: save error status failed", "id", b.ID, "error", perr)
				}
				return false, fmt.Errorf("classify %s: %w", b.ID, cerr)
			}
			if res.Category == "" && len(res.Tags) == 0 {
				// Nothing to assign; leave the record for a future pass.
				return false, nil
			}
			b.Category = model.NormalizeCategory(res.Category)
			b.Tags = model.UnionTags(b.Tags, res.Tags)
			b.Status = model.StatusClassified
			b.Touch(r.now())
			if err := r.store.Put(ctx, b); err != nil {
				return false, fmt.Errorf("save %s: %w", b.ID, err)
			}
			return true, nil
		},
	}
	return r.coord.runBatch(ctx, spec, opts)
}

// Cleanup purges trashed records older than the retention window, unless
// pinned or locked, and best-effort propagates each deletion to the remote.
func (r *Runner) Cleanup(ctx context.Context, opts Options) (Result, error) {
	lease, err := r.coord.Acquire(ctx, Cleanup)
	if err != nil {
		return Result{}, err
	}
	res, runErr := r.cleanupLeased(ctx, opts)
	r.coord.Release(ctx, lease, runErr)
	return res, runErr
}

func (r *Runner) cleanupLeased(ctx context.Context, opts Options) (Result, error) {
	var res Result

	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return res, fmt.Errorf("load settings: %w", err)
	}
	retention := settings.RetentionDays
	if retention <= 0 {
		retention = model.DefaultSettings().RetentionDays
	}
	cutoff := r.now().AddDate(0, 0, -retention)

	trashed, err := r.store.ListByStatus(ctx, model.StatusTrashed, 0)
	if err != nil {
		return res, fmt.Errorf("list trashed: %w", err)
	}

	var purge []string
	for _, b := range trashed {
		res.Processed++
		if b.Pinned || b.Locked || b.DeletedAt == nil || !b.DeletedAt.Before(cutoff) {
			res.Skipped++
			continue
		}
		purge = append(purge, b.ID)
		if r.deleter != nil {
			r.deleter.DeleteRemote(ctx, model.DedupeKey(b))
		}
	}
	if len(purge) > 0 {
		if err := r.store.BulkDelete(ctx, purge); err != nil {
			return res, fmt.Errorf("purge: %w", err)
		}
		res.Updated = len(purge)
	}
	res.Completed = true
	return res, nil
}

// RunSync acquires the sync lease and delegates to the reconciler. The sync
// job shares the lease space with the batch jobs but only excludes itself.
func (r *Runner) RunSync(ctx context.Context) (Result, error) {
	if r.syncFn == nil {
		return Result{}, fmt.Errorf("remote sync not configured")
	}
	lease, err := r.coord.Acquire(ctx, Sync)
	if err != nil {
		return Result{}, err
	}
	pushed, pulled, runErr := r.syncFn(ctx)
	r.coord.Release(ctx, lease, runErr)
	return Result{Processed: pushed + pulled, Updated: pulled, Completed: runErr == nil}, runErr
}

// Run dispatches a job by id. Unknown ids are an input error.
func (r *Runner) Run(ctx context.Context, id ID, opts Options) (Result, error) {
	switch id {
	case Backfill:
		return r.Backfill(ctx, opts)
	case Reclassify:
		return r.Reclassify(ctx, opts)
	case Cleanup:
		return r.Cleanup(ctx, opts)
	case Sync:
		return r.RunSync(ctx)
	default:
		return Result{}, fmt.Errorf("unknown job %q", id)
	}
}
